package domain

// Volunteer is a person who can be assigned tasks. Tasks is derived from
// the task table at read time.
type Volunteer struct {
	ID          int64  `json:"id"`
	Name        string `json:"name" validate:"required"`
	Address     string `json:"address" validate:"required"`
	City        string `json:"city" validate:"required"`
	State       string `json:"state" validate:"us_state"`
	ZipCode     string `json:"zip_code" validate:"min=5,max=10"`
	PhoneNumber string `json:"phone_number" validate:"phone"`
	Tasks       []Task `json:"tasks"`
}

// VolunteerPatch carries the fields present in a partial update.
type VolunteerPatch struct {
	Name        *string
	Address     *string
	City        *string
	State       *string
	ZipCode     *string
	PhoneNumber *string
}

func (p VolunteerPatch) Empty() bool {
	return p.Name == nil && p.Address == nil && p.City == nil &&
		p.State == nil && p.ZipCode == nil && p.PhoneNumber == nil
}

func (p VolunteerPatch) Apply(v *Volunteer) {
	if p.Name != nil {
		v.Name = *p.Name
	}
	if p.Address != nil {
		v.Address = *p.Address
	}
	if p.City != nil {
		v.City = *p.City
	}
	if p.State != nil {
		v.State = *p.State
	}
	if p.ZipCode != nil {
		v.ZipCode = *p.ZipCode
	}
	if p.PhoneNumber != nil {
		v.PhoneNumber = *p.PhoneNumber
	}
}

// Validate checks the format rules for the scalar fields. Presence is
// checked by the caller since create and update differ there.
func (v *Volunteer) Validate() error {
	return validateStruct(v)
}

// AttachTasks sets each volunteer's Tasks to the tasks assigned to it,
// keeping the order of tasks.
func AttachTasks(volunteers []Volunteer, tasks []Task) {
	byVolunteer := make(map[int64][]Task, len(volunteers))
	for _, task := range tasks {
		if task.VolunteerID != nil {
			byVolunteer[*task.VolunteerID] = append(byVolunteer[*task.VolunteerID], task)
		}
	}
	for i := range volunteers {
		if assigned, ok := byVolunteer[volunteers[i].ID]; ok {
			volunteers[i].Tasks = assigned
		} else {
			volunteers[i].Tasks = []Task{}
		}
	}
}
