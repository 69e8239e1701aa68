package domain

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskOpen     TaskStatus = "Open"
	TaskFilled   TaskStatus = "Filled"
	TaskComplete TaskStatus = "Complete"
)

// Task is a unit of work that may be assigned to one volunteer.
// VolunteerName is derived at read time and never stored.
type Task struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title" validate:"required"`
	Details       string     `json:"details" validate:"required"`
	DateNeeded    Date       `json:"date_needed" validate:"required"`
	Status        TaskStatus `json:"status" validate:"oneof=Open Filled Complete"`
	VolunteerID   *int64     `json:"volunteer_id"`
	VolunteerName string     `json:"volunteer_name"`
}

func (t *Task) IsAssigned() bool {
	return t != nil && t.VolunteerID != nil
}

// TaskPatch carries the fields present in a partial update. A nil pointer
// means the field was not supplied. VolunteerSet distinguishes an explicit
// null (unassign) from an absent volunteer_id.
type TaskPatch struct {
	Title        *string
	Details      *string
	DateNeeded   *Date
	Status       *TaskStatus
	VolunteerSet bool
	VolunteerID  *int64
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Details == nil && p.DateNeeded == nil && p.Status == nil && !p.VolunteerSet
}

// Apply overlays the supplied fields onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Details != nil {
		t.Details = *p.Details
	}
	if p.DateNeeded != nil {
		t.DateNeeded = *p.DateNeeded
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.VolunteerSet {
		t.VolunteerID = p.VolunteerID
		if p.VolunteerID == nil {
			t.VolunteerName = ""
		}
	}
}

// Validate checks the field rules shared by create and update.
func (t *Task) Validate() error {
	return validateStruct(t)
}
