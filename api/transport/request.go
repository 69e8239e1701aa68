package transport

import (
	"bytes"
	"encoding/json"

	"github.com/fastygo/volunteers/domain"
)

// OptionalID distinguishes an absent JSON member from an explicit null.
type OptionalID struct {
	Set   bool
	Value *int64
}

func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	o.Value = &id
	return nil
}

// TaskRequest is the body of task create and update requests. Every member
// is optional; the use case decides which are required.
type TaskRequest struct {
	Title       *string    `json:"title"`
	Details     *string    `json:"details"`
	DateNeeded  *string    `json:"date_needed"`
	Status      *string    `json:"status"`
	VolunteerID OptionalID `json:"volunteer_id"`
}

// Patch converts the request into a domain patch. A malformed date is
// unprocessable rather than a bad request.
func (r TaskRequest) Patch() (domain.TaskPatch, error) {
	patch := domain.TaskPatch{
		Title:        r.Title,
		Details:      r.Details,
		VolunteerSet: r.VolunteerID.Set,
		VolunteerID:  r.VolunteerID.Value,
	}
	if r.DateNeeded != nil {
		date, err := domain.ParseDate(*r.DateNeeded)
		if err != nil {
			return domain.TaskPatch{}, domain.InvalidField("date_needed", "must be formatted YYYY-MM-DD")
		}
		patch.DateNeeded = &date
	}
	if r.Status != nil {
		status := domain.TaskStatus(*r.Status)
		patch.Status = &status
	}
	return patch, nil
}

type VolunteerRequest struct {
	Name        *string `json:"name"`
	Address     *string `json:"address"`
	City        *string `json:"city"`
	State       *string `json:"state"`
	ZipCode     *string `json:"zip_code"`
	PhoneNumber *string `json:"phone_number"`
}

func (r VolunteerRequest) Patch() domain.VolunteerPatch {
	return domain.VolunteerPatch{
		Name:        r.Name,
		Address:     r.Address,
		City:        r.City,
		State:       r.State,
		ZipCode:     r.ZipCode,
		PhoneNumber: r.PhoneNumber,
	}
}

// DecodeTask parses a task body. A missing or malformed body is a bad request.
func DecodeTask(body []byte) (domain.TaskPatch, error) {
	var req TaskRequest
	if err := decode(body, &req); err != nil {
		return domain.TaskPatch{}, err
	}
	return req.Patch()
}

// DecodeVolunteer parses a volunteer body.
func DecodeVolunteer(body []byte) (domain.VolunteerPatch, error) {
	var req VolunteerRequest
	if err := decode(body, &req); err != nil {
		return domain.VolunteerPatch{}, err
	}
	return req.Patch(), nil
}

func decode(body []byte, dst interface{}) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return domain.ErrEmptyBody
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return domain.WrapError(domain.ErrCodeBadRequest, domain.ErrInvalidPayload.Message, err)
	}
	return nil
}
