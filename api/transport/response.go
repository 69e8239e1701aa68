package transport

import "github.com/fastygo/volunteers/domain"

// ErrorResponse is the failure envelope. Error holds the numeric status,
// or "Authentication Error" for token and permission failures.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   interface{} `json:"error"`
	Message string      `json:"message"`
}

func NewError(code interface{}, message string) ErrorResponse {
	return ErrorResponse{Error: code, Message: message}
}

type StatusResponse struct {
	Success bool `json:"success"`
}

type TaskResponse struct {
	Success bool         `json:"success"`
	Task    *domain.Task `json:"task"`
}

type TasksResponse struct {
	Success bool          `json:"success"`
	Tasks   []domain.Task `json:"tasks"`
}

type VolunteerResponse struct {
	Success   bool              `json:"success"`
	Volunteer *domain.Volunteer `json:"volunteer"`
}

type VolunteersResponse struct {
	Success    bool               `json:"success"`
	Volunteers []domain.Volunteer `json:"volunteers"`
}

type DeletedResponse struct {
	Success bool  `json:"success"`
	Deleted int64 `json:"deleted"`
}

type HealthResponse struct {
	Success   bool            `json:"success"`
	Healthy   bool            `json:"healthy"`
	Services  map[string]bool `json:"services"`
	LastCheck string          `json:"last_check,omitempty"`
}
