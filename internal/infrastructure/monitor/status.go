package monitor

import "time"

// Status is the latest result of every dependency check.
type Status struct {
	Healthy   bool            `json:"healthy"`
	Services  map[string]bool `json:"services"`
	LastCheck time.Time       `json:"last_check"`
}
