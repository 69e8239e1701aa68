package repository

import (
	"context"

	"github.com/fastygo/volunteers/domain"
)

// VolunteerRepository persists volunteers. Every volunteer it returns
// carries its assigned tasks ordered by id.
type VolunteerRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Volunteer, error)
	// List returns every volunteer ordered by name.
	List(ctx context.Context) ([]domain.Volunteer, error)
	Search(ctx context.Context, term string) ([]domain.Volunteer, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, volunteer *domain.Volunteer) (*domain.Volunteer, error)
	Update(ctx context.Context, volunteer *domain.Volunteer) (*domain.Volunteer, error)
	// Delete removes the volunteer and unassigns its tasks.
	Delete(ctx context.Context, id int64) error
}
