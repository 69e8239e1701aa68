package repository

import (
	"context"

	"github.com/fastygo/volunteers/domain"
)

// TaskRepository persists tasks. Reads fill VolunteerName from the
// assigned volunteer; missing rows yield domain.ErrTaskNotFound.
type TaskRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Task, error)
	// List returns every task ordered by id.
	List(ctx context.Context) ([]domain.Task, error)
	// Search matches term case-insensitively against task titles.
	Search(ctx context.Context, term string) ([]domain.Task, error)
	ListByVolunteer(ctx context.Context, volunteerID int64) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Delete(ctx context.Context, id int64) error
}
