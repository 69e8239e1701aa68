package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/volunteers/domain"
	"github.com/fastygo/volunteers/repository"
)

const volunteerColumns = `
	SELECT id, name, address, city, state, zip_code, phone_number
	FROM volunteer
`

type volunteerRepository struct {
	pool  *pgxpool.Pool
	tasks *taskRepository
}

// NewVolunteerRepository returns a Postgres-backed implementation of VolunteerRepository.
func NewVolunteerRepository(pool *pgxpool.Pool) repository.VolunteerRepository {
	return &volunteerRepository{pool: pool, tasks: &taskRepository{pool: pool}}
}

func (r *volunteerRepository) GetByID(ctx context.Context, id int64) (*domain.Volunteer, error) {
	row := r.pool.QueryRow(ctx, volunteerColumns+`WHERE id = $1`, id)
	volunteer, err := scanVolunteer(row)
	if err != nil {
		return nil, notFound(err, domain.ErrVolunteerNotFound)
	}

	volunteer.Tasks, err = r.tasks.ListByVolunteer(ctx, id)
	if err != nil {
		return nil, err
	}
	return volunteer, nil
}

func (r *volunteerRepository) List(ctx context.Context) ([]domain.Volunteer, error) {
	volunteers, err := r.query(ctx, volunteerColumns+`ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	return r.withTasks(ctx, volunteers)
}

func (r *volunteerRepository) Search(ctx context.Context, term string) ([]domain.Volunteer, error) {
	volunteers, err := r.query(ctx, volunteerColumns+`WHERE name ILIKE $1 ORDER BY name, id`, likePattern(term))
	if err != nil {
		return nil, err
	}
	return r.withTasks(ctx, volunteers)
}

// withTasks loads the tasks of all volunteers in one query.
func (r *volunteerRepository) withTasks(ctx context.Context, volunteers []domain.Volunteer) ([]domain.Volunteer, error) {
	if len(volunteers) == 0 {
		return volunteers, nil
	}
	ids := make([]int64, len(volunteers))
	for i, v := range volunteers {
		ids[i] = v.ID
	}
	tasks, err := r.tasks.query(ctx, taskColumns+`WHERE t.volunteer_id = ANY($1) ORDER BY t.id`, ids)
	if err != nil {
		return nil, err
	}
	domain.AttachTasks(volunteers, tasks)
	return volunteers, nil
}

func (r *volunteerRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM volunteer WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *volunteerRepository) Create(ctx context.Context, volunteer *domain.Volunteer) (*domain.Volunteer, error) {
	if volunteer == nil {
		return nil, domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO volunteer (name, address, city, state, zip_code, phone_number)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id
	`
	if err := r.pool.QueryRow(ctx, query,
		volunteer.Name,
		volunteer.Address,
		volunteer.City,
		volunteer.State,
		volunteer.ZipCode,
		volunteer.PhoneNumber,
	).Scan(&volunteer.ID); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, volunteer.ID)
}

func (r *volunteerRepository) Update(ctx context.Context, volunteer *domain.Volunteer) (*domain.Volunteer, error) {
	if volunteer == nil {
		return nil, domain.ErrInvalidPayload
	}

	const query = `
	UPDATE volunteer
	SET name = $2,
		address = $3,
		city = $4,
		state = $5,
		zip_code = $6,
		phone_number = $7
	WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		volunteer.ID,
		volunteer.Name,
		volunteer.Address,
		volunteer.City,
		volunteer.State,
		volunteer.ZipCode,
		volunteer.PhoneNumber,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrVolunteerNotFound
	}

	return r.GetByID(ctx, volunteer.ID)
}

// Delete relies on the ON DELETE SET NULL foreign key to unassign tasks.
func (r *volunteerRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM volunteer WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVolunteerNotFound
	}
	return nil
}

func (r *volunteerRepository) query(ctx context.Context, query string, args ...interface{}) ([]domain.Volunteer, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	volunteers := []domain.Volunteer{}
	for rows.Next() {
		volunteer, err := scanVolunteer(rows)
		if err != nil {
			return nil, err
		}
		volunteers = append(volunteers, *volunteer)
	}
	return volunteers, rows.Err()
}

func scanVolunteer(row scanner) (*domain.Volunteer, error) {
	volunteer := domain.Volunteer{Tasks: []domain.Task{}}
	if err := row.Scan(
		&volunteer.ID,
		&volunteer.Name,
		&volunteer.Address,
		&volunteer.City,
		&volunteer.State,
		&volunteer.ZipCode,
		&volunteer.PhoneNumber,
	); err != nil {
		return nil, err
	}
	return &volunteer, nil
}
