package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/volunteers/domain"
	"github.com/fastygo/volunteers/repository"
)

const taskColumns = `
	SELECT t.id, t.title, t.details, t.date_needed, t.status, t.volunteer_id, COALESCE(v.name, '')
	FROM task t
	LEFT JOIN volunteer v ON v.id = t.volunteer_id
`

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	row := r.pool.QueryRow(ctx, taskColumns+`WHERE t.id = $1`, id)
	task, err := scanTask(row)
	if err != nil {
		return nil, notFound(err, domain.ErrTaskNotFound)
	}
	return task, nil
}

func (r *taskRepository) List(ctx context.Context) ([]domain.Task, error) {
	return r.query(ctx, taskColumns+`ORDER BY t.id`)
}

func (r *taskRepository) Search(ctx context.Context, term string) ([]domain.Task, error) {
	return r.query(ctx, taskColumns+`WHERE t.title ILIKE $1 ORDER BY t.id`, likePattern(term))
}

func (r *taskRepository) ListByVolunteer(ctx context.Context, volunteerID int64) ([]domain.Task, error) {
	return r.query(ctx, taskColumns+`WHERE t.volunteer_id = $1 ORDER BY t.id`, volunteerID)
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO task (title, details, date_needed, status, volunteer_id)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id
	`
	if err := r.pool.QueryRow(ctx, query,
		task.Title,
		task.Details,
		calendarDay(task.DateNeeded),
		string(task.Status),
		nullableID(task.VolunteerID),
	).Scan(&task.ID); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, task.ID)
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}

	const query = `
	UPDATE task
	SET title = $2,
		details = $3,
		date_needed = $4,
		status = $5,
		volunteer_id = $6
	WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		task.ID,
		task.Title,
		task.Details,
		calendarDay(task.DateNeeded),
		string(task.Status),
		nullableID(task.VolunteerID),
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrTaskNotFound
	}

	return r.GetByID(ctx, task.ID)
}

func (r *taskRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM task WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) query(ctx context.Context, query string, args ...interface{}) ([]domain.Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func collectTasks(rows pgx.Rows) ([]domain.Task, error) {
	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func scanTask(row scanner) (*domain.Task, error) {
	var (
		task   domain.Task
		due    time.Time
		status string
	)
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Details,
		&due,
		&status,
		&task.VolunteerID,
		&task.VolunteerName,
	); err != nil {
		return nil, err
	}
	task.DateNeeded = domain.NewDate(due.Year(), due.Month(), due.Day())
	task.Status = domain.TaskStatus(status)
	return &task, nil
}
