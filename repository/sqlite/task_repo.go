package sqlite

import (
	"context"

	"gorm.io/gorm"

	"github.com/fastygo/volunteers/domain"
	"github.com/fastygo/volunteers/repository"
)

// taskView is a task row joined with its volunteer's name.
type taskView struct {
	ID            int64
	Title         string
	Details       string
	DateNeeded    string
	Status        string
	VolunteerID   *int64
	VolunteerName string
}

type TaskRepository struct {
	db *gorm.DB
}

var _ repository.TaskRepository = (*TaskRepository)(nil)

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("task AS t").
		Select("t.id, t.title, t.details, t.date_needed, t.status, t.volunteer_id, COALESCE(v.name, '') AS volunteer_name").
		Joins("LEFT JOIN volunteer v ON v.id = t.volunteer_id")
}

func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	var views []taskView
	if err := r.joined(ctx).Where("t.id = ?", id).Limit(1).Scan(&views).Error; err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, domain.ErrTaskNotFound
	}
	tasks, err := toTasks(views)
	if err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

func (r *TaskRepository) List(ctx context.Context) ([]domain.Task, error) {
	return r.find(r.joined(ctx).Order("t.id"))
}

func (r *TaskRepository) Search(ctx context.Context, term string) ([]domain.Task, error) {
	return r.find(r.joined(ctx).
		Where(`LOWER(t.title) LIKE ? ESCAPE '\'`, likePattern(term)).
		Order("t.id"))
}

func (r *TaskRepository) ListByVolunteer(ctx context.Context, volunteerID int64) ([]domain.Task, error) {
	return r.find(r.joined(ctx).Where("t.volunteer_id = ?", volunteerID).Order("t.id"))
}

func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	row := taskRow{
		Title:       task.Title,
		Details:     task.Details,
		DateNeeded:  task.DateNeeded.String(),
		Status:      string(task.Status),
		VolunteerID: task.VolunteerID,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, row.ID)
}

func (r *TaskRepository) Update(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	res := r.db.WithContext(ctx).Model(&taskRow{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"title":        task.Title,
			"details":      task.Details,
			"date_needed":  task.DateNeeded.String(),
			"status":       string(task.Status),
			"volunteer_id": task.VolunteerID,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrTaskNotFound
	}
	return r.GetByID(ctx, task.ID)
}

func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&taskRow{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) find(query *gorm.DB) ([]domain.Task, error) {
	var views []taskView
	if err := query.Scan(&views).Error; err != nil {
		return nil, err
	}
	return toTasks(views)
}

func toTasks(views []taskView) ([]domain.Task, error) {
	tasks := make([]domain.Task, 0, len(views))
	for _, v := range views {
		var due domain.Date
		if err := due.Scan(v.DateNeeded); err != nil {
			return nil, err
		}
		tasks = append(tasks, domain.Task{
			ID:            v.ID,
			Title:         v.Title,
			Details:       v.Details,
			DateNeeded:    due,
			Status:        domain.TaskStatus(v.Status),
			VolunteerID:   v.VolunteerID,
			VolunteerName: v.VolunteerName,
		})
	}
	return tasks, nil
}
