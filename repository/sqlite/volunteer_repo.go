package sqlite

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/fastygo/volunteers/domain"
	"github.com/fastygo/volunteers/repository"
)

type VolunteerRepository struct {
	db    *gorm.DB
	tasks *TaskRepository
}

var _ repository.VolunteerRepository = (*VolunteerRepository)(nil)

func NewVolunteerRepository(db *gorm.DB) *VolunteerRepository {
	return &VolunteerRepository{db: db, tasks: NewTaskRepository(db)}
}

func (r *VolunteerRepository) GetByID(ctx context.Context, id int64) (*domain.Volunteer, error) {
	var row volunteerRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrVolunteerNotFound
		}
		return nil, err
	}

	volunteer := toVolunteer(row)
	tasks, err := r.tasks.ListByVolunteer(ctx, id)
	if err != nil {
		return nil, err
	}
	volunteer.Tasks = tasks
	return &volunteer, nil
}

func (r *VolunteerRepository) List(ctx context.Context) ([]domain.Volunteer, error) {
	return r.find(ctx, r.db.WithContext(ctx).Order("name, id"))
}

func (r *VolunteerRepository) Search(ctx context.Context, term string) ([]domain.Volunteer, error) {
	return r.find(ctx, r.db.WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\'`, likePattern(term)).
		Order("name, id"))
}

func (r *VolunteerRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&volunteerRow{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *VolunteerRepository) Create(ctx context.Context, volunteer *domain.Volunteer) (*domain.Volunteer, error) {
	if volunteer == nil {
		return nil, domain.ErrInvalidPayload
	}
	row := fromVolunteer(volunteer)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, row.ID)
}

func (r *VolunteerRepository) Update(ctx context.Context, volunteer *domain.Volunteer) (*domain.Volunteer, error) {
	if volunteer == nil {
		return nil, domain.ErrInvalidPayload
	}
	res := r.db.WithContext(ctx).Model(&volunteerRow{}).
		Where("id = ?", volunteer.ID).
		Updates(map[string]interface{}{
			"name":         volunteer.Name,
			"address":      volunteer.Address,
			"city":         volunteer.City,
			"state":        volunteer.State,
			"zip_code":     volunteer.ZipCode,
			"phone_number": volunteer.PhoneNumber,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrVolunteerNotFound
	}
	return r.GetByID(ctx, volunteer.ID)
}

// Delete unassigns the volunteer's tasks and removes the volunteer in one transaction.
func (r *VolunteerRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&taskRow{}).
			Where("volunteer_id = ?", id).
			Update("volunteer_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&volunteerRow{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrVolunteerNotFound
		}
		return nil
	})
}

// find runs query and loads the tasks of all matched volunteers in one more query.
func (r *VolunteerRepository) find(ctx context.Context, query *gorm.DB) ([]domain.Volunteer, error) {
	var rows []volunteerRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	volunteers := make([]domain.Volunteer, 0, len(rows))
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		volunteers = append(volunteers, toVolunteer(row))
		ids = append(ids, row.ID)
	}
	if len(ids) == 0 {
		return volunteers, nil
	}

	tasks, err := r.tasks.find(r.tasks.joined(ctx).
		Where("t.volunteer_id IN ?", ids).
		Order("t.id"))
	if err != nil {
		return nil, err
	}
	domain.AttachTasks(volunteers, tasks)
	return volunteers, nil
}

func toVolunteer(row volunteerRow) domain.Volunteer {
	return domain.Volunteer{
		ID:          row.ID,
		Name:        row.Name,
		Address:     row.Address,
		City:        row.City,
		State:       row.State,
		ZipCode:     row.ZipCode,
		PhoneNumber: row.PhoneNumber,
		Tasks:       []domain.Task{},
	}
}

func fromVolunteer(v *domain.Volunteer) volunteerRow {
	return volunteerRow{
		Name:        v.Name,
		Address:     v.Address,
		City:        v.City,
		State:       v.State,
		ZipCode:     v.ZipCode,
		PhoneNumber: v.PhoneNumber,
	}
}
