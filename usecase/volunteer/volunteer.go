package volunteer

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/fastygo/volunteers/domain"
	"github.com/fastygo/volunteers/repository"
)

type UseCase struct {
	volunteers repository.VolunteerRepository
	logger     *zap.Logger
}

func New(volunteers repository.VolunteerRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{volunteers: volunteers, logger: logger}
}

// ListVolunteers returns every volunteer ordered by name. Unlike tasks an
// empty list is not an error.
func (uc *UseCase) ListVolunteers(ctx context.Context) ([]domain.Volunteer, error) {
	volunteers, err := uc.volunteers.List(ctx)
	if err != nil {
		return nil, readFailure(err)
	}
	return volunteers, nil
}

func (uc *UseCase) SearchVolunteers(ctx context.Context, term string) ([]domain.Volunteer, error) {
	volunteers, err := uc.volunteers.Search(ctx, term)
	if err != nil {
		return nil, readFailure(err)
	}
	return volunteers, nil
}

func (uc *UseCase) GetVolunteer(ctx context.Context, id int64) (*domain.Volunteer, error) {
	volunteer, err := uc.volunteers.GetByID(ctx, id)
	if err != nil {
		return nil, readFailure(err)
	}
	return volunteer, nil
}

func (uc *UseCase) CreateVolunteer(ctx context.Context, patch domain.VolunteerPatch) (*domain.Volunteer, error) {
	if patch.Empty() {
		return nil, domain.ErrEmptyBody
	}
	required := []struct {
		name  string
		value *string
	}{
		{"name", patch.Name},
		{"address", patch.Address},
		{"city", patch.City},
		{"state", patch.State},
		{"zip_code", patch.ZipCode},
		{"phone_number", patch.PhoneNumber},
	}
	for _, field := range required {
		if field.value == nil || *field.value == "" {
			return nil, domain.MissingField(field.name)
		}
	}

	volunteer := &domain.Volunteer{}
	patch.Apply(volunteer)
	if err := volunteer.Validate(); err != nil {
		return nil, err
	}

	created, err := uc.volunteers.Create(ctx, volunteer)
	if err != nil {
		return nil, uc.writeFailure("create", err)
	}
	return created, nil
}

// UpdateVolunteer overlays the supplied fields. An empty patch is rejected
// before the volunteer is looked up.
func (uc *UseCase) UpdateVolunteer(ctx context.Context, id int64, patch domain.VolunteerPatch) (*domain.Volunteer, error) {
	if patch.Empty() {
		return nil, domain.ErrEmptyBody
	}

	volunteer, err := uc.volunteers.GetByID(ctx, id)
	if err != nil {
		return nil, readFailure(err)
	}

	patch.Apply(volunteer)
	if err := volunteer.Validate(); err != nil {
		return nil, err
	}

	updated, err := uc.volunteers.Update(ctx, volunteer)
	if err != nil {
		return nil, uc.writeFailure("update", err)
	}
	return updated, nil
}

// DeleteVolunteer removes the volunteer. Its tasks are kept and unassigned.
func (uc *UseCase) DeleteVolunteer(ctx context.Context, id int64) (int64, error) {
	exists, err := uc.volunteers.Exists(ctx, id)
	if err != nil {
		return 0, readFailure(err)
	}
	if !exists {
		return 0, domain.ErrVolunteerNotFound
	}
	if err := uc.volunteers.Delete(ctx, id); err != nil {
		return 0, uc.writeFailure("delete", err)
	}
	return id, nil
}

func readFailure(err error) error {
	var dErr *domain.Error
	if errors.As(err, &dErr) {
		return err
	}
	return domain.WrapError(domain.ErrCodeInternal, "could not read volunteers", err)
}

func (uc *UseCase) writeFailure(op string, err error) error {
	if domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return err
	}
	uc.logger.Error("volunteer write failed", zap.String("operation", op), zap.Error(err))
	return domain.WrapError(domain.ErrCodeUnprocessable, "could not "+op+" volunteer", err)
}
