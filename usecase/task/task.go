package task

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/fastygo/volunteers/domain"
	"github.com/fastygo/volunteers/repository"
)

type UseCase struct {
	tasks      repository.TaskRepository
	volunteers repository.VolunteerRepository
	logger     *zap.Logger
}

func New(tasks repository.TaskRepository, volunteers repository.VolunteerRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:      tasks,
		volunteers: volunteers,
		logger:     logger,
	}
}

// ListTasks returns every task ordered by id. An empty table is reported
// as domain.ErrNoTasks.
func (uc *UseCase) ListTasks(ctx context.Context) ([]domain.Task, error) {
	tasks, err := uc.tasks.List(ctx)
	if err != nil {
		return nil, readFailure(err)
	}
	if len(tasks) == 0 {
		return nil, domain.ErrNoTasks
	}
	return tasks, nil
}

func (uc *UseCase) SearchTasks(ctx context.Context, term string) ([]domain.Task, error) {
	tasks, err := uc.tasks.Search(ctx, term)
	if err != nil {
		return nil, readFailure(err)
	}
	return tasks, nil
}

func (uc *UseCase) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, readFailure(err)
	}
	return task, nil
}

// CreateTask requires title, details and date_needed. Status defaults to Open.
func (uc *UseCase) CreateTask(ctx context.Context, patch domain.TaskPatch) (*domain.Task, error) {
	if patch.Empty() {
		return nil, domain.ErrEmptyBody
	}
	switch {
	case patch.Title == nil || *patch.Title == "":
		return nil, domain.MissingField("title")
	case patch.Details == nil || *patch.Details == "":
		return nil, domain.MissingField("details")
	case patch.DateNeeded == nil:
		return nil, domain.MissingField("date_needed")
	}

	task := &domain.Task{Status: domain.TaskOpen}
	patch.Apply(task)
	if err := uc.validate(ctx, task, patch); err != nil {
		return nil, err
	}

	created, err := uc.tasks.Create(ctx, task)
	if err != nil {
		return nil, writeFailure(uc.logger, "create", err)
	}
	return created, nil
}

// UpdateTask overlays the supplied fields onto the stored task. An empty
// patch is rejected before the task is looked up.
func (uc *UseCase) UpdateTask(ctx context.Context, id int64, patch domain.TaskPatch) (*domain.Task, error) {
	if patch.Empty() {
		return nil, domain.ErrEmptyBody
	}

	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, readFailure(err)
	}

	patch.Apply(task)
	if err := uc.validate(ctx, task, patch); err != nil {
		return nil, err
	}

	updated, err := uc.tasks.Update(ctx, task)
	if err != nil {
		return nil, writeFailure(uc.logger, "update", err)
	}
	return updated, nil
}

func (uc *UseCase) DeleteTask(ctx context.Context, id int64) (int64, error) {
	if _, err := uc.tasks.GetByID(ctx, id); err != nil {
		return 0, readFailure(err)
	}
	if err := uc.tasks.Delete(ctx, id); err != nil {
		return 0, writeFailure(uc.logger, "delete", err)
	}
	return id, nil
}

func (uc *UseCase) validate(ctx context.Context, task *domain.Task, patch domain.TaskPatch) error {
	if err := task.Validate(); err != nil {
		return err
	}
	if !patch.VolunteerSet || patch.VolunteerID == nil {
		return nil
	}
	exists, err := uc.volunteers.Exists(ctx, *patch.VolunteerID)
	if err != nil {
		return readFailure(err)
	}
	if !exists {
		return domain.InvalidField("volunteer_id", "does not reference a volunteer")
	}
	return nil
}

// readFailure keeps domain errors and classifies anything else as internal.
func readFailure(err error) error {
	var dErr *domain.Error
	if errors.As(err, &dErr) {
		return err
	}
	return domain.WrapError(domain.ErrCodeInternal, "could not read tasks", err)
}

// writeFailure keeps not-found errors and classifies other persistence
// failures as unprocessable.
func writeFailure(logger *zap.Logger, op string, err error) error {
	if domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return err
	}
	logger.Error("task write failed", zap.String("operation", op), zap.Error(err))
	return domain.WrapError(domain.ErrCodeUnprocessable, "could not "+op+" task", err)
}
