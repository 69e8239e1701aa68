package sqlite

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/fastygo/volunteers/domain"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), nil)
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	t.Cleanup(func() { Close(db, nil) })
	return db
}

func newVolunteer(name string) *domain.Volunteer {
	return &domain.Volunteer{
		Name:        name,
		Address:     "1 Main St",
		City:        "Tampa",
		State:       "FL",
		ZipCode:     "33601",
		PhoneNumber: "813-555-1234",
	}
}

func newTask(title string) *domain.Task {
	return &domain.Task{
		Title:      title,
		Details:    "details for " + title,
		DateNeeded: domain.NewDate(2020, 4, 27),
		Status:     domain.TaskOpen,
	}
}

func TestTaskCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newTask("Pick up donations - Publix"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected generated id")
	}
	if created.VolunteerID != nil || created.VolunteerName != "" {
		t.Errorf("new task should be unassigned: %+v", created)
	}
	if created.DateNeeded.String() != "2020-04-27" {
		t.Errorf("unexpected date %s", created.DateNeeded)
	}

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != created.Title || got.Status != domain.TaskOpen {
		t.Errorf("unexpected task %+v", got)
	}

	if _, err := repo.GetByID(ctx, created.ID+100); err != domain.ErrTaskNotFound {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestTaskListOrderAndSearch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	for _, title := range []string{"Deliver groceries", "Pick up donations - Publix", "Sort 50% of cans"} {
		if _, err := repo.Create(ctx, newTask(title)); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	tasks, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	for i := 1; i < len(tasks); i++ {
		if tasks[i-1].ID >= tasks[i].ID {
			t.Fatalf("tasks not ordered by id: %+v", tasks)
		}
	}

	found, err := repo.Search(ctx, "PUBLIX")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 1 || found[0].Title != "Pick up donations - Publix" {
		t.Errorf("unexpected search result %+v", found)
	}

	found, _ = repo.Search(ctx, "%")
	if len(found) != 1 {
		t.Errorf("percent sign should match literally, got %d results", len(found))
	}

	all, _ := repo.Search(ctx, "")
	if len(all) != 3 {
		t.Errorf("empty term should match everything, got %d", len(all))
	}
}

func TestTaskAssignmentAndUpdate(t *testing.T) {
	db := setupTestDB(t)
	tasks := NewTaskRepository(db)
	volunteers := NewVolunteerRepository(db)
	ctx := context.Background()

	vol, err := volunteers.Create(ctx, newVolunteer("Jane Doe"))
	if err != nil {
		t.Fatalf("create volunteer: %v", err)
	}
	task, err := tasks.Create(ctx, newTask("Deliver groceries"))
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	task.VolunteerID = &vol.ID
	task.Status = domain.TaskFilled
	updated, err := tasks.Update(ctx, task)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.VolunteerName != "Jane Doe" || updated.Status != domain.TaskFilled {
		t.Errorf("unexpected updated task %+v", updated)
	}

	withTasks, err := volunteers.GetByID(ctx, vol.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(withTasks.Tasks) != 1 || withTasks.Tasks[0].ID != task.ID {
		t.Errorf("volunteer should list its task: %+v", withTasks.Tasks)
	}

	updated.VolunteerID = nil
	cleared, err := tasks.Update(ctx, updated)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if cleared.VolunteerID != nil || cleared.VolunteerName != "" {
		t.Errorf("expected unassigned task, got %+v", cleared)
	}

	missing := *task
	missing.ID = 9999
	if _, err := tasks.Update(ctx, &missing); err != domain.ErrTaskNotFound {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestDeletesDoNotCascade(t *testing.T) {
	db := setupTestDB(t)
	tasks := NewTaskRepository(db)
	volunteers := NewVolunteerRepository(db)
	ctx := context.Background()

	vol, _ := volunteers.Create(ctx, newVolunteer("Jane Doe"))
	first := newTask("Deliver groceries")
	first.VolunteerID = &vol.ID
	first, err := tasks.Create(ctx, first)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	second := newTask("Sort cans")
	second.VolunteerID = &vol.ID
	second, err = tasks.Create(ctx, second)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if err := tasks.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if ok, _ := volunteers.Exists(ctx, vol.ID); !ok {
		t.Fatal("deleting a task must keep its volunteer")
	}

	if err := volunteers.Delete(ctx, vol.ID); err != nil {
		t.Fatalf("delete volunteer: %v", err)
	}
	remaining, err := tasks.GetByID(ctx, second.ID)
	if err != nil {
		t.Fatalf("deleting a volunteer must keep its tasks: %v", err)
	}
	if remaining.VolunteerID != nil {
		t.Errorf("expected task to be unassigned, got volunteer %d", *remaining.VolunteerID)
	}

	if err := volunteers.Delete(ctx, vol.ID); err != domain.ErrVolunteerNotFound {
		t.Errorf("expected ErrVolunteerNotFound, got %v", err)
	}
	if err := tasks.Delete(ctx, first.ID); err != domain.ErrTaskNotFound {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestVolunteerListAndSearch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVolunteerRepository(db)
	ctx := context.Background()

	for _, name := range []string{"Zoe Adams", "alice Brown", "Mark Young"} {
		if _, err := repo.Create(ctx, newVolunteer(name)); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	// SQLite orders by byte value, so upper case names sort first.
	if len(list) != 3 || list[0].Name != "Mark Young" || list[2].Name != "alice Brown" {
		t.Errorf("unexpected order %+v", list)
	}

	found, err := repo.Search(ctx, "ALICE")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 1 || found[0].Name != "alice Brown" {
		t.Errorf("unexpected search result %+v", found)
	}
	if found[0].Tasks == nil {
		t.Error("tasks should be an empty list, not nil")
	}
}

func TestVolunteerUpdate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVolunteerRepository(db)
	ctx := context.Background()

	vol, err := repo.Create(ctx, newVolunteer("Jane Doe"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	vol.ZipCode = "12345-1234"
	updated, err := repo.Update(ctx, vol)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ZipCode != "12345-1234" || updated.Name != "Jane Doe" {
		t.Errorf("unexpected volunteer %+v", updated)
	}

	if _, err := repo.GetByID(ctx, 4242); err != domain.ErrVolunteerNotFound {
		t.Errorf("expected ErrVolunteerNotFound, got %v", err)
	}
}
