//go:build integration

package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/taskguard/taskguard/internal/model"
	"github.com/taskguard/taskguard/internal/repository"
	"github.com/taskguard/taskguard/internal/testutil"
)

// ============================================================================
// User Repository Integration Tests
// ============================================================================

func TestIntegrationUserRepository_CreateAndGet(t *testing.T) {
	ctx, repo := newTestEnv(t)

	user := testutil.NewTestUser(t, "create@example.com")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("ID should be assigned")
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	byID, err := repo.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if byID.Email != user.Email || byID.PasswordHash != user.PasswordHash {
		t.Errorf("user mismatch: got %+v, want %+v", byID, user)
	}

	byEmail, err := repo.GetUserByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("ID mismatch: got %d, want %d", byEmail.ID, user.ID)
	}
}

func TestIntegrationUserRepository_DuplicateEmail(t *testing.T) {
	ctx, repo := newTestEnv(t)

	if err := repo.CreateUser(ctx, testutil.NewTestUser(t, "dup@example.com")); err != nil {
		t.Fatalf("CreateUser (first) failed: %v", err)
	}

	err := repo.CreateUser(ctx, testutil.NewTestUser(t, "dup@example.com"))
	if !errors.Is(err, repository.ErrEmailExists) {
		t.Errorf("Expected ErrEmailExists, got: %v", err)
	}
}

func TestIntegrationUserRepository_EmailIsCaseSensitive(t *testing.T) {
	ctx, repo := newTestEnv(t)

	if err := repo.CreateUser(ctx, testutil.NewTestUser(t, "Case@example.com")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	_, err := repo.GetUserByEmail(ctx, "case@example.com")
	if !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got: %v", err)
	}
}

func TestIntegrationUserRepository_NotFound(t *testing.T) {
	ctx, repo := newTestEnv(t)

	if _, err := repo.GetUserByID(ctx, 999999); !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("GetUserByID: expected ErrUserNotFound, got: %v", err)
	}
	if _, err := repo.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("GetUserByEmail: expected ErrUserNotFound, got: %v", err)
	}
}

// ============================================================================
// Task Repository Integration Tests
// ============================================================================

func TestIntegrationTaskRepository_CRUD(t *testing.T) {
	ctx, repo := newTestEnv(t)
	owner := createUser(t, ctx, repo, "owner@example.com")

	task := testutil.NewTestTask(t, owner.ID, "t1")
	if err := repo.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if task.ID == 0 || task.CreatedAt.IsZero() || task.UpdatedAt.IsZero() {
		t.Fatalf("CreateTask should fill ID and timestamps: %+v", task)
	}

	got, err := repo.GetTaskForOwner(ctx, task.ID, owner.ID)
	if err != nil {
		t.Fatalf("GetTaskForOwner failed: %v", err)
	}
	if got.Title != "t1" || got.UserID != owner.ID {
		t.Errorf("task mismatch: %+v", got)
	}

	got.Title = "t1 updated"
	got.Description = "changed"
	if err := repo.UpdateTaskForOwner(ctx, got); err != nil {
		t.Fatalf("UpdateTaskForOwner failed: %v", err)
	}

	reloaded, err := repo.GetTaskForOwner(ctx, task.ID, owner.ID)
	if err != nil {
		t.Fatalf("GetTaskForOwner after update failed: %v", err)
	}
	if reloaded.Title != "t1 updated" || reloaded.Description != "changed" {
		t.Errorf("update not persisted: %+v", reloaded)
	}

	if err := repo.DeleteTaskForOwner(ctx, task.ID, owner.ID); err != nil {
		t.Fatalf("DeleteTaskForOwner failed: %v", err)
	}
	if _, err := repo.GetTaskForOwner(ctx, task.ID, owner.ID); !errors.Is(err, repository.ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound after delete, got: %v", err)
	}
}

func TestIntegrationTaskRepository_OwnerPredicate(t *testing.T) {
	ctx, repo := newTestEnv(t)
	alice := createUser(t, ctx, repo, "alice@example.com")
	bob := createUser(t, ctx, repo, "bob@example.com")

	task := testutil.NewTestTask(t, alice.ID, "private")
	if err := repo.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	if _, err := repo.GetTaskForOwner(ctx, task.ID, bob.ID); !errors.Is(err, repository.ErrTaskNotFound) {
		t.Errorf("Get: expected ErrTaskNotFound, got: %v", err)
	}

	forged := *task
	forged.UserID = bob.ID
	forged.Title = "hijacked"
	if err := repo.UpdateTaskForOwner(ctx, &forged); !errors.Is(err, repository.ErrTaskNotFound) {
		t.Errorf("Update: expected ErrTaskNotFound, got: %v", err)
	}

	if err := repo.DeleteTaskForOwner(ctx, task.ID, bob.ID); !errors.Is(err, repository.ErrTaskNotFound) {
		t.Errorf("Delete: expected ErrTaskNotFound, got: %v", err)
	}

	got, err := repo.GetTaskForOwner(ctx, task.ID, alice.ID)
	if err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
	if got.Title != "private" {
		t.Errorf("task was modified by non-owner: %+v", got)
	}
}

func TestIntegrationTaskRepository_ListOrderedAndScoped(t *testing.T) {
	ctx, repo := newTestEnv(t)
	alice := createUser(t, ctx, repo, "alice@example.com")
	bob := createUser(t, ctx, repo, "bob@example.com")

	for _, title := range []string{"a1", "a2", "a3"} {
		if err := repo.CreateTask(ctx, testutil.NewTestTask(t, alice.ID, title)); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}
	if err := repo.CreateTask(ctx, testutil.NewTestTask(t, bob.ID, "b1")); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	tasks, err := repo.ListTasksByOwner(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListTasksByOwner failed: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("Expected 3 tasks, got %d", len(tasks))
	}
	for i := 1; i < len(tasks); i++ {
		if tasks[i-1].ID >= tasks[i].ID {
			t.Errorf("tasks not ordered by id: %d before %d", tasks[i-1].ID, tasks[i].ID)
		}
	}

	empty, err := repo.ListTasksByOwner(ctx, 999999)
	if err != nil {
		t.Fatalf("ListTasksByOwner (unknown) failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", empty)
	}
}

// ============================================================================
// Transaction Tests
// ============================================================================

func TestIntegrationWithTx_CommitAndRollback(t *testing.T) {
	ctx, repo := newTestEnv(t)
	owner := createUser(t, ctx, repo, "tx@example.com")

	errBoom := errors.New("boom")
	err := repo.WithTx(ctx, func(q repository.Querier) error {
		if err := q.CreateTask(ctx, testutil.NewTestTask(t, owner.ID, "rolled back")); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("Expected errBoom, got: %v", err)
	}

	err = repo.WithTx(ctx, func(q repository.Querier) error {
		return q.CreateTask(ctx, testutil.NewTestTask(t, owner.ID, "committed"))
	})
	if err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	tasks, err := repo.ListTasksByOwner(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListTasksByOwner failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "committed" {
		t.Errorf("Expected only the committed task, got %+v", tasks)
	}
}

func TestIntegrationWithTx_PanicRollsBack(t *testing.T) {
	ctx, repo := newTestEnv(t)
	owner := createUser(t, ctx, repo, "panic@example.com")

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_ = repo.WithTx(ctx, func(q repository.Querier) error {
			_ = q.CreateTask(ctx, testutil.NewTestTask(t, owner.ID, "lost"))
			panic("boom")
		})
	}()

	tasks, err := repo.ListTasksByOwner(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListTasksByOwner failed: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("Expected no tasks after panic, got %d", len(tasks))
	}
}

func TestIntegrationCascadeOnUserDelete(t *testing.T) {
	ctx, repo := newTestEnv(t)
	owner := createUser(t, ctx, repo, "cascade@example.com")
	if err := repo.CreateTask(ctx, testutil.NewTestTask(t, owner.ID, "orphan")); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	if _, err := repo.Pool().Exec(ctx, "DELETE FROM users WHERE id = $1", owner.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	var count int
	if err := repo.Pool().QueryRow(ctx, "SELECT COUNT(*) FROM tasks WHERE user_id = $1", owner.ID).Scan(&count); err != nil {
		t.Fatalf("count tasks: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected tasks to cascade, %d remain", count)
	}
}

// ============================================================================
// Helpers
// ============================================================================

func createUser(t *testing.T, ctx context.Context, repo *repository.Repository, email string) *model.User {
	t.Helper()
	user := testutil.NewTestUser(t, email)
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", email, err)
	}
	return user
}

func newTestEnv(t *testing.T) (context.Context, *repository.Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	repo, err := repository.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := repository.Reset(ctx, dbURL); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	return ctx, repo
}
