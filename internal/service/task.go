package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/taskguard/taskguard/internal/metrics"
	"github.com/taskguard/taskguard/internal/model"
	"github.com/taskguard/taskguard/internal/repository"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 10000
)

// TaskService handles task business logic. Every operation is scoped to the
// requesting owner.
type TaskService struct {
	store   Store
	metrics metrics.Recorder
}

// NewTaskService creates a new TaskService.
func NewTaskService(store Store, recorder metrics.Recorder) *TaskService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &TaskService{store: store, metrics: recorder}
}

// TaskInput carries the mutable fields of a task.
type TaskInput struct {
	Title       string
	Description string
}

// List returns the owner's tasks ordered by id.
func (s *TaskService) List(ctx context.Context, ownerID int64) ([]*model.Task, error) {
	tasks, err := s.store.ListTasksByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Create stores a new task owned by ownerID.
func (s *TaskService) Create(ctx context.Context, ownerID int64, input TaskInput) (*model.Task, error) {
	input, err := validateTaskInput(input)
	if err != nil {
		return nil, err
	}

	task := &model.Task{
		Title:       input.Title,
		Description: input.Description,
		UserID:      ownerID,
	}
	err = s.store.WithTx(ctx, func(q repository.Querier) error {
		return q.CreateTask(ctx, task)
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.metrics.IncTaskCreated()
	return task, nil
}

// Get returns one task of the owner.
func (s *TaskService) Get(ctx context.Context, ownerID, taskID int64) (*model.Task, error) {
	return loadOwnedTask(ctx, s.store, ownerID, taskID)
}

// Update replaces title and description of one of the owner's tasks.
func (s *TaskService) Update(ctx context.Context, ownerID, taskID int64, input TaskInput) (*model.Task, error) {
	input, err := validateTaskInput(input)
	if err != nil {
		return nil, err
	}

	var task *model.Task
	err = s.store.WithTx(ctx, func(q repository.Querier) error {
		owned, err := loadOwnedTask(ctx, q, ownerID, taskID)
		if err != nil {
			return err
		}
		task = owned
		task.Title = input.Title
		task.Description = input.Description
		return mapTaskErr(q.UpdateTaskForOwner(ctx, task))
	})
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.metrics.IncTaskUpdated()
	return task, nil
}

// Delete removes one of the owner's tasks.
func (s *TaskService) Delete(ctx context.Context, ownerID, taskID int64) error {
	err := s.store.WithTx(ctx, func(q repository.Querier) error {
		if _, err := loadOwnedTask(ctx, q, ownerID, taskID); err != nil {
			return err
		}
		return mapTaskErr(q.DeleteTaskForOwner(ctx, taskID, ownerID))
	})
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}

	s.metrics.IncTaskDeleted()
	return nil
}

func validateTaskInput(input TaskInput) (TaskInput, error) {
	if !storableText(input.Title) || !storableText(input.Description) {
		return input, fmt.Errorf("%w: title and description must be valid text", ErrInvalidInput)
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return input, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(input.Title) > maxTitleLength {
		return input, fmt.Errorf("%w: title must be at most %d characters", ErrInvalidInput, maxTitleLength)
	}
	if utf8.RuneCountInString(input.Description) > maxDescriptionLength {
		return input, fmt.Errorf("%w: description must be at most %d characters", ErrInvalidInput, maxDescriptionLength)
	}
	return input, nil
}

func mapTaskErr(err error) error {
	if errors.Is(err, repository.ErrTaskNotFound) {
		return ErrTaskNotFound
	}
	return err
}
