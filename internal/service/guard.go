package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskguard/taskguard/internal/model"
	"github.com/taskguard/taskguard/internal/repository"
)

// loadOwnedTask returns the task only when ownerID owns it. A task owned by
// someone else and a task that does not exist are reported the same way,
// as ErrTaskNotFound.
func loadOwnedTask(ctx context.Context, q repository.Querier, ownerID, taskID int64) (*model.Task, error) {
	if ownerID <= 0 || taskID <= 0 {
		return nil, ErrTaskNotFound
	}

	task, err := q.GetTaskForOwner(ctx, taskID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("load task: %w", err)
	}

	if !task.OwnedBy(ownerID) {
		return nil, ErrTaskNotFound
	}

	return task, nil
}
