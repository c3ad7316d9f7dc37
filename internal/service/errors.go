// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"

	"github.com/taskguard/taskguard/internal/repository"
)

// Service errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrTaskNotFound       = errors.New("task not found")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidInput       = errors.New("invalid input")
)

// Store is the persistence the services need: single-statement reads plus
// transactional writes.
type Store interface {
	repository.Querier
	WithTx(ctx context.Context, fn func(q repository.Querier) error) error
}

var _ Store = (*repository.Repository)(nil)
