package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taskguard/taskguard/internal/model"
)

// DBTX is the subset of pgx used by Queries.
// Both *pgxpool.Pool and pgx.Tx satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Querier is the persistence surface used by the services.
// Task methods that take an owner id apply it in the WHERE clause.
type Querier interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	CreateTask(ctx context.Context, task *model.Task) error
	ListTasksByOwner(ctx context.Context, ownerID int64) ([]*model.Task, error)
	GetTaskForOwner(ctx context.Context, id, ownerID int64) (*model.Task, error)
	UpdateTaskForOwner(ctx context.Context, task *model.Task) error
	DeleteTaskForOwner(ctx context.Context, id, ownerID int64) error
}

// Queries implements Querier on top of a DBTX.
type Queries struct {
	db DBTX
}

// NewQueries binds Queries to a pool or a transaction.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

var _ Querier = (*Queries)(nil)
