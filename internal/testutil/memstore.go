package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/taskguard/taskguard/internal/model"
	"github.com/taskguard/taskguard/internal/repository"
)

// MemStore is an in-memory stand-in for repository.Repository.
// It mirrors the repository's error contract and owner predicates.
// Transactions are serialized and work on a copy that replaces the live
// data only when fn returns nil.
type MemStore struct {
	txMu sync.Mutex

	mu   sync.Mutex
	data *memData
	err  error
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{data: newMemData()}
}

// SetError makes every subsequent operation fail with err. Pass nil to reset.
func (s *MemStore) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// DeleteUser removes a user and cascades to their tasks.
func (s *MemStore) DeleteUser(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.users, id)
	for taskID, task := range s.data.tasks {
		if task.UserID == id {
			delete(s.data.tasks, taskID)
		}
	}
}

// TaskCount returns the number of stored tasks across all users.
func (s *MemStore) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.tasks)
}

// WithTx runs fn against a snapshot and commits it if fn returns nil.
func (s *MemStore) WithTx(_ context.Context, fn func(q repository.Querier) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return err
	}
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(&memQuerier{data: snapshot}); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = snapshot
	s.mu.Unlock()
	return nil
}

func (s *MemStore) do(fn func(q *memQuerier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	return fn(&memQuerier{data: s.data})
}

func (s *MemStore) CreateUser(ctx context.Context, user *model.User) error {
	return s.do(func(q *memQuerier) error { return q.CreateUser(ctx, user) })
}

func (s *MemStore) GetUserByID(ctx context.Context, id int64) (user *model.User, err error) {
	err = s.do(func(q *memQuerier) error {
		user, err = q.GetUserByID(ctx, id)
		return err
	})
	return user, err
}

func (s *MemStore) GetUserByEmail(ctx context.Context, email string) (user *model.User, err error) {
	err = s.do(func(q *memQuerier) error {
		user, err = q.GetUserByEmail(ctx, email)
		return err
	})
	return user, err
}

func (s *MemStore) CreateTask(ctx context.Context, task *model.Task) error {
	return s.do(func(q *memQuerier) error { return q.CreateTask(ctx, task) })
}

func (s *MemStore) ListTasksByOwner(ctx context.Context, ownerID int64) (tasks []*model.Task, err error) {
	err = s.do(func(q *memQuerier) error {
		tasks, err = q.ListTasksByOwner(ctx, ownerID)
		return err
	})
	return tasks, err
}

func (s *MemStore) GetTaskForOwner(ctx context.Context, id, ownerID int64) (task *model.Task, err error) {
	err = s.do(func(q *memQuerier) error {
		task, err = q.GetTaskForOwner(ctx, id, ownerID)
		return err
	})
	return task, err
}

func (s *MemStore) UpdateTaskForOwner(ctx context.Context, task *model.Task) error {
	return s.do(func(q *memQuerier) error { return q.UpdateTaskForOwner(ctx, task) })
}

func (s *MemStore) DeleteTaskForOwner(ctx context.Context, id, ownerID int64) error {
	return s.do(func(q *memQuerier) error { return q.DeleteTaskForOwner(ctx, id, ownerID) })
}

var _ repository.Querier = (*MemStore)(nil)

type memData struct {
	users      map[int64]model.User
	tasks      map[int64]model.Task
	nextUserID int64
	nextTaskID int64
}

func newMemData() *memData {
	return &memData{
		users: make(map[int64]model.User),
		tasks: make(map[int64]model.Task),
	}
}

func (d *memData) clone() *memData {
	c := &memData{
		users:      make(map[int64]model.User, len(d.users)),
		tasks:      make(map[int64]model.Task, len(d.tasks)),
		nextUserID: d.nextUserID,
		nextTaskID: d.nextTaskID,
	}
	for id, u := range d.users {
		c.users[id] = u
	}
	for id, t := range d.tasks {
		c.tasks[id] = t
	}
	return c
}

// memQuerier operates on one memData without locking.
type memQuerier struct {
	data *memData
}

func (q *memQuerier) CreateUser(_ context.Context, user *model.User) error {
	for _, existing := range q.data.users {
		if existing.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	q.data.nextUserID++
	user.ID = q.data.nextUserID
	user.CreatedAt = time.Now().UTC()
	q.data.users[user.ID] = *user
	return nil
}

func (q *memQuerier) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	user, ok := q.data.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &user, nil
}

func (q *memQuerier) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, user := range q.data.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (q *memQuerier) CreateTask(_ context.Context, task *model.Task) error {
	if _, ok := q.data.users[task.UserID]; !ok {
		return errForeignKey
	}
	now := time.Now().UTC()
	q.data.nextTaskID++
	task.ID = q.data.nextTaskID
	task.CreatedAt = now
	task.UpdatedAt = now
	q.data.tasks[task.ID] = *task
	return nil
}

func (q *memQuerier) ListTasksByOwner(_ context.Context, ownerID int64) ([]*model.Task, error) {
	tasks := make([]*model.Task, 0)
	for _, task := range q.data.tasks {
		if task.UserID == ownerID {
			t := task
			tasks = append(tasks, &t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (q *memQuerier) GetTaskForOwner(_ context.Context, id, ownerID int64) (*model.Task, error) {
	task, ok := q.data.tasks[id]
	if !ok || task.UserID != ownerID {
		return nil, repository.ErrTaskNotFound
	}
	return &task, nil
}

func (q *memQuerier) UpdateTaskForOwner(_ context.Context, task *model.Task) error {
	stored, ok := q.data.tasks[task.ID]
	if !ok || stored.UserID != task.UserID {
		return repository.ErrTaskNotFound
	}
	stored.Title = task.Title
	stored.Description = task.Description
	stored.UpdatedAt = time.Now().UTC()
	q.data.tasks[task.ID] = stored
	task.UpdatedAt = stored.UpdatedAt
	return nil
}

func (q *memQuerier) DeleteTaskForOwner(_ context.Context, id, ownerID int64) error {
	task, ok := q.data.tasks[id]
	if !ok || task.UserID != ownerID {
		return repository.ErrTaskNotFound
	}
	delete(q.data.tasks, id)
	return nil
}

type memError string

func (e memError) Error() string { return string(e) }

const errForeignKey = memError("tasks_user_id_fkey violation")
