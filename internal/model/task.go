package model

import "time"

// Task is a unit of work owned by exactly one user.
// UserID is fixed at creation; only Title and Description change afterwards.
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OwnedBy reports whether the task belongs to the given user.
func (t *Task) OwnedBy(userID int64) bool {
	return t != nil && t.UserID == userID
}
