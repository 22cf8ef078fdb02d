package model

import "time"

// SessionState is where a user is in a multi-message dialog.
type SessionState string

const (
	SessionIdle             SessionState = "idle"
	SessionAddingTasks      SessionState = "adding_tasks"
	SessionAwaitingDeadline SessionState = "awaiting_deadline"
)

// Session is the persisted dialog state of one user.
type Session struct {
	UserID    uint `gorm:"primaryKey;autoIncrement:false"`
	State     SessionState
	Scope     string // deadline scope while adding tasks
	TaskIDs   string // comma-separated task ids while awaiting a deadline
	UpdatedAt time.Time
}
