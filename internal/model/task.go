package model

import "time"

const (
	StatusPending = "pending"
	StatusDone    = "done"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Reminder stages. A stage only moves forward while the deadline is unchanged;
// any deadline edit puts the task back to StageNone.
const (
	StageNone      = 0
	StageLongSent  = 1 // "1h to go" delivered
	StageShortSent = 2 // "10m left" delivered
)

// Task represents a single item in the planner.
type Task struct {
	ID     uint `gorm:"primaryKey"`
	UserID uint `gorm:"index:idx_tasks_user_status"`
	User   User `gorm:"foreignKey:UserID"`
	Text   string
	// Deadline is bot-local wall time in deadline.StorageLayout; nil means no deadline.
	Deadline      *string `gorm:"index"`
	ReminderStage int     `gorm:"default:0"`
	Status        string  `gorm:"default:pending;index:idx_tasks_user_status"`
	Priority      string  `gorm:"default:medium"`
	Tags          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (t Task) IsPending() bool {
	return t.Status == "" || t.Status == StatusPending
}
