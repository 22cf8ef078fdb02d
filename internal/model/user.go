package model

import "time"

// User stores Telegram user metadata and XP progress.
type User struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string
	XP         int `gorm:"default:0"`
	Completed  int `gorm:"default:0"`
	// XPBucketDate is the bot-local calendar day (YYYY-MM-DD) XPBucketUsed belongs to.
	XPBucketDate string
	XPBucketUsed int `gorm:"default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName prefers @username, then the first name.
func (u User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.FirstName
}
