package models

import "time"

// Session is a workshop theme shown to parents and students. At most one
// session should be active at a time; activation is a two-step
// deactivate-all-then-activate write and is not atomic.
type Session struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	ImageURL    string    `gorm:"type:text" json:"imageUrl"`
	IsActive    bool      `gorm:"not null;default:false" json:"isActive"`
	EndTime     int64     `gorm:"not null" json:"endTime"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DefaultSession is the fallback shown when no session is active.
func DefaultSession() Session {
	return Session{
		ID:          "sess_default",
		Title:       "General Workshop",
		Description: "Daily Activities",
		ImageURL:    "",
		IsActive:    true,
		EndTime:     time.Now().Add(time.Hour).UnixMilli(),
	}
}
