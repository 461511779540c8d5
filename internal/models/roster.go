package models

import "time"

// Student is a workshop attendee. The access code doubles as the login
// credential for both the student and the paired parent.
type Student struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	AccessCode string    `gorm:"size:4;uniqueIndex;not null" json:"accessCode"`
	ParentID   string    `gorm:"size:64;index" json:"parentId"`
	AvatarURL  string    `gorm:"type:text" json:"avatarUrl"`
	Classroom  string    `gorm:"size:64;default:Salle 1" json:"classroom"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Parent is the pickup contact paired with exactly one student.
type Parent struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	StudentID string    `gorm:"size:64;index" json:"studentId"`
	AvatarURL string    `gorm:"type:text" json:"avatarUrl"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
