package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// PickupStatus tracks where a pickup request sits in the departure flow.
type PickupStatus string

// Canonical status flow. Transitions are stamped but not guarded: any
// writer with access may set any status.
const (
	StatusScheduled PickupStatus = "scheduled"
	StatusOnWay     PickupStatus = "on_way"
	StatusArrived   PickupStatus = "arrived"
	StatusReleased  PickupStatus = "released"
	StatusCompleted PickupStatus = "completed"
)

// ValidStatus reports whether s is one of the known pickup statuses.
func ValidStatus(s PickupStatus) bool {
	switch s {
	case StatusScheduled, StatusOnWay, StatusArrived, StatusReleased, StatusCompleted:
		return true
	}
	return false
}

// ChatSender tags who authored a chat message.
const (
	SenderStudent = "student"
	SenderParent  = "parent"
)

// ChatMessage is an append-only entry embedded in a pickup request's
// history. It has no independent lifecycle.
type ChatMessage struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// PickupRequest is the per-student-per-day workflow record. Timestamp is
// epoch millis of the last status transition and doubles as the same-day
// filter key.
type PickupRequest struct {
	ID             string         `gorm:"primaryKey;size:64" json:"id"`
	StudentID      string         `gorm:"size:64;index" json:"studentId"`
	ParentID       string         `gorm:"size:64;index" json:"parentId"`
	Status         PickupStatus   `gorm:"size:32;not null;default:scheduled" json:"status"`
	ChatHistory    datatypes.JSON `gorm:"type:json" json:"chatHistory"`
	Timestamp      int64          `gorm:"not null" json:"timestamp"`
	AIAnnouncement string         `gorm:"type:text" json:"aiAnnouncement,omitempty"`
	AudioBase64    string         `gorm:"type:text" json:"audioBase64,omitempty"`
	HasAnnounced   bool           `gorm:"not null;default:false" json:"hasAnnounced"`
	Announcing     bool           `gorm:"-" json:"announcing,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Messages decodes the embedded chat history. A nil or invalid history
// decodes to an empty slice.
func (r PickupRequest) Messages() []ChatMessage {
	if len(r.ChatHistory) == 0 {
		return nil
	}
	var out []ChatMessage
	if err := json.Unmarshal(r.ChatHistory, &out); err != nil {
		return nil
	}
	return out
}

// SetMessages re-encodes the chat history onto the request.
func (r *PickupRequest) SetMessages(messages []ChatMessage) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	r.ChatHistory = datatypes.JSON(payload)
	return nil
}
