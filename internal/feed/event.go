package feed

import (
	"encoding/json"
	"fmt"
	"time"
)

// Tables mirrored through the change-feed.
const (
	TableStudents = "students"
	TableParents  = "parents"
	TablePickups  = "pickups"
	TableSessions = "sessions"

	// TableAnnouncements is synthetic: announcement events are fanned out to
	// dashboards but never persisted.
	TableAnnouncements = "announcements"
)

// Event types carried on the feed.
const (
	TypeInsert = "insert"
	TypeUpdate = "update"
	TypeDelete = "delete"
)

// Event is a row-level change notification. Version is the writer's
// monotonic per-record counter; appliers ignore echoes older than the
// version they already hold.
type Event struct {
	Table   string          `json:"table"`
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Version uint64          `json:"version"`
	Record  json.RawMessage `json:"record,omitempty"`
	Source  string          `json:"source,omitempty"`
	SentAt  time.Time       `json:"sent_at"`
}

// NewEvent builds a feed event with the record serialized in place.
func NewEvent(table, eventType, id string, version uint64, record interface{}) (Event, error) {
	event := Event{
		Table:   table,
		Type:    eventType,
		ID:      id,
		Version: version,
	}

	if record != nil {
		payload, err := json.Marshal(record)
		if err != nil {
			return Event{}, fmt.Errorf("encode feed record: %w", err)
		}
		event.Record = payload
	}

	return event, nil
}

// Announcement is the payload of a synthetic announcement event. Chime-only
// announcements carry no spoken text or audio reference.
type Announcement struct {
	RequestID   string `json:"requestId"`
	StudentName string `json:"studentName"`
	Classroom   string `json:"classroom,omitempty"`
	Text        string `json:"text,omitempty"`
	HasAudio    bool   `json:"hasAudio"`
	Chime       bool   `json:"chime"`
}
