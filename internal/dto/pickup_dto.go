package dto

import (
	"github.com/makerlabExp/pickupConnect/internal/models"
)

// StatusUpdateRequest transitions a student's pickup request.
type StatusUpdateRequest struct {
	StudentID string `json:"studentId" validate:"required,max=64"`
	Status    string `json:"status" validate:"required,oneof=scheduled on_way arrived released completed"`
}

// ChatSendRequest appends a message to a student's pickup chat.
type ChatSendRequest struct {
	StudentID string `json:"studentId" validate:"required,max=64"`
	Text      string `json:"text" validate:"required,min=1,max=2000"`
	Sender    string `json:"sender" validate:"required,oneof=student parent"`
}

// ChatMessageResponse is the serialized representation of a chat message.
type ChatMessageResponse struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// PickupResponse represents a pickup request returned to clients. The
// cached audio payload is never inlined; HasAudio signals that the audio
// endpoint will serve it.
type PickupResponse struct {
	ID             string                `json:"id"`
	StudentID      string                `json:"studentId"`
	ParentID       string                `json:"parentId"`
	Status         models.PickupStatus   `json:"status"`
	ChatHistory    []ChatMessageResponse `json:"chatHistory"`
	Timestamp      int64                 `json:"timestamp"`
	AIAnnouncement string                `json:"aiAnnouncement,omitempty"`
	HasAudio       bool                  `json:"hasAudio"`
	HasAnnounced   bool                  `json:"hasAnnounced"`
	Announcing     bool                  `json:"announcing,omitempty"`
}

// NewPickupResponse converts a model into a DTO.
func NewPickupResponse(request models.PickupRequest) PickupResponse {
	messages := request.Messages()
	history := make([]ChatMessageResponse, 0, len(messages))
	for _, message := range messages {
		history = append(history, ChatMessageResponse{
			ID:        message.ID,
			Sender:    message.Sender,
			Text:      message.Text,
			Timestamp: message.Timestamp,
		})
	}

	return PickupResponse{
		ID:             request.ID,
		StudentID:      request.StudentID,
		ParentID:       request.ParentID,
		Status:         request.Status,
		ChatHistory:    history,
		Timestamp:      request.Timestamp,
		AIAnnouncement: request.AIAnnouncement,
		HasAudio:       request.AudioBase64 != "",
		HasAnnounced:   request.HasAnnounced,
		Announcing:     request.Announcing,
	}
}

// NewPickupResponseSlice converts a slice of models into DTOs.
func NewPickupResponseSlice(requests []models.PickupRequest) []PickupResponse {
	out := make([]PickupResponse, 0, len(requests))
	for _, request := range requests {
		out = append(out, NewPickupResponse(request))
	}
	return out
}

// AudioResponse serves a cached announcement payload.
type AudioResponse struct {
	RequestID   string `json:"requestId"`
	AudioBase64 string `json:"audioBase64"`
	Text        string `json:"text,omitempty"`
}
