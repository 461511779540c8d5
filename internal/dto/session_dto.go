package dto

import "github.com/makerlabExp/pickupConnect/internal/models"

// SessionCreateRequest adds a workshop theme.
type SessionCreateRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"max=2000"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,url"`
}

// SessionResponse represents a workshop theme returned to clients.
type SessionResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	IsActive    bool   `json:"isActive"`
	EndTime     int64  `json:"endTime"`
}

// NewSessionResponse converts a model into a DTO.
func NewSessionResponse(session models.Session) SessionResponse {
	return SessionResponse{
		ID:          session.ID,
		Title:       session.Title,
		Description: session.Description,
		ImageURL:    session.ImageURL,
		IsActive:    session.IsActive,
		EndTime:     session.EndTime,
	}
}

// NewSessionResponseSlice converts a slice of models into DTOs.
func NewSessionResponseSlice(sessions []models.Session) []SessionResponse {
	out := make([]SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, NewSessionResponse(session))
	}
	return out
}
