package dto

import "github.com/makerlabExp/pickupConnect/internal/models"

// AddStudentRequest registers a student/parent pair.
type AddStudentRequest struct {
	StudentName string `json:"studentName" validate:"required,min=1,max=255"`
	ParentName  string `json:"parentName" validate:"required,min=1,max=255"`
	Classroom   string `json:"classroom" validate:"required,min=1,max=64"`
}

// StudentResponse represents a roster entry returned to clients.
type StudentResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	AccessCode string `json:"accessCode"`
	ParentID   string `json:"parentId"`
	AvatarURL  string `json:"avatarUrl"`
	Classroom  string `json:"classroom"`
}

// ParentResponse represents a pickup contact returned to clients.
type ParentResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StudentID string `json:"studentId"`
	AvatarURL string `json:"avatarUrl"`
}

// FamilyResponse is the result of registering a student/parent pair. The
// access code is surfaced once here so the admin can hand it out.
type FamilyResponse struct {
	Student    StudentResponse `json:"student"`
	Parent     ParentResponse  `json:"parent"`
	AccessCode string          `json:"accessCode"`
}

// NewStudentResponse converts a model into a DTO.
func NewStudentResponse(student models.Student) StudentResponse {
	return StudentResponse{
		ID:         student.ID,
		Name:       student.Name,
		AccessCode: student.AccessCode,
		ParentID:   student.ParentID,
		AvatarURL:  student.AvatarURL,
		Classroom:  student.Classroom,
	}
}

// NewStudentResponseSlice converts a slice of models into DTOs.
func NewStudentResponseSlice(students []models.Student) []StudentResponse {
	out := make([]StudentResponse, 0, len(students))
	for _, student := range students {
		out = append(out, NewStudentResponse(student))
	}
	return out
}

// NewParentResponse converts a model into a DTO.
func NewParentResponse(parent models.Parent) ParentResponse {
	return ParentResponse{
		ID:        parent.ID,
		Name:      parent.Name,
		StudentID: parent.StudentID,
		AvatarURL: parent.AvatarURL,
	}
}

// NewParentResponseSlice converts a slice of models into DTOs.
func NewParentResponseSlice(parents []models.Parent) []ParentResponse {
	out := make([]ParentResponse, 0, len(parents))
	for _, parent := range parents {
		out = append(out, NewParentResponse(parent))
	}
	return out
}

// UploadResponse describes a stored session image.
type UploadResponse struct {
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}
