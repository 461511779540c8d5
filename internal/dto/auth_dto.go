package dto

// StudentLoginRequest carries the 4-digit access code typed on the student
// or parent login screen.
type StudentLoginRequest struct {
	Code string `json:"code" validate:"required,len=4,numeric"`
}

// StaffLoginRequest carries the shared password for the admin and
// instructor surfaces.
type StaffLoginRequest struct {
	Password string `json:"password" validate:"required,min=1,max=128"`
}

// LoginResponse returns the signed token plus the resolved identity.
type LoginResponse struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	UserID    string `json:"userId,omitempty"`
	Name      string `json:"name,omitempty"`
	StudentID string `json:"studentId,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}
