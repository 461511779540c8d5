package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/makerlabExp/pickupConnect/internal/dto"
	"github.com/makerlabExp/pickupConnect/internal/middleware"
	"github.com/makerlabExp/pickupConnect/internal/store"
)

var (
	// ErrInvalidAccessCode indicates no student matches the submitted code.
	ErrInvalidAccessCode = errors.New("invalid access code")
	// ErrParentMissing indicates a matched student has no paired parent.
	ErrParentMissing = errors.New("no parent paired with student")
	// ErrInvalidPassword indicates the staff password did not match.
	ErrInvalidPassword = errors.New("invalid password")
)

// AuthService resolves login attempts against the roster mirror and issues
// role-scoped tokens.
//
// The staff password check is demo-grade access control carried over from
// the original system, not a security boundary.
type AuthService interface {
	LoginStudent(ctx context.Context, req dto.StudentLoginRequest) (dto.LoginResponse, error)
	LoginParent(ctx context.Context, req dto.StudentLoginRequest) (dto.LoginResponse, error)
	LoginAdmin(req dto.StaffLoginRequest) (dto.LoginResponse, error)
	LoginInstructor(req dto.StaffLoginRequest) (dto.LoginResponse, error)
}

type authService struct {
	store              *store.Store
	secret             string
	tokenTTL           time.Duration
	adminPassword      string
	instructorPassword string
	validator          *validator.Validate
	logger             zerolog.Logger
}

// NewAuthService constructs the auth service.
func NewAuthService(state *store.Store, secret string, tokenTTL time.Duration, adminPassword, instructorPassword string, validate *validator.Validate, logger zerolog.Logger) AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}

	return &authService{
		store:              state,
		secret:             secret,
		tokenTTL:           tokenTTL,
		adminPassword:      adminPassword,
		instructorPassword: instructorPassword,
		validator:          validate,
		logger:             logger.With().Str("component", "auth_service").Logger(),
	}
}

func (s *authService) LoginStudent(ctx context.Context, req dto.StudentLoginRequest) (dto.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.LoginResponse{}, err
	}

	student, ok := s.store.StudentByCode(strings.TrimSpace(req.Code))
	if !ok {
		return dto.LoginResponse{}, ErrInvalidAccessCode
	}

	token, err := s.issueToken(student.ID, middleware.RoleStudent, student.Name)
	if err != nil {
		return dto.LoginResponse{}, err
	}

	s.logger.Info().Str("student_id", student.ID).Msg("student logged in")

	return dto.LoginResponse{
		Token:     token,
		Role:      middleware.RoleStudent,
		UserID:    student.ID,
		Name:      student.Name,
		StudentID: student.ID,
		AvatarURL: student.AvatarURL,
	}, nil
}

func (s *authService) LoginParent(ctx context.Context, req dto.StudentLoginRequest) (dto.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.LoginResponse{}, err
	}

	student, ok := s.store.StudentByCode(strings.TrimSpace(req.Code))
	if !ok {
		return dto.LoginResponse{}, ErrInvalidAccessCode
	}

	parent, ok := s.store.ParentByStudent(student.ID)
	if !ok {
		return dto.LoginResponse{}, ErrParentMissing
	}

	token, err := s.issueToken(parent.ID, middleware.RoleParent, parent.Name)
	if err != nil {
		return dto.LoginResponse{}, err
	}

	s.logger.Info().Str("parent_id", parent.ID).Msg("parent logged in")

	return dto.LoginResponse{
		Token:     token,
		Role:      middleware.RoleParent,
		UserID:    parent.ID,
		Name:      parent.Name,
		StudentID: student.ID,
		AvatarURL: parent.AvatarURL,
	}, nil
}

func (s *authService) LoginAdmin(req dto.StaffLoginRequest) (dto.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.LoginResponse{}, err
	}

	if !constantTimeEqual(s.adminPassword, req.Password) {
		return dto.LoginResponse{}, ErrInvalidPassword
	}

	token, err := s.issueToken("admin", middleware.RoleAdmin, "Admin")
	if err != nil {
		return dto.LoginResponse{}, err
	}

	return dto.LoginResponse{Token: token, Role: middleware.RoleAdmin}, nil
}

func (s *authService) LoginInstructor(req dto.StaffLoginRequest) (dto.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.LoginResponse{}, err
	}

	// The admin password also opens the instructor dashboard.
	if !constantTimeEqual(s.instructorPassword, req.Password) && !constantTimeEqual(s.adminPassword, req.Password) {
		return dto.LoginResponse{}, ErrInvalidPassword
	}

	token, err := s.issueToken("instructor", middleware.RoleInstructor, "Instructor")
	if err != nil {
		return dto.LoginResponse{}, err
	}

	return dto.LoginResponse{Token: token, Role: middleware.RoleInstructor}, nil
}

func (s *authService) issueToken(subject, role, name string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"name": name,
		"iat":  now.Unix(),
		"exp":  now.Add(s.tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

func constantTimeEqual(expected, actual string) bool {
	expected = strings.TrimSpace(expected)
	actual = strings.TrimSpace(actual)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(actual)) == 1
}
