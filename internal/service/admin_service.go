package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/makerlabExp/pickupConnect/internal/dto"
	"github.com/makerlabExp/pickupConnect/internal/feed"
	"github.com/makerlabExp/pickupConnect/internal/models"
	"github.com/makerlabExp/pickupConnect/internal/repository"
	"github.com/makerlabExp/pickupConnect/internal/store"
)

// ErrCodesExhausted indicates no free 4-digit access code could be found.
var ErrCodesExhausted = errors.New("no free access code available")

const avatarBaseURL = "https://api.dicebear.com/7.x/avataaars/svg"

// AdminService covers roster management and the demo data actions.
type AdminService interface {
	AddFamily(ctx context.Context, req dto.AddStudentRequest) (dto.FamilyResponse, error)
	Roster(ctx context.Context) ([]models.Student, []models.Parent, error)
	Seed(ctx context.Context) error
	Reset(ctx context.Context) error
}

type adminService struct {
	store     *store.Store
	students  repository.StudentRepository
	parents   repository.ParentRepository
	pickups   repository.PickupRepository
	sessions  repository.SessionRepository
	broker    *feed.Broker
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAdminService constructs the admin service.
func NewAdminService(state *store.Store, students repository.StudentRepository, parents repository.ParentRepository, pickups repository.PickupRepository, sessions repository.SessionRepository, broker *feed.Broker, validate *validator.Validate, logger zerolog.Logger) AdminService {
	return &adminService{
		store:     state,
		students:  students,
		parents:   parents,
		pickups:   pickups,
		sessions:  sessions,
		broker:    broker,
		validator: validate,
		logger:    logger.With().Str("component", "admin_service").Logger(),
	}
}

// AddFamily registers a student/parent pair with a fresh 4-digit access
// code and generated avatars.
func (s *adminService) AddFamily(ctx context.Context, req dto.AddStudentRequest) (dto.FamilyResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.FamilyResponse{}, err
	}

	code, err := s.freeAccessCode()
	if err != nil {
		return dto.FamilyResponse{}, err
	}

	student := models.Student{
		ID:         uuid.NewString(),
		Name:       req.StudentName,
		AccessCode: code,
		ParentID:   uuid.NewString(),
		AvatarURL:  avatarURL(req.StudentName),
		Classroom:  req.Classroom,
	}
	parent := models.Parent{
		ID:        student.ParentID,
		Name:      req.ParentName,
		StudentID: student.ID,
		AvatarURL: avatarURL(req.ParentName),
	}

	if s.students != nil {
		if err := s.students.Create(ctx, &student); err != nil {
			return dto.FamilyResponse{}, err
		}
		if err := s.parents.Create(ctx, &parent); err != nil {
			return dto.FamilyResponse{}, err
		}
	}

	studentVersion := s.store.PutStudent(student)
	parentVersion := s.store.PutParent(parent)
	s.publishStudent(ctx, feed.TypeInsert, student, studentVersion)
	s.publishParent(ctx, feed.TypeInsert, parent, parentVersion)

	s.logger.Info().
		Str("student_id", student.ID).
		Str("classroom", student.Classroom).
		Msg("family registered")

	return dto.FamilyResponse{
		Student:    dto.NewStudentResponse(student),
		Parent:     dto.NewParentResponse(parent),
		AccessCode: code,
	}, nil
}

func (s *adminService) Roster(ctx context.Context) ([]models.Student, []models.Parent, error) {
	return s.store.Students(), s.store.Parents(), nil
}

// Seed upserts the sample roster so the demo always has known families.
func (s *adminService) Seed(ctx context.Context) error {
	for _, student := range sampleStudents() {
		student := student
		if s.students != nil {
			if err := s.students.Upsert(ctx, &student); err != nil {
				return err
			}
		}
		version := s.store.PutStudent(student)
		s.publishStudent(ctx, feed.TypeUpdate, student, version)
	}

	for _, parent := range sampleParents() {
		parent := parent
		if s.parents != nil {
			if err := s.parents.Upsert(ctx, &parent); err != nil {
				return err
			}
		}
		version := s.store.PutParent(parent)
		s.publishParent(ctx, feed.TypeUpdate, parent, version)
	}

	s.logger.Info().Msg("sample roster seeded")
	return nil
}

// Reset wipes all four tables and the mirror state.
func (s *adminService) Reset(ctx context.Context) error {
	students := s.store.Students()
	parents := s.store.Parents()
	pickups := s.store.PickupQueue()
	sessions := s.store.Sessions()

	if s.pickups != nil {
		if err := s.pickups.DeleteAll(ctx); err != nil {
			return err
		}
		if err := s.parents.DeleteAll(ctx); err != nil {
			return err
		}
		if err := s.students.DeleteAll(ctx); err != nil {
			return err
		}
		if err := s.sessions.DeleteAll(ctx); err != nil {
			return err
		}
	}

	s.store.Reset()

	for _, request := range pickups {
		s.publishDelete(ctx, feed.TablePickups, request.ID)
	}
	for _, parent := range parents {
		s.publishDelete(ctx, feed.TableParents, parent.ID)
	}
	for _, student := range students {
		s.publishDelete(ctx, feed.TableStudents, student.ID)
	}
	for _, session := range sessions {
		s.publishDelete(ctx, feed.TableSessions, session.ID)
	}

	s.logger.Warn().Msg("roster, pickups and sessions reset")
	return nil
}

// freeAccessCode draws random 4-digit codes until one is unused.
func (s *adminService) freeAccessCode() (string, error) {
	for attempt := 0; attempt < 100; attempt++ {
		code := fmt.Sprintf("%04d", rand.Intn(10000))
		if _, taken := s.store.StudentByCode(code); !taken {
			return code, nil
		}
	}
	return "", ErrCodesExhausted
}

func avatarURL(name string) string {
	return avatarBaseURL + "?seed=" + url.QueryEscape(name)
}

func (s *adminService) publishStudent(ctx context.Context, eventType string, student models.Student, version uint64) {
	event, err := feed.NewEvent(feed.TableStudents, eventType, student.ID, version, student)
	if err != nil {
		s.logger.Error().Err(err).Str("student_id", student.ID).Msg("encode student feed event")
		return
	}
	s.broker.Publish(ctx, event)
}

func (s *adminService) publishParent(ctx context.Context, eventType string, parent models.Parent, version uint64) {
	event, err := feed.NewEvent(feed.TableParents, eventType, parent.ID, version, parent)
	if err != nil {
		s.logger.Error().Err(err).Str("parent_id", parent.ID).Msg("encode parent feed event")
		return
	}
	s.broker.Publish(ctx, event)
}

func (s *adminService) publishDelete(ctx context.Context, table, id string) {
	event, err := feed.NewEvent(table, feed.TypeDelete, id, 0, nil)
	if err != nil {
		s.logger.Error().Err(err).Str("id", id).Msg("encode delete feed event")
		return
	}
	s.broker.Publish(ctx, event)
}
