package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/makerlabExp/pickupConnect/internal/dto"
	"github.com/makerlabExp/pickupConnect/internal/feed"
	"github.com/makerlabExp/pickupConnect/internal/models"
	"github.com/makerlabExp/pickupConnect/internal/observability"
	"github.com/makerlabExp/pickupConnect/internal/repository"
	"github.com/makerlabExp/pickupConnect/internal/store"
)

var (
	// ErrUnknownStudent indicates the referenced student is not on the roster.
	ErrUnknownStudent = errors.New("unknown student")
	// ErrRequestNotFound indicates no pickup request matches the given id.
	ErrRequestNotFound = errors.New("pickup request not found")
	// ErrInvalidStatus indicates a status outside the workflow vocabulary.
	ErrInvalidStatus = errors.New("invalid pickup status")
	// ErrNoAudio indicates the request has no cached announcement audio.
	ErrNoAudio = errors.New("no announcement audio cached")
)

// PickupService owns the pickup workflow: status transitions, the embedded
// chat thread, the announcement cache and the queue view.
type PickupService interface {
	UpdateStatus(ctx context.Context, req dto.StatusUpdateRequest) (models.PickupRequest, error)
	SendMessage(ctx context.Context, req dto.ChatSendRequest) (models.PickupRequest, error)
	SetAnnouncement(ctx context.Context, requestID, text string) (models.PickupRequest, error)
	SetAudioAnnouncement(ctx context.Context, requestID, audioBase64 string) (models.PickupRequest, error)
	MarkAnnounced(ctx context.Context, requestID string) (models.PickupRequest, error)
	Queue(ctx context.Context, classroom string) ([]models.PickupRequest, error)
	RequestForStudent(ctx context.Context, studentID string) (models.PickupRequest, error)
	Audio(ctx context.Context, requestID string) (dto.AudioResponse, error)
}

type pickupService struct {
	store     *store.Store
	pickups   repository.PickupRepository
	broker    *feed.Broker
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewPickupService constructs the pickup service.
func NewPickupService(state *store.Store, pickups repository.PickupRepository, broker *feed.Broker, validate *validator.Validate, logger zerolog.Logger) PickupService {
	return &pickupService{
		store:     state,
		pickups:   pickups,
		broker:    broker,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "pickup_service").Logger(),
		tracer:    otel.Tracer("pickup-service"),
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// UpdateStatus moves a student's pickup request to the given status,
// creating the request when the student has none yet. Re-entering the
// arrived state rearms the announcer.
func (s *pickupService) UpdateStatus(ctx context.Context, req dto.StatusUpdateRequest) (models.PickupRequest, error) {
	ctx, span := s.tracer.Start(ctx, "pickup.update_status")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return models.PickupRequest{}, err
	}

	status := models.PickupStatus(req.Status)
	if !models.ValidStatus(status) {
		return models.PickupRequest{}, ErrInvalidStatus
	}

	student, ok := s.store.StudentByID(req.StudentID)
	if !ok {
		return models.PickupRequest{}, ErrUnknownStudent
	}

	request, exists := s.store.PickupByStudent(student.ID)
	if !exists {
		request = s.newRequest(student)
	}

	request.Status = status
	request.Timestamp = nowMillis()
	if status == models.StatusArrived {
		request.HasAnnounced = false
		request.AIAnnouncement = ""
		request.AudioBase64 = ""
	}

	eventType := feed.TypeUpdate
	if !exists {
		eventType = feed.TypeInsert
	}

	s.publish(ctx, eventType, request)
	s.persist(ctx, &request, exists)

	observability.PickupTransitions().WithLabelValues(string(status)).Inc()
	s.logger.Info().
		Str("request_id", request.ID).
		Str("student_id", student.ID).
		Str("status", string(status)).
		Msg("pickup status updated")

	return request, nil
}

// SendMessage appends a chat message to the student's pickup thread,
// creating a scheduled request when none exists for today.
func (s *pickupService) SendMessage(ctx context.Context, req dto.ChatSendRequest) (models.PickupRequest, error) {
	ctx, span := s.tracer.Start(ctx, "pickup.send_message")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return models.PickupRequest{}, err
	}

	text := strings.TrimSpace(s.sanitizer.Sanitize(req.Text))
	if text == "" {
		return models.PickupRequest{}, errors.New("message text is empty after sanitizing")
	}

	student, ok := s.store.StudentByID(req.StudentID)
	if !ok {
		return models.PickupRequest{}, ErrUnknownStudent
	}

	request, exists := s.store.PickupByStudent(student.ID)
	if !exists {
		request = s.newRequest(student)
	}

	messages := append(request.Messages(), models.ChatMessage{
		ID:        uuid.NewString(),
		Sender:    req.Sender,
		Text:      text,
		Timestamp: nowMillis(),
	})
	if err := request.SetMessages(messages); err != nil {
		return models.PickupRequest{}, err
	}

	eventType := feed.TypeUpdate
	if !exists {
		eventType = feed.TypeInsert
	}

	s.publish(ctx, eventType, request)
	s.persist(ctx, &request, exists)

	observability.ChatMessages().WithLabelValues(req.Sender).Inc()
	return request, nil
}

func (s *pickupService) SetAnnouncement(ctx context.Context, requestID, text string) (models.PickupRequest, error) {
	return s.patch(ctx, requestID, func(request *models.PickupRequest) {
		request.AIAnnouncement = text
	})
}

func (s *pickupService) SetAudioAnnouncement(ctx context.Context, requestID, audioBase64 string) (models.PickupRequest, error) {
	return s.patch(ctx, requestID, func(request *models.PickupRequest) {
		request.AudioBase64 = audioBase64
	})
}

func (s *pickupService) MarkAnnounced(ctx context.Context, requestID string) (models.PickupRequest, error) {
	return s.patch(ctx, requestID, func(request *models.PickupRequest) {
		request.HasAnnounced = true
	})
}

// Queue returns today's pickup requests, newest first. An empty classroom
// returns every classroom; otherwise only students in that room are kept.
func (s *pickupService) Queue(ctx context.Context, classroom string) ([]models.PickupRequest, error) {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).UnixMilli()

	queue := make([]models.PickupRequest, 0)
	for _, request := range s.store.PickupQueue() {
		if request.Status == models.StatusScheduled || request.Status == models.StatusCompleted {
			continue
		}
		if request.Timestamp < startOfDay {
			continue
		}
		if classroom != "" {
			student, ok := s.store.StudentByID(request.StudentID)
			if !ok || student.Classroom != classroom {
				continue
			}
		}
		queue = append(queue, request)
	}

	sort.Slice(queue, func(i, j int) bool {
		return queue[i].Timestamp > queue[j].Timestamp
	})

	return queue, nil
}

func (s *pickupService) RequestForStudent(ctx context.Context, studentID string) (models.PickupRequest, error) {
	request, ok := s.store.PickupByStudent(studentID)
	if !ok {
		return models.PickupRequest{}, ErrRequestNotFound
	}
	return request, nil
}

// Audio serves the cached announcement audio for a request.
func (s *pickupService) Audio(ctx context.Context, requestID string) (dto.AudioResponse, error) {
	request, ok := s.store.PickupByID(requestID)
	if !ok {
		return dto.AudioResponse{}, ErrRequestNotFound
	}
	if request.AudioBase64 == "" {
		return dto.AudioResponse{}, ErrNoAudio
	}

	return dto.AudioResponse{
		RequestID:   request.ID,
		AudioBase64: request.AudioBase64,
		Text:        request.AIAnnouncement,
	}, nil
}

func (s *pickupService) newRequest(student models.Student) models.PickupRequest {
	return models.PickupRequest{
		ID:        uuid.NewString(),
		StudentID: student.ID,
		ParentID:  student.ParentID,
		Status:    models.StatusScheduled,
		Timestamp: nowMillis(),
	}
}

func (s *pickupService) patch(ctx context.Context, requestID string, mutate func(*models.PickupRequest)) (models.PickupRequest, error) {
	request, ok := s.store.PickupByID(requestID)
	if !ok {
		return models.PickupRequest{}, ErrRequestNotFound
	}

	mutate(&request)

	s.publish(ctx, feed.TypeUpdate, request)
	s.persist(ctx, &request, true)
	return request, nil
}

// persist writes through to the database after the mirror has already
// accepted the write. Backend failures are logged, never rolled back; the
// mirror stays authoritative for this node and the feed event has already
// fanned out.
func (s *pickupService) persist(ctx context.Context, request *models.PickupRequest, exists bool) {
	if s.pickups == nil {
		return
	}

	var err error
	if exists {
		err = s.pickups.Save(ctx, request)
	} else {
		err = s.pickups.Create(ctx, request)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", request.ID).Msg("persist pickup request")
	}
}

func (s *pickupService) publish(ctx context.Context, eventType string, request models.PickupRequest) {
	version := s.store.PutPickup(request)
	event, err := feed.NewEvent(feed.TablePickups, eventType, request.ID, version, request)
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", request.ID).Msg("encode pickup feed event")
		return
	}
	s.broker.Publish(ctx, event)
}
