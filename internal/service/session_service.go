package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/makerlabExp/pickupConnect/internal/dto"
	"github.com/makerlabExp/pickupConnect/internal/feed"
	"github.com/makerlabExp/pickupConnect/internal/models"
	"github.com/makerlabExp/pickupConnect/internal/repository"
	"github.com/makerlabExp/pickupConnect/internal/store"
)

// ErrSessionNotFound indicates no session matches the given id.
var ErrSessionNotFound = errors.New("session not found")

// SessionService manages workshop themes.
type SessionService interface {
	List(ctx context.Context) ([]models.Session, error)
	Current(ctx context.Context) (models.Session, error)
	Add(ctx context.Context, req dto.SessionCreateRequest) (models.Session, error)
	Activate(ctx context.Context, id string) (models.Session, error)
}

type sessionService struct {
	store     *store.Store
	sessions  repository.SessionRepository
	broker    *feed.Broker
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSessionService constructs the session service.
func NewSessionService(state *store.Store, sessions repository.SessionRepository, broker *feed.Broker, validate *validator.Validate, logger zerolog.Logger) SessionService {
	return &sessionService{
		store:     state,
		sessions:  sessions,
		broker:    broker,
		validator: validate,
		logger:    logger.With().Str("component", "session_service").Logger(),
	}
}

func (s *sessionService) List(ctx context.Context) ([]models.Session, error) {
	return s.store.Sessions(), nil
}

// Current returns the active session, falling back to the default theme
// when none is active.
func (s *sessionService) Current(ctx context.Context) (models.Session, error) {
	if session, ok := s.store.ActiveSession(); ok {
		return session, nil
	}
	return models.DefaultSession(), nil
}

// Add creates a new inactive session ending two hours out.
func (s *sessionService) Add(ctx context.Context, req dto.SessionCreateRequest) (models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Session{}, err
	}

	session := models.Session{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		IsActive:    false,
		EndTime:     time.Now().Add(2 * time.Hour).UnixMilli(),
	}

	if s.sessions != nil {
		if err := s.sessions.Create(ctx, &session); err != nil {
			return models.Session{}, err
		}
	}

	version := s.store.PutSession(session)
	s.publish(ctx, feed.TypeInsert, session, version)

	s.logger.Info().Str("session_id", session.ID).Str("title", session.Title).Msg("session added")
	return session, nil
}

// Activate makes one session active and deactivates the rest. Every
// session whose active flag flipped is re-announced on the feed.
func (s *sessionService) Activate(ctx context.Context, id string) (models.Session, error) {
	if _, ok := s.sessionByID(id); !ok {
		return models.Session{}, ErrSessionNotFound
	}

	if s.sessions != nil {
		if err := s.sessions.DeactivateAll(ctx); err != nil {
			return models.Session{}, err
		}
		if err := s.sessions.Activate(ctx, id); err != nil {
			return models.Session{}, err
		}
	}

	versions := s.store.SetSessionsActive(id)
	for _, session := range s.store.Sessions() {
		version, changed := versions[session.ID]
		if !changed {
			continue
		}
		s.publish(ctx, feed.TypeUpdate, session, version)
	}

	activated, _ := s.sessionByID(id)
	s.logger.Info().Str("session_id", id).Msg("session activated")
	return activated, nil
}

func (s *sessionService) sessionByID(id string) (models.Session, bool) {
	for _, session := range s.store.Sessions() {
		if session.ID == id {
			return session, true
		}
	}
	return models.Session{}, false
}

func (s *sessionService) publish(ctx context.Context, eventType string, session models.Session, version uint64) {
	event, err := feed.NewEvent(feed.TableSessions, eventType, session.ID, version, session)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", session.ID).Msg("encode session feed event")
		return
	}
	s.broker.Publish(ctx, event)
}
