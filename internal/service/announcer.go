package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/makerlabExp/pickupConnect/internal/feed"
	"github.com/makerlabExp/pickupConnect/internal/models"
	"github.com/makerlabExp/pickupConnect/internal/observability"
	"github.com/makerlabExp/pickupConnect/internal/store"
	"github.com/makerlabExp/pickupConnect/pkg/audio"
	"github.com/makerlabExp/pickupConnect/pkg/tts"
)

// Announcer watches the change-feed for arrivals and drives the PA
// pipeline: claim the request, fan out an immediate chime, then generate
// and cache the spoken announcement. Speech failures degrade to chime-only
// rather than blocking the queue.
type Announcer struct {
	store   *store.Store
	pickups PickupService
	broker  *feed.Broker
	speech  tts.Generator
	delay   time.Duration
	logger  zerolog.Logger
	tracer  trace.Tracer

	// base outlives individual requests so a manual announce triggered
	// over HTTP is not cancelled when the request returns.
	base context.Context
}

// NewAnnouncer constructs the announcer. A nil speech generator disables
// audio generation; arrivals still chime.
func NewAnnouncer(state *store.Store, pickups PickupService, broker *feed.Broker, speech tts.Generator, delay time.Duration, logger zerolog.Logger) *Announcer {
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	return &Announcer{
		store:   state,
		pickups: pickups,
		broker:  broker,
		speech:  speech,
		delay:   delay,
		logger:  logger.With().Str("component", "announcer").Logger(),
		tracer:  otel.Tracer("announcer"),
	}
}

// Start consumes the feed until ctx is cancelled.
func (a *Announcer) Start(ctx context.Context) {
	a.base = ctx
	events, cancel := a.broker.Subscribe()

	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				a.handle(ctx, event)
			}
		}
	}()

	a.logger.Info().Dur("delay", a.delay).Msg("announcer started")
}

func (a *Announcer) handle(ctx context.Context, event feed.Event) {
	if event.Table != feed.TablePickups || event.Type == feed.TypeDelete {
		return
	}

	var request models.PickupRequest
	if err := json.Unmarshal(event.Record, &request); err != nil {
		a.logger.Warn().Err(err).Str("event_id", event.ID).Msg("decode pickup event")
		return
	}

	if request.Status != models.StatusArrived || request.HasAnnounced {
		return
	}

	claimed, ok := a.store.BeginAnnounce(request.ID)
	if !ok {
		return
	}

	go a.announce(a.lifetime(), claimed)
}

func (a *Announcer) lifetime() context.Context {
	if a.base != nil {
		return a.base
	}
	return context.Background()
}

// ManualAnnounce replays the announcement for a request on demand,
// regardless of whether it already announced once.
func (a *Announcer) ManualAnnounce(ctx context.Context, requestID string) error {
	request, ok := a.store.ClaimAnnounce(requestID)
	if !ok {
		if _, exists := a.store.PickupByID(requestID); !exists {
			return ErrRequestNotFound
		}
		// Already announcing on this node; treat as done.
		return nil
	}

	go a.announce(a.lifetime(), request)
	return nil
}

func (a *Announcer) announce(parent context.Context, request models.PickupRequest) {
	defer a.store.EndAnnounce(request.ID)

	ctx, span := a.tracer.Start(parent, "announcer.announce")
	defer span.End()

	student, ok := a.store.StudentByID(request.StudentID)
	if !ok {
		a.logger.Warn().Str("request_id", request.ID).Msg("announce for unknown student")
		return
	}

	a.publishAnnouncement(ctx, feed.Announcement{
		RequestID:   request.ID,
		StudentName: student.Name,
		Classroom:   student.Classroom,
		Chime:       true,
	})

	select {
	case <-ctx.Done():
		return
	case <-time.After(a.delay):
	}

	outcome := "chime_only"
	text, hasAudio := a.generate(ctx, request, student)
	if hasAudio {
		outcome = "spoken"
	}
	observability.Announcements().WithLabelValues(outcome).Inc()

	a.publishAnnouncement(ctx, feed.Announcement{
		RequestID:   request.ID,
		StudentName: student.Name,
		Classroom:   student.Classroom,
		Text:        text,
		HasAudio:    hasAudio,
	})

	if _, err := a.pickups.MarkAnnounced(ctx, request.ID); err != nil {
		a.logger.Error().Err(err).Str("request_id", request.ID).Msg("mark announced")
	}
}

// generate synthesizes and caches the spoken announcement. It returns the
// announcement text and whether playable audio was cached.
func (a *Announcer) generate(ctx context.Context, request models.PickupRequest, student models.Student) (string, bool) {
	parentName := "Your parent"
	if parent, ok := a.store.ParentByID(request.ParentID); ok {
		parentName = parent.Name
	}

	script := tts.Request{
		StudentName: student.Name,
		ParentName:  parentName,
		Classroom:   student.Classroom,
	}
	text := tts.AnnouncementText(script)

	if _, err := a.pickups.SetAnnouncement(ctx, request.ID, text); err != nil {
		a.logger.Error().Err(err).Str("request_id", request.ID).Msg("cache announcement text")
	}

	// A repeat announcement replays the cached payload instead of
	// synthesizing a new one.
	if request.AudioBase64 != "" {
		if _, err := audio.DecodePayload(request.AudioBase64); err == nil {
			return text, true
		}
		a.logger.Warn().Str("request_id", request.ID).Msg("cached audio undecodable, regenerating")
	}

	if a.speech == nil {
		return text, false
	}

	payload, err := a.speech.Generate(ctx, script)
	if err != nil {
		a.logger.Warn().Err(err).Str("request_id", request.ID).Msg("speech generation failed, chiming only")
		return text, false
	}

	buffer, err := audio.DecodePayload(payload)
	if err != nil {
		a.logger.Warn().Err(err).Str("request_id", request.ID).Msg("discarding undecodable audio payload")
		return text, false
	}

	if _, err := a.pickups.SetAudioAnnouncement(ctx, request.ID, payload); err != nil {
		a.logger.Error().Err(err).Str("request_id", request.ID).Msg("cache announcement audio")
		return text, false
	}

	a.logger.Info().
		Str("request_id", request.ID).
		Float64("duration_seconds", buffer.Duration().Seconds()).
		Msg("announcement audio cached")

	return text, true
}

func (a *Announcer) publishAnnouncement(ctx context.Context, payload feed.Announcement) {
	event, err := feed.NewEvent(feed.TableAnnouncements, feed.TypeInsert, payload.RequestID, 0, payload)
	if err != nil {
		a.logger.Error().Err(err).Msg("encode announcement event")
		return
	}
	a.broker.Publish(ctx, event)
}
