// Package tts generates spoken pickup announcements through an external
// speech synthesis API. Failures are soft: callers treat any error as "no
// audio available" and degrade to a chime.
package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ttsDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pickup",
		Subsystem: "tts",
		Name:      "generation_duration_seconds",
		Help:      "Duration of speech generation requests",
	}, []string{"model"})

	ttsFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pickup",
		Subsystem: "tts",
		Name:      "generation_failures_total",
		Help:      "Number of speech generation failures",
	}, []string{"model"})
)

// Request names who is being announced.
type Request struct {
	StudentName string
	ParentName  string
	Classroom   string
}

// Generator produces a base64-encoded audio payload for an announcement.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Config holds settings for the speech client.
type Config struct {
	APIKey string
	Model  string
	Voice  string
	Logger zerolog.Logger
}

// Client implements Generator against the speech synthesis API, guarded by
// a circuit breaker so a flapping upstream fails fast instead of queueing
// announcements behind timeouts.
type Client struct {
	api     *openai.Client
	cfg     Config
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
	logger  zerolog.Logger
}

// New builds a speech client from the provided configuration.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("speech api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = string(openai.TTSModel1)
	}
	if cfg.Voice == "" {
		cfg.Voice = string(openai.VoiceNova)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "speech-api",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &Client{
		api:     openai.NewClient(cfg.APIKey),
		cfg:     cfg,
		breaker: breaker,
		tracer:  otel.Tracer("github.com/makerlabExp/pickupConnect/pkg/tts"),
		logger:  logger.With().Str("component", "tts").Logger(),
	}, nil
}

// Generate synthesizes the announcement and returns the audio payload as a
// base64 string.
func (c *Client) Generate(parent context.Context, req Request) (string, error) {
	ctx, span := c.tracer.Start(parent, "tts.generate", trace.WithAttributes(
		attribute.String("model", c.cfg.Model),
		attribute.String("classroom", req.Classroom),
	))
	defer span.End()

	start := time.Now()
	payload, err := c.breaker.Execute(func() (interface{}, error) {
		return c.synthesize(ctx, AnnouncementText(req))
	})
	ttsDuration.WithLabelValues(c.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		ttsFailures.WithLabelValues(c.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("speech generation: %w", err)
	}

	return payload.(string), nil
}

func (c *Client) synthesize(ctx context.Context, text string) (string, error) {
	response, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.cfg.Model),
		Input:          text,
		Voice:          openai.SpeechVoice(c.cfg.Voice),
		ResponseFormat: openai.SpeechResponseFormatWav,
	})
	if err != nil {
		return "", err
	}
	defer response.Close()

	data, err := io.ReadAll(response)
	if err != nil {
		return "", fmt.Errorf("read speech response: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty speech response")
	}

	return base64.StdEncoding.EncodeToString(data), nil
}

// AnnouncementText renders the PA script spoken over the workshop speakers.
func AnnouncementText(req Request) string {
	builder := strings.Builder{}
	builder.WriteString("Attention please. ")
	builder.WriteString(req.StudentName)
	if req.Classroom != "" {
		builder.WriteString(" from ")
		builder.WriteString(req.Classroom)
	}
	builder.WriteString(", your pickup is here. ")
	builder.WriteString(req.ParentName)
	builder.WriteString(" is waiting at the gate.")
	return builder.String()
}
