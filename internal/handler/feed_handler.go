package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/makerlabExp/pickupConnect/internal/dto"
	"github.com/makerlabExp/pickupConnect/internal/feed"
	"github.com/makerlabExp/pickupConnect/internal/store"
	"github.com/makerlabExp/pickupConnect/internal/utils"
)

// FeedHandler serves the change-feed over websocket and SSE, plus the
// snapshot clients load before subscribing.
type FeedHandler struct {
	broker    *feed.Broker
	store     *store.Store
	keepAlive time.Duration
	logger    zerolog.Logger
}

// snapshotResponse is the full mirror state a client hydrates from.
type snapshotResponse struct {
	Students []dto.StudentResponse `json:"students"`
	Parents  []dto.ParentResponse  `json:"parents"`
	Pickups  []dto.PickupResponse  `json:"pickups"`
	Sessions []dto.SessionResponse `json:"sessions"`
}

// NewFeedHandler constructs the handler.
func NewFeedHandler(broker *feed.Broker, state *store.Store, keepAlive time.Duration, logger zerolog.Logger) *FeedHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}

	return &FeedHandler{
		broker:    broker,
		store:     state,
		keepAlive: keepAlive,
		logger:    logger.With().Str("component", "feed_handler").Logger(),
	}
}

// Register binds the feed routes.
func (h *FeedHandler) Register(router fiber.Router) {
	router.Get("/snapshot", h.snapshot)
	router.Get("/stream", h.stream)

	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", websocket.New(h.handleWebsocket))
}

func (h *FeedHandler) snapshot(c *fiber.Ctx) error {
	snapshot := snapshotResponse{
		Students: dto.NewStudentResponseSlice(h.store.Students()),
		Parents:  dto.NewParentResponseSlice(h.store.Parents()),
		Pickups:  dto.NewPickupResponseSlice(h.store.PickupQueue()),
		Sessions: dto.NewSessionResponseSlice(h.store.Sessions()),
	}
	return utils.SendSuccess(c, "snapshot", snapshot)
}

func (h *FeedHandler) handleWebsocket(conn *websocket.Conn) {
	userID := fmt.Sprint(conn.Locals("user_id"))
	events, cleanup := h.broker.Subscribe()
	defer cleanup()

	h.logger.Info().Str("user_id", userID).Msg("feed websocket connected")
	defer h.logger.Info().Str("user_id", userID).Msg("feed websocket disconnected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			// Reads are discarded; the socket is one-way. A read error
			// means the peer went away.
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (h *FeedHandler) stream(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)

	events, cleanup := h.broker.Subscribe()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			cleanup()
			cancel()
		}()

		ticker := time.NewTicker(h.keepAlive / 2)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				if err := writeFeedEvent(w, event); err != nil {
					h.logger.Debug().Err(err).Msg("write feed event")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					h.logger.Debug().Err(err).Msg("write feed keepalive")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}

func writeFeedEvent(w *bufio.Writer, event feed.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", event.Table); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
		return err
	}
	return w.Flush()
}
