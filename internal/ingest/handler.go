package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/duskbound/affinity/internal/store"
)

// ConsumerName identifies this mirror on the feed's cursor namespace.
const ConsumerName = "affinity-mirror"

// Handler applies profile feed messages to the snapshot mirror. Poison
// messages are logged and counted but never abort the connection; a
// single malformed event must not stall the whole feed.
type Handler struct {
	store   store.ProfileStore
	metrics *Metrics
	logger  *slog.Logger
}

// NewHandler creates a feed message handler writing to the given store.
func NewHandler(st store.ProfileStore, metrics *Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:   st,
		metrics: metrics,
		logger:  logger,
	}
}

// HandleMessage processes one WebSocket message from the feed. It
// satisfies the client's MessageHandler signature.
func (h *Handler) HandleMessage(messageType int, payload []byte) error {
	if messageType != websocket.BinaryMessage {
		// Text frames are protocol noise (pings, notices); skip them.
		return nil
	}

	start := time.Now()
	ctx := context.Background()

	msg, err := DecodeFeedMessage(payload)
	if err != nil {
		h.metrics.IncMessagesError()
		h.logger.Warn("dropping undecodable feed message",
			slog.String("error", err.Error()))
		return nil
	}

	h.metrics.IncMessagesProcessed()

	if msg.Kind == KindProfile {
		if err := h.applyChange(ctx, msg.Profile); err != nil {
			// Storage failures are retryable; surface them so the client
			// disconnects and replays from the cursor.
			h.metrics.IncMessagesError()
			return err
		}
	}

	// Advance the resume cursor only after the message took effect.
	if err := h.store.SetCursor(ctx, ConsumerName, msg.Seq); err != nil {
		h.logger.Warn("failed to persist resume cursor",
			slog.Int64("seq", msg.Seq),
			slog.String("error", err.Error()))
	}

	h.metrics.ObserveIngestLatency(time.Since(start).Seconds())
	return nil
}

// applyChange upserts one snapshot. Stale versions are an expected
// replay artifact, not an error.
func (h *Handler) applyChange(ctx context.Context, change *ProfileChange) error {
	err := h.store.UpsertProfile(ctx, change.RawProfile())
	if errors.Is(err, store.ErrStaleVersion) {
		h.metrics.IncStaleSkips()
		h.logger.Debug("skipped stale profile version",
			slog.String("user_id", change.UserID),
			slog.Int64("version", change.Version))
		return nil
	}
	if err != nil {
		h.logger.Error("failed to apply profile change",
			slog.String("user_id", change.UserID),
			slog.Int64("version", change.Version),
			slog.String("error", err.Error()))
		return err
	}

	h.metrics.IncUpserts()
	h.logger.Info("applied profile change",
		slog.String("user_id", change.UserID),
		slog.Int64("version", change.Version))
	return nil
}
