package handler

import (
	"io"
	"time"

	"paynow-terminal-gateway/internal/adapter/http/dto"
	"paynow-terminal-gateway/internal/core/domain"
	"paynow-terminal-gateway/internal/core/ports"
	"paynow-terminal-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// DefaultHeartbeatInterval keeps idle SSE connections alive through
// intermediaries that reap quiet streams.
const DefaultHeartbeatInterval = 15 * time.Second

// DisplayHandler streams terminal snapshots to display clients over
// server-sent events.
type DisplayHandler struct {
	dispatcher ports.Dispatcher
	heartbeat  time.Duration
	log        zerolog.Logger
}

// NewDisplayHandler creates a new DisplayHandler. heartbeat <= 0 selects
// the default interval.
func NewDisplayHandler(dispatcher ports.Dispatcher, heartbeat time.Duration, log zerolog.Logger) *DisplayHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeatInterval
	}
	return &DisplayHandler{dispatcher: dispatcher, heartbeat: heartbeat, log: log}
}

// Stream handles GET /api/v1/terminals/:id/events. The first event is
// always the replay of the terminal's current state; the stream then
// follows every state change until the client disconnects.
func (h *DisplayHandler) Stream(c *gin.Context) {
	terminalID := c.Param("id")

	sub, err := h.dispatcher.Attach(c.Request.Context(), terminalID)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer h.dispatcher.Detach(sub)

	h.log.Info().Str("terminal_id", terminalID).Msg("display attached")
	defer h.log.Info().Str("terminal_id", terminalID).Msg("display detached")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case snapshot, ok := <-sub.Snapshots():
			if !ok {
				// Registry dropped us (slow consumer); end the stream so
				// the client reconnects and gets a fresh replay.
				return false
			}
			c.SSEvent("snapshot", toSnapshotEvent(snapshot))
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().UTC().Format(time.RFC3339))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// toSnapshotEvent converts a domain.TerminalSnapshot to its SSE DTO. A
// resolved intent's event carries identity and status only: the display
// already holds the payable details from the pending snapshot, and there is
// no reason to keep pushing the payload and QR after the sale closed.
func toSnapshotEvent(s domain.TerminalSnapshot) dto.SnapshotEvent {
	event := dto.SnapshotEvent{
		TerminalID: s.TerminalID,
		AsOf:       s.AsOf.Format(time.RFC3339),
	}
	switch {
	case s.Intent == nil:
	case s.Intent.IsTerminal():
		resp := &dto.IntentResponse{
			ID:         s.Intent.ID.String(),
			TerminalID: s.Intent.TerminalID,
			Status:     string(s.Intent.Status),
		}
		if s.Intent.ResolvedAt != nil {
			at := s.Intent.ResolvedAt.Format(time.RFC3339)
			resp.ResolvedAt = &at
		}
		event.Intent = resp
	default:
		event.Intent = toIntentResponse(s.Intent)
	}
	return event
}
