package websocket

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/codemaze/game/grammar"
	"github.com/wricardo/mcp-training/codemaze/game/service"
	"github.com/wricardo/mcp-training/codemaze/pkg/logger"
)

// Inbound message types
const (
	TypeAnimationFinished = "animation_finished"
	TypeCodeChanged       = "code_changed"
)

// InboundMessage is a message sent by a browser client
type InboundMessage struct {
	Type string `json:"type"`

	// animation_finished
	PlaybackID string `json:"playback_id,omitempty"`
	Index      int    `json:"index"`

	// code_changed
	Content   string `json:"content,omitempty"`
	LineCount int    `json:"line_count,omitempty"`
	CaretLine int    `json:"caret_line,omitempty"`
}

// InboundHandler receives decoded client messages
type InboundHandler interface {
	HandleMessage(sessionID string, msg InboundMessage)
}

// ServiceHandler routes client messages to the game service. Editor changes
// are debounced per session before being validated.
type ServiceHandler struct {
	hub      *Hub
	service  service.GameService
	debounce *grammar.Debouncer
}

// NewServiceHandler creates a handler that answers errors through hub
func NewServiceHandler(hub *Hub, gameService service.GameService, delay time.Duration) *ServiceHandler {
	return &ServiceHandler{
		hub:      hub,
		service:  gameService,
		debounce: grammar.NewDebouncer(delay),
	}
}

// HandleMessage implements InboundHandler
func (h *ServiceHandler) HandleMessage(sessionID string, msg InboundMessage) {
	log := logger.Log.WithFields(logrus.Fields{"session": sessionID, "type": msg.Type})

	switch msg.Type {
	case TypeAnimationFinished:
		if _, err := h.service.AnimationFinished(context.Background(), sessionID, msg.PlaybackID, msg.Index); err != nil {
			log.WithError(err).Warn("animation acknowledgment failed")
			h.hub.BroadcastEvent(sessionID, EventError, err.Error())
		}

	case TypeCodeChanged:
		surface := grammar.CodeSurface{
			Content:   msg.Content,
			LineCount: msg.LineCount,
			CaretLine: msg.CaretLine,
		}
		h.debounce.Trigger(sessionID, func() {
			// Diagnostics reach the clients through the service notifier.
			if _, err := h.service.CheckCode(context.Background(), sessionID, surface); err != nil {
				log.WithError(err).Warn("code check failed")
				h.hub.BroadcastEvent(sessionID, EventError, err.Error())
			}
		})

	default:
		h.hub.BroadcastEvent(sessionID, EventError, "unknown message type: "+msg.Type)
	}
}

// Stop cancels pending debounced checks
func (h *ServiceHandler) Stop() {
	h.debounce.Stop()
}
