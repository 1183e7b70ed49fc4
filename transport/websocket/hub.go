package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/codemaze/game/engine"
	"github.com/wricardo/mcp-training/codemaze/game/grammar"
	"github.com/wricardo/mcp-training/codemaze/pkg/logger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer; code_changed carries the editor content.
	maxMessageSize = 16 * 1024

	// Pending outbound messages before Notify calls start dropping.
	broadcastBuffer = 256
)

// Outbound events
const (
	EventStateUpdate    = "state_update"
	EventAnimationFrame = "animation_frame"
	EventDiagnostics    = "diagnostics"
	EventError          = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		return true
	},
}

// Message represents an outbound WebSocket message
type Message struct {
	SessionID   string                 `json:"session_id"`
	Event       string                 `json:"event"`
	State       *engine.ExecutionState `json:"state,omitempty"`
	Frame       *engine.AnimationFrame `json:"frame,omitempty"`
	Diagnostics *grammar.Result        `json:"diagnostics,omitempty"`
	Data        interface{}            `json:"data,omitempty"`
}

// Client represents a WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients by session ID
	sessions map[string]map[*Client]bool

	// Version of the last state_update sent per session
	versions map[string]uint64

	// Outbound messages for a session's clients
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Receives decoded client messages; nil drops them
	handler InboundHandler
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		versions:   make(map[string]uint64),
		broadcast:  make(chan *Message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// SetHandler installs the handler for inbound client messages. Call before Run.
func (h *Hub) SetHandler(handler InboundHandler) {
	h.handler = handler
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// ServeWS handles WebSocket requests from clients
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
	}

	client.hub.register <- client

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// NotifyState sends an execution state update to all clients in a session
func (h *Hub) NotifyState(sessionID string, state engine.ExecutionState) {
	h.enqueue(&Message{SessionID: sessionID, Event: EventStateUpdate, State: &state})
}

// NotifyFrame asks the session's clients to animate one action
func (h *Hub) NotifyFrame(sessionID string, frame engine.AnimationFrame) {
	h.enqueue(&Message{SessionID: sessionID, Event: EventAnimationFrame, Frame: &frame})
}

// NotifyDiagnostics sends the latest validation pass to the session's clients
func (h *Hub) NotifyDiagnostics(sessionID string, result grammar.Result) {
	h.enqueue(&Message{SessionID: sessionID, Event: EventDiagnostics, Diagnostics: &result})
}

// BroadcastEvent sends a custom event to all clients in a session
func (h *Hub) BroadcastEvent(sessionID string, event string, data interface{}) {
	h.enqueue(&Message{SessionID: sessionID, Event: event, Data: data})
}

// enqueue hands a message to the event loop without blocking the caller.
func (h *Hub) enqueue(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		logger.Log.WithFields(logrus.Fields{
			"session": message.SessionID,
			"event":   message.Event,
		}).Warn("websocket broadcast queue full, dropping message")
	}
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	logger.Log.WithFields(logrus.Fields{
		"session": client.sessionID,
		"clients": len(h.sessions[client.sessionID]),
	}).Debug("websocket client registered")
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.sessions[client.sessionID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			// Clean up empty sessions
			if len(clients) == 0 {
				delete(h.sessions, client.sessionID)
				delete(h.versions, client.sessionID)
			}

			logger.Log.WithFields(logrus.Fields{
				"session":   client.sessionID,
				"remaining": len(clients),
			}).Debug("websocket client unregistered")
		}
	}
}

// broadcastMessage sends a message to all clients in a session. A state
// update older than the last one sent to the session is dropped.
func (h *Hub) broadcastMessage(message *Message) {
	clients, ok := h.sessions[message.SessionID]
	if !ok {
		return
	}

	if message.State != nil && message.State.Version != 0 {
		if message.State.Version < h.versions[message.SessionID] {
			logger.Log.WithFields(logrus.Fields{
				"session": message.SessionID,
				"version": message.State.Version,
			}).Debug("dropping stale state update")
			return
		}
		h.versions[message.SessionID] = message.State.Version
	}

	data, err := json.Marshal(message)
	if err != nil {
		logger.Log.WithError(err).Error("failed to marshal broadcast message")
		return
	}

	for client := range clients {
		select {
		case client.send <- data:
		default:
			h.unregisterClient(client)
		}
	}
}

// readPump pumps messages from the WebSocket connection to the inbound handler
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.WithError(err).WithField("session", c.sessionID).Warn("websocket read error")
			}
			break
		}

		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.BroadcastEvent(c.sessionID, EventError, "invalid message: "+err.Error())
			continue
		}
		if c.hub.handler != nil {
			c.hub.handler.HandleMessage(c.sessionID, msg)
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON message per frame so clients can parse each independently.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
