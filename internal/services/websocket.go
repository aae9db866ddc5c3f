package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/GeorgeTG/oracle/internal/events"
)

// wsConn is the slice of *websocket.Conn the broadcaster needs. Tests
// substitute an in-memory implementation.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// wsClient wraps one connection with a write lock; gorilla connections
// allow only one concurrent writer.
type wsClient struct {
	mu   sync.Mutex
	conn wsConn
}

func (c *wsClient) send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// WebSocketService fans selected bus events out to connected UI clients.
// Each frame is the event's JSON body with a "type" field injected so
// clients can dispatch without knowing the envelope in advance.
type WebSocketService struct {
	bus *events.Bus
	log *logrus.Entry

	mu      sync.Mutex
	clients map[string]*wsClient

	now func() time.Time
}

// WebSocketServiceDescriptor names the service for container registration.
var WebSocketServiceDescriptor = Descriptor{
	Name:    "WebSocketService",
	Version: "1.0.0",
}

// NewWebSocketService builds the broadcaster and subscribes it to every
// event type the UI consumes.
func NewWebSocketService(bus *events.Bus, log *logrus.Entry) *WebSocketService {
	s := &WebSocketService{
		bus:     bus,
		log:     log,
		clients: make(map[string]*wsClient),
		now:     time.Now,
	}

	broadcast := []events.Type{
		events.TypeMapStarted,
		events.TypeMapFinished,
		events.TypeMapRecord,
		events.TypeStatsUpdate,
		events.TypePlayerJoin,
		events.TypeSessionStarted,
		events.TypeSessionFinished,
		events.TypeSessionRestore,
		events.TypeNotification,
		events.TypeMarketAction,
		events.TypeMarketTransaction,
		events.TypeLevelProgress,
	}
	for _, eventType := range broadcast {
		bus.Subscribe(eventType, WebSocketServiceDescriptor.Name, s.onEvent)
	}
	return s
}

func (s *WebSocketService) Descriptor() Descriptor { return WebSocketServiceDescriptor }

func (s *WebSocketService) Startup(ctx context.Context) error { return nil }

func (s *WebSocketService) PostStartup(ctx context.Context) error { return nil }

// Shutdown closes every client connection.
func (s *WebSocketService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	clients := s.clients
	s.clients = make(map[string]*wsClient)
	s.mu.Unlock()

	for id, client := range clients {
		if err := client.conn.Close(); err != nil {
			s.log.WithError(err).WithField("client_id", id).Debug("Error closing client connection")
		}
	}
	s.log.WithField("clients", len(clients)).Info("Closed websocket clients")
	return nil
}

// ClientCount reports the number of attached clients.
func (s *WebSocketService) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Attach registers a connection and blocks reading it until the client
// goes away. Inbound frames are discarded; the socket is broadcast-only.
func (s *WebSocketService) Attach(conn wsConn) {
	id := uuid.NewString()
	client := &wsClient{conn: conn}

	s.mu.Lock()
	s.clients[id] = client
	total := len(s.clients)
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"client_id": id, "clients": total}).Info("Client connected")
	s.bus.Publish(events.WebSocketConnectedEvent{Timestamp: s.now(), ClientID: id})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.detach(id)
}

func (s *WebSocketService) detach(id string) {
	s.mu.Lock()
	client, known := s.clients[id]
	delete(s.clients, id)
	total := len(s.clients)
	s.mu.Unlock()

	if !known {
		return
	}
	client.conn.Close()

	s.log.WithFields(logrus.Fields{"client_id": id, "clients": total}).Info("Client disconnected")
	s.bus.Publish(events.WebSocketDisconnectedEvent{Timestamp: s.now(), ClientID: id})
}

func (s *WebSocketService) onEvent(event events.Event) {
	payload, err := envelope(event)
	if err != nil {
		s.log.WithError(err).WithField("type", event.EventType()).Error("Failed to serialize event")
		return
	}

	s.mu.Lock()
	targets := make(map[string]*wsClient, len(s.clients))
	for id, client := range s.clients {
		targets[id] = client
	}
	s.mu.Unlock()

	for id, client := range targets {
		if err := client.send(payload); err != nil {
			s.log.WithError(err).WithField("client_id", id).Warn("Failed to send, dropping client")
			s.detach(id)
		}
	}
}

// envelope re-marshals the event with its type injected alongside the
// event's own fields.
func envelope(event events.Event) ([]byte, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	body["type"] = string(event.EventType())

	return json.Marshal(body)
}
