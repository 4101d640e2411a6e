package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/smart-distancing/dashboard/internal/dashboard"
	"github.com/smart-distancing/dashboard/internal/logger"
)

// WebSocket message types
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeConnected     = "connected"
	MsgTypePong          = "pong"
	MsgTypeChartsUpdated = "charts:updated"
	MsgTypeError         = "error"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsSendBuffer = 16
)

// WSMessage is the envelope of every websocket message
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// ChartsUpdatedPayload tells clients to re-request a camera's chart images
type ChartsUpdatedPayload struct {
	CameraID string    `json:"cameraId"`
	Day      string    `json:"day"`
	Records  int       `json:"records"`
	At       time.Time `json:"at"`
}

// wsClient is one connected browser
type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub keeps the connected clients and fans out chart updates.
type Hub struct {
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
	done       chan struct{}
	mu         sync.RWMutex

	upgrader     websocket.Upgrader
	maxMessage   int64
	onClientsSet func(n int)
	log          zerolog.Logger
}

// NewHub creates a hub. maxMessage bounds client messages in bytes.
func NewHub(maxMessage int64) *Hub {
	if maxMessage <= 0 {
		maxMessage = 64 * 1024
	}
	return &Hub{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// the dashboard may be served from the analytics host
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		maxMessage: maxMessage,
		log:        logger.For("websocket"),
	}
}

// OnClientCount registers a callback run whenever the client count changes.
func (h *Hub) OnClientCount(fn func(n int)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onClientsSet = fn
}

// Run services registrations and broadcasts until ctx ends. It must be
// called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.countChanged()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debug().Str("client", client.id).Msg("client registered")
			h.countChanged()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.log.Debug().Str("client", client.id).Msg("client unregistered")
			h.countChanged()

		case message := <-h.broadcast:
			dropped := 0
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
					dropped++
				}
			}
			h.mu.Unlock()
			if dropped > 0 {
				h.log.Warn().Int("dropped", dropped).Msg("slow clients removed")
				h.countChanged()
			}
		}
	}
}

func (h *Hub) countChanged() {
	h.mu.RLock()
	fn := h.onClientsSet
	n := len(h.clients)
	h.mu.RUnlock()
	if fn != nil {
		fn(n)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastChartsUpdated queues a charts:updated message. It never blocks;
// when the queue is full the update is dropped.
func (h *Hub) BroadcastChartsUpdated(u dashboard.Update) {
	records := 0
	if len(u.Charts.Pedestrians.Series) > 0 {
		records = u.Charts.Pedestrians.Series[0].Len()
	}
	payload, err := json.Marshal(ChartsUpdatedPayload{
		CameraID: u.CameraID,
		Day:      u.Day,
		Records:  records,
		At:       u.At,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("marshal charts update")
		return
	}
	msg, err := json.Marshal(WSMessage{
		Type:      MsgTypeChartsUpdated,
		ID:        u.CameraID,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		h.log.Error().Err(err).Msg("marshal charts update")
		return
	}

	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn().Str("camera_id", u.CameraID).Msg("broadcast queue full, update dropped")
	}
}

// HandleWebSocket upgrades the connection and streams updates to it
func (h *Hub) HandleWebSocket(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, wsSendBuffer),
	}

	if hello, err := json.Marshal(WSMessage{Type: MsgTypeConnected, ID: client.id, Timestamp: time.Now().UnixMilli()}); err == nil {
		client.send <- hello
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return nil
	case <-c.Request().Context().Done():
		conn.Close()
		return nil
	}

	go h.writePump(client)
	h.readPump(client)
	return nil
}

// readPump handles client messages until the connection closes
func (h *Hub) readPump(client *wsClient) {
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.done:
		}
		client.conn.Close()
	}()

	client.conn.SetReadLimit(h.maxMessage)
	client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var msg WSMessage
		if err := client.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn().Err(err).Str("client", client.id).Msg("connection error")
			}
			return
		}
		client.conn.SetReadDeadline(time.Now().Add(wsPongWait))

		switch msg.Type {
		case MsgTypePing:
			h.enqueue(client, WSMessage{Type: MsgTypePong, ID: msg.ID, Timestamp: time.Now().UnixMilli()})
		default:
			payload, _ := json.Marshal(map[string]string{"message": "unknown message type: " + msg.Type, "code": "INVALID_TYPE"})
			h.enqueue(client, WSMessage{Type: MsgTypeError, ID: msg.ID, Payload: payload, Timestamp: time.Now().UnixMilli()})
		}
	}
}

// enqueue sends msg to one client without blocking the reader.
func (h *Hub) enqueue(client *wsClient, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[client] {
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

// writePump writes queued messages and keepalive pings
func (h *Hub) writePump(client *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
