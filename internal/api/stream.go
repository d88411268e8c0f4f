package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"qiblago/pkg/heading"
)

const (
	streamWriteWait  = 5 * time.Second
	streamClientBuf  = 16
	streamPingPeriod = 30 * time.Second
)

// StreamMessage is one frame pushed on /api/stream.
type StreamMessage struct {
	heading.Update
	Status string `json:"status"`
}

type streamClient struct {
	send chan []byte
}

// StreamHub pushes every tracker update to connected websocket clients.
// It implements session.Sink.
type StreamHub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[*streamClient]struct{}

	dropped atomic.Uint64
}

// NewStreamHub creates an empty hub.
func NewStreamHub() *StreamHub {
	return &StreamHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// clients are local rendering frontends
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  slog.With("component", "stream"),
		clients: make(map[*streamClient]struct{}),
	}
}

// ClientCount returns the number of connected clients.
func (h *StreamHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many frames were discarded for slow clients.
func (h *StreamHub) Dropped() uint64 { return h.dropped.Load() }

// Update implements session.Sink. It never blocks: a client whose buffer is full misses the frame.
func (h *StreamHub) Update(u *heading.Update) {
	data, err := json.Marshal(StreamMessage{Update: *u, Status: u.Status()})
	if err != nil {
		h.logger.Error("Failed to encode stream frame", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.dropped.Add(1)
		}
	}
}

// ServeHTTP upgrades the connection and streams updates until the client goes away.
func (h *StreamHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}

	c := &streamClient{send: make(chan []byte, streamClientBuf)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("Stream client connected", "remote", r.RemoteAddr, "clients", count)

	closed := make(chan struct{})
	go h.readLoop(conn, closed)
	h.writeLoop(conn, c, closed)

	h.mu.Lock()
	delete(h.clients, c)
	count = len(h.clients)
	h.mu.Unlock()
	_ = conn.Close()
	h.logger.Info("Stream client disconnected", "remote", r.RemoteAddr, "clients", count)
}

// readLoop drains client frames so close and pong control messages are processed.
func (h *StreamHub) readLoop(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StreamHub) writeLoop(conn *websocket.Conn, c *streamClient, closed <-chan struct{}) {
	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case data := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("Stream write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
