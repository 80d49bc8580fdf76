package capture

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type outbound struct {
	kind int
	data []byte
}

type subscriber struct {
	ws     *websocket.Conn
	send   chan outbound
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

func (s *subscriber) enqueue(msg outbound) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()
	s.ws.Close()
}

// Hub fans status updates (text JSON) and rendered frames (binary JPEG) out
// to websocket subscribers. Slow subscribers drop frames rather than block
// the capture loop.
type Hub struct {
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	last        []byte
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:      logger.With("component", "ws_hub"),
		subscribers: make(map[*subscriber]struct{}),
	}
}

func (h *Hub) Active() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers) > 0
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *Hub) PublishStatus(s Status) {
	data, err := json.Marshal(s)
	if err != nil {
		h.logger.Error("failed to marshal status", "error", err)
		return
	}

	h.mu.Lock()
	h.last = data
	h.mu.Unlock()

	h.broadcast(outbound{kind: websocket.TextMessage, data: data})
}

func (h *Hub) PublishFrame(frame []byte) {
	h.broadcast(outbound{kind: websocket.BinaryMessage, data: frame})
}

func (h *Hub) broadcast(msg outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers {
		sub.enqueue(msg)
	}
}

// Serve upgrades the request and blocks until the subscriber disconnects.
func (h *Hub) Serve(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return err
	}

	sub := &subscriber{
		ws:   ws,
		send: make(chan outbound, sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	last := h.last
	h.mu.Unlock()

	if last != nil {
		sub.enqueue(outbound{kind: websocket.TextMessage, data: last})
	}
	h.logger.Info("subscriber connected", "remote", c.RealIP())

	go h.writePump(sub)
	h.readPump(sub)

	h.mu.Lock()
	delete(h.subscribers, sub)
	h.mu.Unlock()

	h.logger.Info("subscriber disconnected", "remote", c.RealIP())
	return nil
}

func (h *Hub) readPump(sub *subscriber) {
	defer sub.close()

	sub.ws.SetReadLimit(maxMessageSize)
	_ = sub.ws.SetReadDeadline(time.Now().Add(pongWait))
	sub.ws.SetPongHandler(func(string) error {
		_ = sub.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := sub.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", "error", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.close()
	}()

	for {
		select {
		case <-sub.done:
			return
		case msg := <-sub.send:
			_ = sub.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.ws.WriteMessage(msg.kind, msg.data); err != nil {
				h.logger.Debug("websocket write error", "error", err)
				return
			}
		case <-ticker.C:
			_ = sub.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
