package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/phrazzld/blogtube-api/internal/domain"
	"github.com/phrazzld/blogtube-api/internal/jobs"
	"github.com/phrazzld/blogtube-api/internal/notify"
	"github.com/phrazzld/blogtube-api/internal/platform/logger"
)

// CloseJobNotFound is the close code sent when an observer asks for an
// unknown job.
const CloseJobNotFound = 4004

const (
	writeWait      = 10 * time.Second
	maxInboundSize = 4096
)

// ObserverHub is the part of notify.Hub the WebSocket handler needs.
type ObserverHub interface {
	Connect(ctx context.Context, jobID string, conn notify.Conn) (string, error)
	Disconnect(connID string) bool
	HandleInbound(ctx context.Context, connID string, raw []byte)
	Touch(connID string)
	Stats() notify.Stats
}

// JobLookup finds a job by id.
type JobLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Job, error)
}

// WSHandler upgrades observer connections and hands them to the hub.
type WSHandler struct {
	hub       ObserverHub
	jobs      JobLookup
	admission Admission
	heartbeat time.Duration
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

// NewWSHandler creates a WSHandler. The server pings each observer every
// heartbeat and expects a pong within two heartbeats.
func NewWSHandler(hub ObserverHub, jobLookup JobLookup, admission Admission, heartbeat time.Duration, logger *slog.Logger) *WSHandler {
	if hub == nil || jobLookup == nil || admission == nil {
		panic("websocket handler dependencies cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil for WSHandler")
	}
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &WSHandler{
		hub:       hub,
		jobs:      jobLookup,
		admission: admission,
		heartbeat: heartbeat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "ws_handler")),
	}
}

// ObserveJob handles GET /api/jobs/{id}/ws.
func (h *WSHandler) ObserveJob(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Debug("websocket upgrade failed", "error", err)
		return
	}
	conn := newWSConn(ws)

	id, err := getPathUUID(r, "id")
	if err == nil {
		_, err = h.jobs.Get(r.Context(), id)
	}
	if err != nil {
		code, reason := CloseJobNotFound, "Job not found"
		if !errors.Is(err, jobs.ErrNotFound) && !errors.Is(err, jobs.ErrInvalidRequest) {
			code, reason = websocket.CloseInternalServerErr, "Internal error"
			log.Error("failed to look up observed job", "error", err)
		}
		conn.closeWith(code, reason)
		return
	}

	// The request context ends when this handler returns, which is when the
	// read loop below exits.
	ctx := r.Context()
	connID, err := h.hub.Connect(ctx, id.String(), conn)
	if err != nil {
		log.Debug("observer dropped during connect", "job_id", id, "error", err)
		return
	}
	defer h.hub.Disconnect(connID)

	pongWait := 2 * h.heartbeat
	ws.SetReadLimit(maxInboundSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		h.hub.Touch(connID)
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	go conn.pingLoop(h.heartbeat, stop)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("observer connection closed", "connection_id", connID, "error", err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		h.hub.HandleInbound(ctx, connID, data)
	}
}

// ObserveSystem handles GET /api/ws/system. It pushes a system_stats
// message immediately and then every heartbeat until the client leaves.
func (h *WSHandler) ObserveSystem(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Debug("websocket upgrade failed", "error", err)
		return
	}
	conn := newWSConn(ws)
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reading is only needed to notice the client going away.
	go func() {
		defer cancel()
		ws.SetReadLimit(maxInboundSize)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		if err := conn.Send(ctx, h.systemStats()); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *WSHandler) systemStats() notify.Message {
	return notify.NewMessage(notify.TypeSystemStats, "", map[string]any{
		"active_jobs":     h.admission.ActiveCount(),
		"max_concurrent":  h.admission.Capacity(),
		"can_accept_jobs": h.admission.CanAdmit(),
		"websocket_stats": h.hub.Stats(),
	})
}

// wsConn adapts a gorilla connection to notify.Conn. Data frames are
// serialised by mu; pings go through WriteControl, which gorilla allows
// concurrently with other writes.
type wsConn struct {
	ws        *websocket.Conn
	mu        sync.Mutex
	closeOnce sync.Once
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{ws: ws}
}

// Send writes msg as a JSON text frame.
func (c *wsConn) Send(ctx context.Context, msg notify.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteJSON(msg)
}

// Close sends a normal close frame and closes the connection.
func (c *wsConn) Close() error {
	return c.closeWith(websocket.CloseNormalClosure, "")
}

func (c *wsConn) closeWith(code int, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(writeWait))
		err = c.ws.Close()
	})
	return err
}

func (c *wsConn) pingLoop(period time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
