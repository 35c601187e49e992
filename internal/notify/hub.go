package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Conn is one live observer channel. Send must be safe to call from any
// goroutine; the WebSocket adapter serialises writes itself.
type Conn interface {
	Send(ctx context.Context, msg Message) error
	Close() error
}

type subscription struct {
	conn        Conn
	jobID       string
	connectedAt time.Time
	lastSeen    time.Time
}

// Stats summarises the hub's subscriptions.
type Stats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveJobs       int            `json:"active_jobs"`
	ConnectionsByJob map[string]int `json:"connections_by_job"`
}

// Hub fans job notifications out to subscribed observers.
//
// The hub owns two indexes: connection id to subscription, and job id to the
// set of connection ids subscribed to it. A connection appears in at most
// one job set, and a job with no subscribers has no entry.
type Hub struct {
	mu     sync.Mutex
	conns  map[string]*subscription
	byJob  map[string]map[string]struct{}
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Hub.
type Option func(*Hub)

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		h.now = now
	}
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		conns:  make(map[string]*subscription),
		byJob:  make(map[string]map[string]struct{}),
		logger: logger.With("component", "notification_hub"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Connect registers conn as an observer of jobID and sends it a connection
// confirmation. If the confirmation cannot be delivered the connection is
// dropped and the error returned.
func (h *Hub) Connect(ctx context.Context, jobID string, conn Conn) (string, error) {
	connID := uuid.NewString()
	now := h.now()

	h.mu.Lock()
	h.conns[connID] = &subscription{
		conn:        conn,
		jobID:       jobID,
		connectedAt: now,
		lastSeen:    now,
	}
	h.subscribeLocked(connID, jobID)
	h.mu.Unlock()

	h.logger.Debug("observer connected", "connection_id", connID, "job_id", jobID)

	err := conn.Send(ctx, NewMessage(TypeConnected, jobID, map[string]any{
		"connection_id": connID,
		"message":       "Connected to job updates",
	}))
	if err != nil {
		h.Disconnect(connID)
		return "", err
	}
	return connID, nil
}

// Disconnect removes the connection and closes it. It reports whether the
// connection was registered.
func (h *Hub) Disconnect(connID string) bool {
	h.mu.Lock()
	sub, ok := h.conns[connID]
	if ok {
		delete(h.conns, connID)
		h.unsubscribeLocked(connID, sub.jobID)
	}
	h.mu.Unlock()

	if !ok {
		return false
	}

	if err := sub.conn.Close(); err != nil {
		h.logger.Debug("error closing observer connection", "connection_id", connID, "error", err)
	}
	h.logger.Debug("observer disconnected", "connection_id", connID, "job_id", sub.jobID)
	return true
}

// ChangeSubscription moves the connection's interest to newJobID.
// It returns false if the connection is unknown.
func (h *Hub) ChangeSubscription(connID, newJobID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.conns[connID]
	if !ok {
		return false
	}
	if sub.jobID == newJobID {
		return true
	}
	h.unsubscribeLocked(connID, sub.jobID)
	sub.jobID = newJobID
	h.subscribeLocked(connID, newJobID)
	return true
}

// Broadcast delivers msg to every observer of jobID and returns the number
// of successful deliveries. A failed delivery disconnects that observer and
// does not affect the others.
func (h *Hub) Broadcast(ctx context.Context, jobID string, msg Message) int {
	h.mu.Lock()
	ids := h.byJob[jobID]
	targets := make(map[string]Conn, len(ids))
	for id := range ids {
		targets[id] = h.conns[id].conn
	}
	h.mu.Unlock()

	delivered := 0
	for id, conn := range targets {
		if err := conn.Send(ctx, msg); err != nil {
			h.logger.Debug("dropping observer after failed delivery",
				"connection_id", id,
				"job_id", jobID,
				"error", err)
			h.Disconnect(id)
			continue
		}
		delivered++
	}
	return delivered
}

// SendTo delivers msg to a single connection, disconnecting it on failure.
func (h *Hub) SendTo(ctx context.Context, connID string, msg Message) bool {
	h.mu.Lock()
	sub, ok := h.conns[connID]
	h.mu.Unlock()
	if !ok {
		return false
	}
	if err := sub.conn.Send(ctx, msg); err != nil {
		h.Disconnect(connID)
		return false
	}
	return true
}

// Touch records a liveness signal for the connection.
func (h *Hub) Touch(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.conns[connID]; ok {
		sub.lastSeen = h.now()
	}
}

// HandleInbound processes one message received from an observer. Problems
// are reported back to the sender as error messages and never returned.
func (h *Hub) HandleInbound(ctx context.Context, connID string, raw []byte) {
	h.Touch(connID)

	var in inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		h.SendTo(ctx, connID, NewMessage(TypeError, "", map[string]any{
			"message": "Invalid JSON message format",
		}))
		return
	}

	switch in.Type {
	case "ping":
		h.SendTo(ctx, connID, NewMessage(TypePong, "", nil))
	case "subscribe":
		if in.JobID == "" {
			h.SendTo(ctx, connID, NewMessage(TypeError, "", map[string]any{
				"message": "subscribe requires job_id",
			}))
			return
		}
		if h.ChangeSubscription(connID, in.JobID) {
			h.SendTo(ctx, connID, NewMessage(TypeEcho, in.JobID, map[string]any{
				"message": "Subscribed to job updates",
			}))
		}
	default:
		h.SendTo(ctx, connID, NewMessage(TypeError, "", map[string]any{
			"message": "Unknown message type: " + in.Type,
		}))
	}
}

// SweepStale disconnects every connection whose last liveness signal is
// older than timeout and returns how many were removed.
func (h *Hub) SweepStale(timeout time.Duration) int {
	cutoff := h.now().Add(-timeout)

	h.mu.Lock()
	var stale []string
	for id, sub := range h.conns {
		if sub.lastSeen.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	h.mu.Unlock()

	removed := 0
	for _, id := range stale {
		if h.Disconnect(id) {
			removed++
		}
	}
	if removed > 0 {
		h.logger.Info("removed stale observers", "count", removed, "timeout", timeout)
	}
	return removed
}

// Stats returns a snapshot of the subscription indexes.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	byJob := make(map[string]int, len(h.byJob))
	for jobID, ids := range h.byJob {
		byJob[jobID] = len(ids)
	}
	return Stats{
		TotalConnections: len(h.conns),
		ActiveJobs:       len(h.byJob),
		ConnectionsByJob: byJob,
	}
}

// SubscriberCount returns the number of observers of jobID.
func (h *Hub) SubscriberCount(jobID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.byJob[jobID])
}

// CloseAll disconnects every observer. Used at shutdown.
func (h *Hub) CloseAll() int {
	h.mu.Lock()
	ids := make([]string, 0, len(h.conns))
	for id := range h.conns {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	closed := 0
	for _, id := range ids {
		if h.Disconnect(id) {
			closed++
		}
	}
	return closed
}

func (h *Hub) subscribeLocked(connID, jobID string) {
	set, ok := h.byJob[jobID]
	if !ok {
		set = make(map[string]struct{})
		h.byJob[jobID] = set
	}
	set[connID] = struct{}{}
}

func (h *Hub) unsubscribeLocked(connID, jobID string) {
	set, ok := h.byJob[jobID]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(h.byJob, jobID)
	}
}
