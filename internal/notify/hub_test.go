package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	sent     []Message
	failSend bool
	closed   bool
}

func (c *fakeConn) Send(_ context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend || c.closed {
		return errors.New("broken pipe")
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *fakeConn) last() Message {
	msgs := c.messages()
	return msgs[len(msgs)-1]
}

func (c *fakeConn) setFail(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failSend = v
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHub_ConnectSendsConfirmation(t *testing.T) {
	t.Parallel()

	hub := NewHub(testLogger())
	conn := &fakeConn{}

	id, err := hub.Connect(context.Background(), "job-1", conn)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := conn.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, TypeConnected, msgs[0].Type)
	assert.Equal(t, "job-1", msgs[0].JobID)
	assert.Equal(t, id, msgs[0].Data["connection_id"])
	assert.Equal(t, "Connected to job updates", msgs[0].Data["message"])
	assert.Equal(t, 1, hub.SubscriberCount("job-1"))
}

func TestHub_ConnectFailsWhenConfirmationFails(t *testing.T) {
	t.Parallel()

	hub := NewHub(testLogger())
	conn := &fakeConn{failSend: true}

	_, err := hub.Connect(context.Background(), "job-1", conn)
	require.Error(t, err)
	assert.Equal(t, 0, hub.Stats().TotalConnections)
	assert.Equal(t, 0, hub.Stats().ActiveJobs)
	assert.True(t, conn.isClosed())
}

// Two observers receive a broadcast; after one disconnects only the other
// does, and the leaver never receives anything again.
func TestHub_BroadcastAndDisconnect(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hub := NewHub(testLogger())
	a, b := &fakeConn{}, &fakeConn{}

	idA, err := hub.Connect(ctx, "J", a)
	require.NoError(t, err)
	_, err = hub.Connect(ctx, "J", b)
	require.NoError(t, err)

	msg := NewMessage(TypeJobUpdate, "J", map[string]any{"status": "validating"})
	assert.Equal(t, 2, hub.Broadcast(ctx, "J", msg))

	require.True(t, hub.Disconnect(idA))
	assert.False(t, hub.Disconnect(idA))
	assert.True(t, a.isClosed())

	assert.Equal(t, 1, hub.Broadcast(ctx, "J", msg))
	assert.Len(t, a.messages(), 2, "connected + first broadcast only")
	assert.Len(t, b.messages(), 3)
}

func TestHub_LastDisconnectPrunesJobEntry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hub := NewHub(testLogger())

	id, err := hub.Connect(ctx, "J", &fakeConn{})
	require.NoError(t, err)
	require.Contains(t, hub.Stats().ConnectionsByJob, "J")

	hub.Disconnect(id)

	stats := hub.Stats()
	assert.NotContains(t, stats.ConnectionsByJob, "J")
	assert.Equal(t, 0, stats.ActiveJobs)
	assert.Equal(t, 0, hub.Broadcast(ctx, "J", NewMessage(TypeJobUpdate, "J", nil)))
}

func TestHub_BroadcastDropsFailingObserver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hub := NewHub(testLogger())
	good, bad := &fakeConn{}, &fakeConn{}

	_, err := hub.Connect(ctx, "J", good)
	require.NoError(t, err)
	_, err = hub.Connect(ctx, "J", bad)
	require.NoError(t, err)

	bad.setFail(true)
	assert.Equal(t, 1, hub.Broadcast(ctx, "J", NewMessage(TypeProgressUpdate, "J", nil)))
	assert.True(t, bad.isClosed())
	assert.Equal(t, 1, hub.SubscriberCount("J"))
	assert.Equal(t, 1, hub.Stats().TotalConnections)
}

func TestHub_ChangeSubscription(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hub := NewHub(testLogger())
	conn := &fakeConn{}

	id, err := hub.Connect(ctx, "old", conn)
	require.NoError(t, err)

	require.True(t, hub.ChangeSubscription(id, "new"))
	assert.False(t, hub.ChangeSubscription("unknown", "new"))

	stats := hub.Stats()
	assert.Equal(t, map[string]int{"new": 1}, stats.ConnectionsByJob)
	assert.Equal(t, 0, hub.Broadcast(ctx, "old", NewMessage(TypeJobUpdate, "old", nil)))
	assert.Equal(t, 1, hub.Broadcast(ctx, "new", NewMessage(TypeJobUpdate, "new", nil)))

	// Re-subscribing to the same job never duplicates the connection.
	require.True(t, hub.ChangeSubscription(id, "new"))
	assert.Equal(t, 1, hub.SubscriberCount("new"))
}

func TestHub_HandleInbound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hub := NewHub(testLogger())
	conn := &fakeConn{}

	id, err := hub.Connect(ctx, "J", conn)
	require.NoError(t, err)

	hub.HandleInbound(ctx, id, []byte(`{"type":"ping"}`))
	assert.Equal(t, TypePong, conn.last().Type)

	hub.HandleInbound(ctx, id, []byte(`not json`))
	assert.Equal(t, TypeError, conn.last().Type)
	assert.Equal(t, "Invalid JSON message format", conn.last().Data["message"])

	hub.HandleInbound(ctx, id, []byte(`{"type":"dance"}`))
	assert.Equal(t, TypeError, conn.last().Type)
	assert.Equal(t, "Unknown message type: dance", conn.last().Data["message"])

	hub.HandleInbound(ctx, id, []byte(`{"type":"subscribe"}`))
	assert.Equal(t, TypeError, conn.last().Type)

	hub.HandleInbound(ctx, id, []byte(`{"type":"subscribe","job_id":"K"}`))
	assert.Equal(t, TypeEcho, conn.last().Type)
	assert.Equal(t, "K", conn.last().JobID)
	assert.Equal(t, 0, hub.SubscriberCount("J"))
	assert.Equal(t, 1, hub.SubscriberCount("K"))

	assert.Equal(t, 1, hub.Stats().TotalConnections, "malformed input keeps the connection open")
}

func TestHub_SweepStale(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}

	hub := NewHub(testLogger(), WithClock(clock))
	quiet, chatty := &fakeConn{}, &fakeConn{}

	_, err := hub.Connect(ctx, "J", quiet)
	require.NoError(t, err)
	chattyID, err := hub.Connect(ctx, "J", chatty)
	require.NoError(t, err)

	advance(45 * time.Second)
	hub.HandleInbound(ctx, chattyID, []byte(`{"type":"ping"}`))
	advance(30 * time.Second)

	assert.Equal(t, 1, hub.SweepStale(60*time.Second))
	assert.True(t, quiet.isClosed())
	assert.False(t, chatty.isClosed())
	assert.Equal(t, 1, hub.SubscriberCount("J"))
	assert.Equal(t, 0, hub.SweepStale(60*time.Second))
}

func TestHub_CloseAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hub := NewHub(testLogger())
	conns := []*fakeConn{{}, {}, {}}
	for i, c := range conns {
		_, err := hub.Connect(ctx, string(rune('a'+i)), c)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, hub.CloseAll())
	for _, c := range conns {
		assert.True(t, c.isClosed())
	}
	assert.Equal(t, Stats{ConnectionsByJob: map[string]int{}}, hub.Stats())
}

func TestMessage_JSONShape(t *testing.T) {
	t.Parallel()

	msg := NewMessage(TypeJobUpdate, "J", map[string]any{"status": "completed"})
	b, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "job_update", decoded["type"])
	assert.Equal(t, "J", decoded["job_id"])
	assert.Equal(t, map[string]any{"status": "completed"}, decoded["data"])
	_, err = time.Parse(time.RFC3339Nano, decoded["timestamp"].(string))
	assert.NoError(t, err)
}

func TestHub_ConcurrentBroadcastAndChurn(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hub := NewHub(testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			id, err := hub.Connect(ctx, "J", &fakeConn{})
			if err == nil {
				hub.Disconnect(id)
			}
		}()
		go func() {
			defer wg.Done()
			hub.Broadcast(ctx, "J", NewMessage(TypeJobUpdate, "J", nil))
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.Stats().TotalConnections)
	assert.Equal(t, 0, hub.Stats().ActiveJobs)
}
