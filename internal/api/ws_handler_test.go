package api

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/phrazzld/blogtube-api/internal/domain"
	"github.com/phrazzld/blogtube-api/internal/jobs"
	"github.com/phrazzld/blogtube-api/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jobLookupFunc func(ctx context.Context, id uuid.UUID) (*domain.Job, error)

func (f jobLookupFunc) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) { return f(ctx, id) }

func wsServer(t *testing.T, hub *notify.Hub, known uuid.UUID, heartbeat time.Duration) *httptest.Server {
	t.Helper()
	lookup := jobLookupFunc(func(_ context.Context, id uuid.UUID) (*domain.Job, error) {
		if id == known {
			return testJob(domain.JobStatusGenerating), nil
		}
		return nil, jobs.ErrNotFound
	})
	h := NewWSHandler(hub, lookup, stubAdmission{active: 2, capacity: 5}, heartbeat, testLogger)

	r := chi.NewRouter()
	r.Get("/api/jobs/{id}/ws", h.ObserveJob)
	r.Get("/api/ws/system", h.ObserveSystem)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) notify.Message {
	t.Helper()
	var msg notify.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestObserveJob_UnknownJobClosesWith4004(t *testing.T) {
	t.Parallel()

	srv := wsServer(t, notify.NewHub(testLogger), uuid.New(), time.Second)
	conn := dial(t, srv, "/api/jobs/"+uuid.NewString()+"/ws")

	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.True(t, errors.As(err, &closeErr), "expected close error, got %v", err)
	assert.Equal(t, CloseJobNotFound, closeErr.Code)
	assert.Equal(t, "Job not found", closeErr.Text)
}

func TestObserveJob_ReceivesUpdates(t *testing.T) {
	t.Parallel()

	hub := notify.NewHub(testLogger)
	id := uuid.New()
	srv := wsServer(t, hub, id, time.Second)
	conn := dial(t, srv, "/api/jobs/"+id.String()+"/ws")

	connected := readMessage(t, conn)
	assert.Equal(t, notify.TypeConnected, connected.Type)
	assert.Equal(t, id.String(), connected.JobID)
	require.Eventually(t, func() bool { return hub.SubscriberCount(id.String()) == 1 }, time.Second, 10*time.Millisecond)

	delivered := hub.Broadcast(context.Background(), id.String(), notify.NewMessage(notify.TypeJobUpdate, id.String(), map[string]any{
		"status": "generating",
	}))
	assert.Equal(t, 1, delivered)
	update := readMessage(t, conn)
	assert.Equal(t, notify.TypeJobUpdate, update.Type)
	assert.Equal(t, "generating", update.Data["status"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, notify.TypePong, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, notify.TypeError, readMessage(t, conn).Type)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.SubscriberCount(id.String()) == 0 }, time.Second, 10*time.Millisecond)
}

func TestObserveSystem_PushesStats(t *testing.T) {
	t.Parallel()

	srv := wsServer(t, notify.NewHub(testLogger), uuid.New(), 50*time.Millisecond)
	conn := dial(t, srv, "/api/ws/system")

	first := readMessage(t, conn)
	assert.Equal(t, notify.TypeSystemStats, first.Type)
	assert.EqualValues(t, 2, first.Data["active_jobs"])
	assert.Equal(t, true, first.Data["can_accept_jobs"])

	assert.Equal(t, notify.TypeSystemStats, readMessage(t, conn).Type)
}
