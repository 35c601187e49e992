package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/blogtube-api/internal/api/shared"
	"github.com/phrazzld/blogtube-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestTrace(t *testing.T) {
	t.Parallel()

	var seenTrace string
	var hasLogger bool
	handler := NewTraceMiddleware(nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seenTrace = shared.GetTraceID(r.Context())
		hasLogger = logger.FromContext(r.Context()) != nil
	}))

	t.Run("generates", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Len(t, seenTrace, 32)
		assert.Equal(t, seenTrace, w.Header().Get(shared.TraceIDHeader))
		assert.True(t, hasLogger)
	})

	t.Run("propagates incoming", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(shared.TraceIDHeader, "upstream-123456")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, "upstream-123456", seenTrace)
		assert.Equal(t, "upstream-123456", w.Header().Get(shared.TraceIDHeader))
	})
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	calls := 0
	handler := RateLimit(rate.NewLimiter(rate.Limit(0.001), 2))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusAccepted)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/jobs", nil))
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
		}
	}

	assert.Equal(t, []int{http.StatusAccepted, http.StatusAccepted, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 2, calls)
}
