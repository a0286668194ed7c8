package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alvarolinarescabre/href-counter/internal/analyzer"
	"github.com/alvarolinarescabre/href-counter/internal/cache"
	"github.com/alvarolinarescabre/href-counter/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{
			TimeoutSeconds: 5,
			UserAgent:      "Mozilla/5.0 (compatible; HrefCounter/1.0)",
			Accept:         "text/html,application/xhtml+xml",
		},
		Fetch: config.FetchConfig{GateMultiplier: 2},
	}
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	store := cache.NewMemory(16, time.Minute)
	return New(testConfig(), store, zap.NewNop())
}

func TestSessionAppliesDefaultHeaders(t *testing.T) {
	t.Parallel()

	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := newTestSession(t)
	defer s.Close() //nolint:errcheck // teardown

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := s.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	require.Equal(t, "Mozilla/5.0 (compatible; HrefCounter/1.0)", gotUA)
	require.Equal(t, "text/html,application/xhtml+xml", gotAccept)
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.True(t, s.Closed())
}

func TestSessionRejectsUseAfterClose(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	require.NoError(t, s.Close())

	err := s.Acquire(context.Background())
	require.ErrorIs(t, err, analyzer.ErrSessionClosed)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://example.com", nil)
	require.NoError(t, err)
	_, err = s.Do(req)
	require.ErrorIs(t, err, analyzer.ErrSessionClosed)

	require.Nil(t, s.Store())
}

func TestSessionGateBoundsPermits(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	defer s.Close() //nolint:errcheck // teardown

	ctx := context.Background()
	capacity := int(s.GateCapacity())
	require.GreaterOrEqual(t, capacity, 1)

	for i := 0; i < capacity; i++ {
		require.NoError(t, s.Acquire(ctx))
	}

	// With every permit held, a further acquire must suspend until the
	// deadline fires.
	blocked, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	err := s.Acquire(blocked)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	s.Release()
	require.NoError(t, s.Acquire(ctx))

	for i := 0; i < capacity; i++ {
		s.Release()
	}
}
