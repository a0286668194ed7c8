package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollectorsReadyAtLoad(t *testing.T) {
	ObserveFetchAttempt(OutcomeSuccess)
	require.GreaterOrEqual(t, testutil.ToFloat64(fetchAttemptsTotal.WithLabelValues(OutcomeSuccess)), 1.0)

	ObserveCacheLookup(true)
	require.GreaterOrEqual(t, testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("hit")), 1.0)

	ObserveCacheLookup(false)
	require.GreaterOrEqual(t, testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("miss")), 1.0)
}

func TestInFlightGaugeTracksPermits(t *testing.T) {
	before := testutil.ToFloat64(fetchInFlight)

	IncFetchInFlight()
	require.Equal(t, before+1, testutil.ToFloat64(fetchInFlight))

	DecFetchInFlight()
	require.Equal(t, before, testutil.ToFloat64(fetchInFlight))
}

func TestObserveHTTPRequest(t *testing.T) {
	ObserveHTTPRequest(http.MethodGet, "/v1/count", http.StatusOK, 120*time.Millisecond)
	require.GreaterOrEqual(t, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")), 1.0)
}

func TestHandlerServesMetrics(t *testing.T) {
	ObserveBackoff(50 * time.Millisecond)

	ts := httptest.NewServer(Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck // test teardown

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "counter_fetch_backoff_seconds")
}
