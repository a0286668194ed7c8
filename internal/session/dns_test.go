package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolverCacheServesFromCacheWithinTTL(t *testing.T) {
	t.Parallel()

	lookups := 0
	r := newResolverCache(5 * time.Minute)
	r.lookup = func(_ context.Context, host string) ([]string, error) {
		lookups++
		require.Equal(t, "example.com", host)
		return []string{"93.184.216.34"}, nil
	}

	base := time.Now()
	r.now = func() time.Time { return base }

	for i := 0; i < 3; i++ {
		addrs, err := r.lookupHost(context.Background(), "example.com")
		require.NoError(t, err)
		require.Equal(t, []string{"93.184.216.34"}, addrs)
	}
	require.Equal(t, 1, lookups)
}

func TestResolverCacheRefreshesAfterTTL(t *testing.T) {
	t.Parallel()

	lookups := 0
	r := newResolverCache(5 * time.Minute)
	r.lookup = func(_ context.Context, _ string) ([]string, error) {
		lookups++
		return []string{"10.0.0.1"}, nil
	}

	base := time.Now()
	r.now = func() time.Time { return base }
	_, err := r.lookupHost(context.Background(), "example.com")
	require.NoError(t, err)

	r.now = func() time.Time { return base.Add(5*time.Minute + time.Second) }
	_, err = r.lookupHost(context.Background(), "example.com")
	require.NoError(t, err)
	require.Equal(t, 2, lookups)
}

func TestResolverCacheDoesNotCacheFailures(t *testing.T) {
	t.Parallel()

	lookups := 0
	r := newResolverCache(5 * time.Minute)
	r.lookup = func(_ context.Context, _ string) ([]string, error) {
		lookups++
		if lookups == 1 {
			return nil, errors.New("no such host")
		}
		return []string{"10.0.0.2"}, nil
	}

	_, err := r.lookupHost(context.Background(), "example.com")
	require.Error(t, err)

	addrs, err := r.lookupHost(context.Background(), "example.com")
	require.NoError(t, err)
	require.Equal(t, []string{"10.0.0.2"}, addrs)
	require.Equal(t, 2, lookups)
}
