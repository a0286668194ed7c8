// Package fetcher performs one logical fetch through the session,
// applying the concurrency gate, retry with backoff and jitter, and
// error classification.
package fetcher

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/alvarolinarescabre/href-counter/internal/analyzer"
	"github.com/alvarolinarescabre/href-counter/internal/cache"
	"github.com/alvarolinarescabre/href-counter/internal/config"
	"github.com/alvarolinarescabre/href-counter/internal/session"
	"github.com/alvarolinarescabre/href-counter/internal/telemetry"
)

// Fetcher retrieves documents over HTTP with a bounded retry budget.
type Fetcher struct {
	session     *session.Session
	limiter     *hostLimiter
	maxRetries  int
	backoffBase time.Duration
	backoffMax  time.Duration
	logger      *zap.Logger
}

// New constructs a Fetcher bound to the given session.
func New(s *session.Session, cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		session:     s,
		limiter:     newHostLimiter(cfg.Fetch.PerHostRPS),
		maxRetries:  cfg.HTTP.MaxRetries,
		backoffBase: cfg.BackoffInitial(),
		backoffMax:  cfg.BackoffMax(),
		logger:      logger,
	}
}

// Fetch returns the body at rawURL. Malformed input fails immediately;
// a cache hit returns with no network I/O; otherwise the request runs
// under a gate permit with up to maxRetries additional attempts for
// retryable failures. The permit is released on every exit path.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if f.session.Closed() {
		return nil, analyzer.ErrSessionClosed
	}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", analyzer.ErrInvalidURL, rawURL)
	}

	store := f.session.Store()
	if store == nil {
		return nil, analyzer.ErrSessionClosed
	}
	if body, ok, cacheErr := store.Get(ctx, rawURL); cacheErr != nil {
		f.logger.Warn("cache read failed", zap.String("url", rawURL), zap.Error(cacheErr))
	} else if ok {
		telemetry.ObserveCacheLookup(true)
		f.logger.Debug("cache hit", zap.String("url", rawURL))
		return body, nil
	} else {
		telemetry.ObserveCacheLookup(false)
	}

	if err := f.session.Acquire(ctx); err != nil {
		if errors.Is(err, analyzer.ErrSessionClosed) {
			return nil, err
		}
		return nil, fmt.Errorf("acquire fetch permit: %w", err)
	}
	telemetry.IncFetchInFlight()
	defer func() {
		telemetry.DecFetchInFlight()
		f.session.Release()
	}()

	return f.fetchWithRetries(ctx, rawURL, u.Hostname(), store)
}

func (f *Fetcher) fetchWithRetries(
	ctx context.Context,
	rawURL string,
	host string,
	store cache.Store,
) ([]byte, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx, host); err != nil {
				return nil, err
			}
		}

		body, err := f.attempt(ctx, rawURL)
		if err == nil {
			telemetry.ObserveFetchAttempt(telemetry.OutcomeSuccess)
			if putErr := store.Put(ctx, rawURL, body); putErr != nil {
				f.logger.Warn("cache write failed", zap.String("url", rawURL), zap.Error(putErr))
			}
			return body, nil
		}
		if !analyzer.Retryable(err) {
			telemetry.ObserveFetchAttempt(telemetry.OutcomeTerminal)
			return nil, err
		}
		telemetry.ObserveFetchAttempt(telemetry.OutcomeRetryable)
		lastErr = err

		if attempt >= f.maxRetries {
			break
		}

		delay := f.backoff(attempt)
		telemetry.ObserveBackoff(delay)
		f.logger.Debug("retrying fetch",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("fetch aborted: %w", ctx.Err())
		case <-timer.C:
		}
	}
	return nil, &analyzer.ExhaustedError{Attempts: f.maxRetries + 1, Err: lastErr}
}

func (f *Fetcher) attempt(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", analyzer.ErrInvalidURL, err)
	}

	resp, err := f.session.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // drained below

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection returns to the pool.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &analyzer.StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// backoff computes the delay before retry attempt+1: an exponentially
// growing base capped at backoffMax, half fixed and half jittered to
// avoid synchronized retry storms.
func (f *Fetcher) backoff(attempt int) time.Duration {
	delay := float64(f.backoffBase) * math.Pow(2, float64(attempt))
	if delay > float64(f.backoffMax) {
		delay = float64(f.backoffMax)
	}
	half := time.Duration(delay / 2)
	return half + randomJitter(half)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
