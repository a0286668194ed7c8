// Package session owns the process-wide HTTP fetch resources: the pooled
// connection transport, the DNS resolution cache, default headers, the
// response cache handle and the concurrency gate.
package session

import (
	"context"
	"net"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/alvarolinarescabre/href-counter/internal/analyzer"
	"github.com/alvarolinarescabre/href-counter/internal/cache"
	"github.com/alvarolinarescabre/href-counter/internal/config"
)

// Session is constructed once at process start and passed by reference
// into every fetch. Close is idempotent; no operation is valid afterward.
type Session struct {
	client    *http.Client
	transport *http.Transport
	store     cache.Store
	gate      *semaphore.Weighted
	gateCap   int64
	headers   http.Header
	logger    *zap.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New builds the Session from the loaded configuration. The transport
// keeps at most 100 pooled connections and caps open connections per
// host; the gate is what bounds total in-flight fetches. Every dial goes
// through the DNS resolution cache.
func New(cfg *config.Config, store cache.Store, logger *zap.Logger) *Session {
	resolver := newResolverCache(dnsTTL)
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           resolver.dialContext(dialer),
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       100,
		IdleConnTimeout:       90 * time.Second,
	}

	headers := http.Header{}
	headers.Set("User-Agent", cfg.HTTP.UserAgent)
	headers.Set("Accept", cfg.HTTP.Accept)

	capacity := int64(runtime.NumCPU() * cfg.Fetch.GateMultiplier)
	if capacity < 1 {
		capacity = 1
	}

	return &Session{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout(),
		},
		transport: transport,
		store:     store,
		gate:      semaphore.NewWeighted(capacity),
		gateCap:   capacity,
		headers:   headers,
		logger:    logger,
	}
}

// Acquire claims a fetch permit, suspending until one is free or the
// context finishes. Fails fast on a closed session.
func (s *Session) Acquire(ctx context.Context) error {
	if s.closed.Load() {
		return analyzer.ErrSessionClosed
	}
	if err := s.gate.Acquire(ctx, 1); err != nil {
		return err
	}
	return nil
}

// Release returns a fetch permit.
func (s *Session) Release() {
	s.gate.Release(1)
}

// GateCapacity reports the number of permits the gate was sized with.
func (s *Session) GateCapacity() int64 {
	return s.gateCap
}

// Do executes the request with the session's default headers applied.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	if s.closed.Load() {
		return nil, analyzer.ErrSessionClosed
	}
	for key, values := range s.headers {
		if req.Header.Get(key) == "" {
			for _, v := range values {
				req.Header.Add(key, v)
			}
		}
	}
	return s.client.Do(req) //nolint:wrapcheck // callers classify the raw transport error
}

// Store exposes the response cache handle.
func (s *Session) Store() cache.Store {
	if s.closed.Load() {
		return nil
	}
	return s.store
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// Close tears down the connection pool and the cache store. Subsequent
// calls are no-ops returning the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.transport.CloseIdleConnections()
		if err := s.store.Close(); err != nil {
			s.closeErr = err
		}
		s.logger.Info("session closed")
	})
	return s.closeErr
}
