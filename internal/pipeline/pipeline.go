// Package pipeline composes the fetcher and the matcher into the
// analyze operation external callers use.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alvarolinarescabre/href-counter/internal/analyzer"
	"github.com/alvarolinarescabre/href-counter/internal/fetcher"
	"github.com/alvarolinarescabre/href-counter/internal/matcher"
	"github.com/alvarolinarescabre/href-counter/internal/session"
)

// Pipeline is the sole entry point the surrounding request layer calls.
type Pipeline struct {
	session *session.Session
	fetcher *fetcher.Fetcher
	matcher *matcher.Matcher
	sites   []string
	logger  *zap.Logger
}

// New wires the pipeline over an already-constructed session.
func New(
	sess *session.Session,
	f *fetcher.Fetcher,
	m *matcher.Matcher,
	sites []string,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		session: sess,
		fetcher: f,
		matcher: m,
		sites:   sites,
		logger:  logger,
	}
}

// Analyze fetches url and returns the number of pattern matches in the
// body. Fetch errors surface unchanged; session and cache internals do
// not leak to the caller.
func (p *Pipeline) Analyze(ctx context.Context, url string) (int, error) {
	body, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", url, err)
	}
	return p.matcher.Count(body), nil
}

// AnalyzeAll runs Analyze over every configured site concurrently. The
// session gate bounds actual network concurrency. A failing site yields
// a zero count with the error recorded in its result rather than
// aborting the batch.
func (p *Pipeline) AnalyzeAll(ctx context.Context) []analyzer.Result {
	results := make([]analyzer.Result, len(p.sites))

	var g errgroup.Group
	for i, site := range p.sites {
		i, site := i, site
		g.Go(func() error {
			count, err := p.Analyze(ctx, site)
			if err != nil {
				p.logger.Warn("site analysis failed", zap.String("url", site), zap.Error(err))
				results[i] = analyzer.Result{ID: i, URL: site, Err: err.Error()}
				return nil
			}
			results[i] = analyzer.Result{ID: i, URL: site, Count: count}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures live in results
	return results
}

// Sites returns the configured analysis set.
func (p *Pipeline) Sites() []string {
	return p.sites
}

// Shutdown tears down the session and cache store. Idempotent.
func (p *Pipeline) Shutdown() error {
	if err := p.session.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}
