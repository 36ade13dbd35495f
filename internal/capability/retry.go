package capability

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig governs RetryingFetcher (spec §6.5's retry: {enabled,
// min_per_second, ttl, retry_percent, retry_mutations}). Retry
// accounting does not affect the scheduler's state (spec §6.3): a
// retried call still resolves to exactly one SubgraphResponse or one
// error from the scheduler's perspective.
type RetryConfig struct {
	MinPerSecond   float64
	TTL            time.Duration
	RetryPercent   float64
	RetryMutations bool
}

// RetryingFetcher wraps a Fetcher with cenkalti/backoff/v5-driven retry
// of idempotent subgraph calls, bounded by a token-bucket budget so a
// persistently failing subgraph cannot multiply load across retries.
type RetryingFetcher struct {
	inner  Fetcher
	cfg    RetryConfig
	budget *budget
}

// NewRetryingFetcher wraps inner with retry behavior per cfg. A
// RetryPercent of 0 or less disables retries entirely: the first failed
// attempt is returned as the error.
func NewRetryingFetcher(inner Fetcher, cfg RetryConfig) *RetryingFetcher {
	return &RetryingFetcher{
		inner:  inner,
		cfg:    cfg,
		budget: newBudget(cfg.MinPerSecond, cfg.TTL),
	}
}

func (f *RetryingFetcher) Fetch(ctx context.Context, req SubgraphRequest) (*SubgraphResponse, error) {
	if !f.cfg.RetryMutations && isMutationQuery(req.Query) {
		return f.inner.Fetch(ctx, req)
	}

	f.budget.deposit(1)

	op := func() (*SubgraphResponse, error) {
		resp, err := f.inner.Fetch(ctx, req)
		if err != nil {
			return nil, err
		}
		return resp, nil
	}

	notRetriable := func(resp *SubgraphResponse, err error) error {
		if err == nil {
			return nil
		}
		if f.cfg.RetryPercent <= 0 || !f.budget.withdraw(1/f.cfg.RetryPercent) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(ctx, func() (*SubgraphResponse, error) {
		resp, err := op()
		if rerr := notRetriable(resp, err); rerr != nil {
			return nil, rerr
		}
		return resp, err
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(5))
}

func isMutationQuery(query string) bool {
	return strings.HasPrefix(strings.TrimSpace(query), "mutation")
}

// budget is a token-bucket retry budget in the shape Finagle and
// gRPC-go's retry throttling both use: every Fetch call deposits one
// token, every retry withdraws 1/RetryPercent tokens, and retries stop
// once the balance cannot cover a withdrawal. MinPerSecond keeps a floor of allowed retries
// even under light traffic by seeding the initial balance and
// regenerating it over TTL.
type budget struct {
	mu       sync.Mutex
	tokens   float64
	max      float64
	refillPS float64
	last     time.Time
}

func newBudget(minPerSecond float64, ttl time.Duration) *budget {
	max := minPerSecond * ttl.Seconds()
	if max <= 0 {
		max = 1
	}
	return &budget{tokens: max, max: max, refillPS: minPerSecond, last: time.Now()}
}

func (b *budget) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(b.last).Seconds()
	b.last = now
	b.tokens += elapsed * b.refillPS
	if b.tokens > b.max {
		b.tokens = b.max
	}
}

func (b *budget) deposit(n float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	b.tokens += n
	if b.tokens > b.max {
		b.tokens = b.max
	}
}

func (b *budget) withdraw(n float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	if b.tokens < n {
		return false
	}
	b.tokens -= n
	return true
}
