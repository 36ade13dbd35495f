package capability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/n9te9/federation-core/internal/capability"
)

type flakyFetcher struct {
	failures int
	calls    int
}

func (f *flakyFetcher) Fetch(_ context.Context, _ capability.SubgraphRequest) (*capability.SubgraphResponse, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("subgraph unavailable")
	}
	return &capability.SubgraphResponse{Data: map[string]interface{}{"ok": true}}, nil
}

func TestRetryingFetcherRetriesWithinBudget(t *testing.T) {
	inner := &flakyFetcher{failures: 2}
	f := capability.NewRetryingFetcher(inner, capability.RetryConfig{
		MinPerSecond: 10,
		TTL:          time.Second,
		RetryPercent: 0.5,
	})

	resp, err := f.Fetch(context.Background(), capability.SubgraphRequest{Query: "query { x }"})
	if err != nil {
		t.Fatalf("expected the retried call to eventually succeed, got %v", err)
	}
	if resp.Data["ok"] != true {
		t.Fatalf("expected the successful response to be returned, got %v", resp.Data)
	}
	if inner.calls < 3 {
		t.Fatalf("expected at least 3 attempts, got %d", inner.calls)
	}
}

func TestRetryingFetcherSkipsMutationsByDefault(t *testing.T) {
	inner := &flakyFetcher{failures: 1}
	f := capability.NewRetryingFetcher(inner, capability.RetryConfig{
		MinPerSecond: 10,
		TTL:          time.Second,
		RetryPercent: 0.5,
		RetryMutations: false,
	})

	_, err := f.Fetch(context.Background(), capability.SubgraphRequest{Query: "mutation { x }"})
	if err == nil {
		t.Fatalf("expected the single failed mutation attempt to surface as an error")
	}
	if inner.calls != 1 {
		t.Fatalf("expected exactly one attempt for a non-retried mutation, got %d", inner.calls)
	}
}

func TestRetryingFetcherExhaustsBudgetEventually(t *testing.T) {
	inner := &flakyFetcher{failures: 1000}
	f := capability.NewRetryingFetcher(inner, capability.RetryConfig{
		MinPerSecond: 1,
		TTL:          time.Millisecond,
		RetryPercent: 0.5,
	})

	_, err := f.Fetch(context.Background(), capability.SubgraphRequest{Query: "query { x }"})
	if err == nil {
		t.Fatalf("expected a persistently failing subgraph to eventually exhaust the retry budget")
	}
}
