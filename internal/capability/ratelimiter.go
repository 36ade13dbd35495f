package capability

import (
	"context"
	"time"

	"github.com/go-chi/httprate"
)

// HTTPRateLimiter is the default in-memory RateLimiter, grounded on
// go-chi/httprate's sliding-window limiter (the same package
// volaticloud depends on for HTTP-layer rate limiting), driven directly
// by key rather than through its http.Handler middleware form since the
// core checks a key abstractly (spec §6.4: "check(key) -> Ok |
// RateLimited; returns immediately").
type HTTPRateLimiter struct {
	limiter *httprate.RateLimiter
}

// NewHTTPRateLimiter builds a limiter allowing requestLimit checks per
// windowLength for any given key.
func NewHTTPRateLimiter(requestLimit int, windowLength time.Duration) *HTTPRateLimiter {
	return &HTTPRateLimiter{limiter: httprate.NewRateLimiter(requestLimit, windowLength)}
}

func (r *HTTPRateLimiter) Check(_ context.Context, key string) (RateLimitResult, error) {
	ok, _, err := r.limiter.Status(key)
	if err != nil {
		return RateLimitOK, err
	}
	if !ok {
		return RateLimited, nil
	}
	return RateLimitOK, nil
}
