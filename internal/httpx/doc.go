// Package httpx provides the rate-limited JSON transport every catalog gateway
// shares.
//
// Each catalog gets its own Client carrying a golang.org/x/time/rate limiter,
// a User-Agent, and a small 429 retry budget that honours Retry-After and
// X-RateLimit-Reset. Failures come back tagged with the services error markers
// (ErrNotFound, ErrRateLimited, ErrConfiguration, ErrTransient) so callers can
// log them uniformly. No other retry policy exists anywhere in animap.
package httpx
