package broker

import "golang.org/x/time/rate"

// RateLimiter is a token bucket of capacity equal to the configured rate
// (tokens-per-second), refilling uniformly at that same rate. It wraps
// golang.org/x/time/rate.Limiter the way
// ws/internal/shared/limits.ConnectionRateLimiter does, narrowed to a
// single bucket per connection instead of a per-IP map, per spec.md
// §4.3: "each connection that sees a non-zero rate owns its own
// limiter".
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a limiter with capacity and refill rate both
// equal to perSecond. A non-positive perSecond means no rate is
// configured, in which case the caller should not construct a
// RateLimiter at all (nil limiter means unthrottled, see Check).
func NewRateLimiter(perSecond int) *RateLimiter {
	if perSecond <= 0 {
		return nil
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), perSecond)}
}

// Check consumes one token and reports success, or fails without
// blocking when none is available. A nil *RateLimiter always passes,
// matching "when no rate is configured the limiter is absent and every
// command passes."
func (r *RateLimiter) Check() bool {
	if r == nil {
		return true
	}
	return r.limiter.Allow()
}
