// Package ratelimit throttles the login and signup forms per client IP.
//
// Two limiters are provided. MemoryLimiter is a token bucket local to the
// process and needs Run to evict idle buckets. RedisLimiter is a fixed
// window counter shared across instances; it is used whenever the directory
// cache is configured with Redis.
//
//	limiter := ratelimit.NewMemoryLimiter(ratelimit.DefaultConfig())
//	handlers.WithRateLimit(ratelimit.Middleware(limiter, cfg, logger, metrics))
//
// Requests are keyed on the connecting peer. X-Forwarded-For and X-Real-IP
// are read only when the peer falls inside Config.TrustedProxies.
//
// Both limiters fail open: a Redis outage must not lock users out of login.
package ratelimit
