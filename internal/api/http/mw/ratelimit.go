package mw

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"passindexer/internal/config"
	"passindexer/internal/security"
	"passindexer/pkg/httputil"
)

// RateLimitMiddleware keeps two token buckets in redis: per client ip and per token subject.
// Redis errors fail open.
type RateLimitMiddleware struct {
	rdb      redis.Scripter
	cfg      config.RateLimitConfig
	verifier *security.RS256Verifier // optional, to key by subject before the jwt middleware ran
}

func NewRateLimit(cfg *config.RateLimitConfig, rdb redis.Scripter, verifier *security.RS256Verifier) *RateLimitMiddleware {
	if cfg == nil {
		panic("rate limit config cannot be nil")
	}
	if rdb == nil {
		panic("redis client cannot be nil")
	}

	c := *cfg
	c.ByIP = withDefaults(c.ByIP, 10, 20)
	c.ByJWT = withDefaults(c.ByJWT, 50, 100)

	return &RateLimitMiddleware{rdb: rdb, cfg: c, verifier: verifier}
}

func withDefaults(b config.RateBucketConfig, refill, burst int) config.RateBucketConfig {
	if b.RefillPerSec <= 0 {
		b.RefillPerSec = refill
	}
	if b.Burst <= 0 {
		b.Burst = burst
	}
	if b.TTL <= 0 {
		b.TTL = 2 * time.Minute
	}
	return b
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now()

		okIP, leftIP := m.allow(ctx, "rl:ip:"+clientIP(r), now, m.cfg.ByIP)
		w.Header().Set("X-RateLimit-Limit-IP", strconv.Itoa(m.cfg.ByIP.Burst))
		w.Header().Set("X-RateLimit-Remaining-IP", strconv.FormatInt(leftIP, 10))

		okJWT := true
		if sub := m.subject(r); sub != "" {
			var leftJWT int64
			okJWT, leftJWT = m.allow(ctx, "rl:jwt:"+sub, now, m.cfg.ByJWT)
			w.Header().Set("X-RateLimit-Limit-JWT", strconv.Itoa(m.cfg.ByJWT.Burst))
			w.Header().Set("X-RateLimit-Remaining-JWT", strconv.FormatInt(leftJWT, 10))
		}

		if !okIP || !okJWT {
			w.Header().Set("Retry-After", strconv.Itoa(m.calculateRetryAfter(okIP, okJWT)))
			_ = httputil.Error(w, r, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) subject(r *http.Request) string {
	if sub := SubjectFromContext(r.Context()); sub != "" {
		return sub
	}
	if m.verifier == nil {
		return ""
	}
	claims, err := m.verifier.VerifyBearer(r.Header.Get("Authorization"))
	if err != nil {
		return ""
	}
	return claims.Subject
}

// seconds until one token is back in every exhausted bucket
func (m *RateLimitMiddleware) calculateRetryAfter(okIP, okJWT bool) int {
	wait := 0.0
	if !okIP {
		wait = math.Max(wait, 1/float64(m.cfg.ByIP.RefillPerSec))
	}
	if !okJWT {
		wait = math.Max(wait, 1/float64(m.cfg.ByJWT.RefillPerSec))
	}
	return max(1, int(math.Ceil(wait)))
}

var luaTokenBucket = redis.NewScript(`
-- KEYS[1] = key
-- ARGV[1] = now_ms, ARGV[2] = refill_per_sec, ARGV[3] = burst, ARGV[4] = ttl_seconds
local key   = KEYS[1]
local now   = tonumber(ARGV[1])
local rate  = tonumber(ARGV[2])
local burst = tonumber(ARGV[3])
local ttl   = tonumber(ARGV[4])

local last_ms = tonumber(redis.call('HGET', key, 'ts') or now)
local tokens  = tonumber(redis.call('HGET', key, 'tok') or burst)

if now > last_ms then
  tokens = math.min(burst, tokens + ((now - last_ms) / 1000.0) * rate)
end

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call('HSET', key, 'tok', tokens, 'ts', now)
redis.call('EXPIRE', key, ttl)

return {allowed, math.floor(tokens)}
`)

func (m *RateLimitMiddleware) allow(ctx context.Context, key string, now time.Time, b config.RateBucketConfig) (bool, int64) {
	ttl := int(b.TTL.Seconds())
	if ttl <= 0 {
		ttl = 120
	}

	res, err := luaTokenBucket.Run(ctx, m.rdb, []string{key}, now.UnixMilli(), b.RefillPerSec, b.Burst, ttl).Int64Slice()
	if err != nil || len(res) < 2 {
		return true, int64(b.Burst)
	}

	return res[0] == 1, res[1]
}

// first X-Forwarded-For hop, then X-Real-IP, then the peer address
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}

	if xrip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xrip) != nil {
		return xrip
	}

	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if net.ParseIP(addr) == nil {
		return "unknown"
	}
	return addr
}
