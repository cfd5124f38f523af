package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter решает, можно ли пропустить ещё один запрос с ключом key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Decision: результат проверки лимита.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int64
	RetryAfter time.Duration
}

// tokenBucketScript атомарно пополняет и расходует корзину токенов в хэше Redis.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

if interval_ms > 0 then
	local elapsed = math.max(0, now_ms - last_refill)
	local intervals = math.floor(elapsed / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + intervals)
		last_refill = last_refill + intervals * interval_ms
	end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// RedisTokenBucket реализует распределённую корзину токенов: capacity запросов,
// один токен возвращается каждые refillEvery.
type RedisTokenBucket struct {
	rdb         redis.Scripter
	capacity    int
	refillEvery time.Duration
	prefix      string
}

// NewRedisTokenBucket создаёт ограничитель поверх клиента Redis.
func NewRedisTokenBucket(rdb redis.Scripter, capacity int, refillEvery time.Duration) *RedisTokenBucket {
	return &RedisTokenBucket{
		rdb:         rdb,
		capacity:    capacity,
		refillEvery: refillEvery,
		prefix:      "carrental:ratelimit",
	}
}

// Allow расходует один токен корзины key.
func (b *RedisTokenBucket) Allow(ctx context.Context, key string) (Decision, error) {
	ttl := time.Duration(b.capacity)*b.refillEvery + time.Minute

	vals, err := tokenBucketScript.Run(ctx, b.rdb, []string{b.prefix + ":" + key},
		time.Now().UnixMilli(),
		b.capacity,
		b.refillEvery.Milliseconds(),
		int64(ttl/time.Second),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("run token bucket script: %w", err)
	}

	return decisionFromScript(vals, b.capacity)
}

func decisionFromScript(vals []int64, capacity int) (Decision, error) {
	if len(vals) != 3 {
		return Decision{}, fmt.Errorf("unexpected token bucket result: %v", vals)
	}
	return Decision{
		Allowed:    vals[0] == 1,
		Limit:      capacity,
		Remaining:  vals[1],
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// KeyFunc выбирает корзину лимита для запроса.
type KeyFunc func(r *http.Request) string

// RateLimit ограничивает частоту запросов по ключу keyOf.
// При nil limiter ограничение отключено; ошибка хранилища лимитов не блокирует запрос.
func RateLimit(limiter Limiter, keyOf KeyFunc, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyOf(r)

			d, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))

			if !d.Allowed {
				secs := int(math.Ceil(d.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeError(w, http.StatusTooManyRequests, "TooManyRequests", "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ByClientIP ключует запрос по адресу клиента. Ставится до проверки токена.
func ByClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		host = "unknown"
	}
	return "ip:" + host
}

// ByUser ключует запрос по пользователю из токена; без Identity по адресу клиента.
func ByUser(r *http.Request) string {
	if id, ok := GetIdentity(r.Context()); ok {
		return "user:" + strconv.FormatInt(id.UserID, 10)
	}
	return ByClientIP(r)
}
