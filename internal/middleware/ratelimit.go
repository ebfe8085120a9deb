package middleware

import (
    "fmt"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
)

// HoldRateLimit returns a middleware enforcing the per-session cap on
// hold-grant requests (default 5 per minute).  The bucket lives in
// Redis so the cap holds across replicas.  Sessions are identified by
// the X-Session-ID header, falling back to the client IP for callers
// that only send the session in the body.  When rdb is nil the limiter
// is disabled and requests pass through.
func HoldRateLimit(rdb *redis.Client, perMinute int) echo.MiddlewareFunc {
    if rdb == nil || perMinute <= 0 {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return func(c echo.Context) error { return next(c) } }
    }

    interval := time.Minute / time.Duration(perMinute)

    limiterScript := redis.NewScript(`
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

        local elapsed = math.max(0, now_ms - last_refill)
        local intervals = math.floor(elapsed / interval_ms)
        if intervals > 0 then
            tokens = math.min(capacity, tokens + intervals)
            last_refill = last_refill + (intervals * interval_ms)
        end

        local allowed = 0
        local retry_after_ms = 0
        if tokens > 0 then
            allowed = 1
            tokens = tokens - 1
        else
            local until_next = interval_ms - (now_ms - last_refill)
            if until_next < 0 then until_next = 0 end
            retry_after_ms = until_next
        end

        redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
        redis.call('EXPIRE', key, ttl_seconds)

        return { allowed, tokens, retry_after_ms }
    `)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := "hold_rl:" + sessionKey(c)
            args := []interface{}{
                time.Now().UnixMilli(),
                perMinute,
                interval.Milliseconds(),
                int64((10 * time.Minute) / time.Second),
            }
            vals, err := limiterScript.Run(c.Request().Context(), rdb, []string{key}, args...).Result()
            if err != nil {
                // Redis down: let the request through, the conditional
                // updates downstream stay correct without the limiter.
                return next(c)
            }
            res, ok := vals.([]interface{})
            if !ok || len(res) < 3 {
                return next(c)
            }
            allowed, _ := res[0].(int64)
            if allowed == 1 {
                return next(c)
            }
            retryMs, _ := res[2].(int64)
            c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", (retryMs+999)/1000))
            return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many hold requests, slow down"})
        }
    }
}

func sessionKey(c echo.Context) string {
    if sid := c.Request().Header.Get("X-Session-ID"); sid != "" {
        return sid
    }
    return "ip:" + c.RealIP()
}
