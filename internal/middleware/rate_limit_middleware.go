package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/yourusername/newedenfaces-api/internal/config"
)

// RateLimitConfig содержит настройки rate limiting
type RateLimitConfig struct {
	// MaxRequests — максимальное количество запросов за Window; 0 отключает лимит
	MaxRequests int
	// Window — временное окно для подсчёта запросов
	Window time.Duration
	// KeyPrefix — префикс для ключей в Redis
	KeyPrefix string
}

// VoteRateLimitConfig лимит на PUT /api/characters (голосование)
func VoteRateLimitConfig(cfg config.RateLimitConfig) RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: enabledLimit(cfg, cfg.VotesPerMinute),
		Window:      time.Minute,
		KeyPrefix:   "rl:vote",
	}
}

// RegisterRateLimitConfig строгий лимит на POST /api/characters: каждая регистрация
// делает до двух запросов к EVE API
func RegisterRateLimitConfig(cfg config.RateLimitConfig) RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: enabledLimit(cfg, cfg.RegisterPerMinute),
		Window:      time.Minute,
		KeyPrefix:   "rl:register",
	}
}

func enabledLimit(cfg config.RateLimitConfig, perMinute int) int {
	if !cfg.Enabled {
		return 0
	}
	return perMinute
}

// RateLimiter создаёт middleware для rate limiting на основе Redis
type RateLimiter struct {
	redisClient redis.UniversalClient
}

// NewRateLimiter создает новый RateLimiter
func NewRateLimiter(redisClient redis.UniversalClient) *RateLimiter {
	return &RateLimiter{redisClient: redisClient}
}

// Limit возвращает Gin middleware с заданной конфигурацией.
// Ключ формируется из IP + endpoint path + метод, т.к. GET и PUT делят один путь.
func (rl *RateLimiter) Limit(cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil || rl.redisClient == nil || cfg.MaxRequests <= 0 {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		path := c.FullPath() // Gin route pattern, e.g. "/api/characters"
		if path == "" {
			path = c.Request.URL.Path
		}

		key := fmt.Sprintf("%s:%s:%s:%s", cfg.KeyPrefix, clientIP, c.Request.Method, path)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		// Инкрементируем счётчик
		count, err := rl.redisClient.Incr(ctx, key).Result()
		if err != nil {
			// При ошибке Redis пропускаем запрос (fail-open), но логируем
			log.Printf("[RateLimiter] Redis error for key %s: %v. Allowing request (fail-open).", key, err)
			c.Next()
			return
		}

		remaining := cfg.MaxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}

		// TTL ставится на первом запросе окна. Если прошлый EXPIRE не прошёл,
		// ключ остался без срока жизни и переустанавливается здесь.
		ttl, ttlErr := rl.redisClient.TTL(ctx, key).Result()
		if needsExpire(count, ttl, ttlErr) {
			if err := rl.redisClient.Expire(ctx, key, cfg.Window).Err(); err != nil {
				log.Printf("[RateLimiter] Failed to set TTL for key %s: %v", key, err)
			} else {
				ttl = cfg.Window
			}
		}
		retryAfter := int(ttl.Seconds())
		if retryAfter < 0 {
			retryAfter = int(cfg.Window.Seconds())
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", retryAfter))

		if int(count) > cfg.MaxRequests {
			log.Printf("[RateLimiter] Rate limit exceeded for IP=%s %s %s. Count=%d, Limit=%d",
				clientIP, c.Request.Method, path, count, cfg.MaxRequests)

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message": "Too many requests. Please try again later.",
			})
			return
		}

		c.Next()
	}
}

// ttlNoExpiry — ответ TTL для ключа без срока жизни (go-redis отдаёт -1 как есть)
const ttlNoExpiry = time.Duration(-1)

// needsExpire решает, нужно ли (пере)установить TTL счётчика
func needsExpire(count int64, ttl time.Duration, ttlErr error) bool {
	if count == 1 {
		return true
	}
	return ttlErr == nil && ttl == ttlNoExpiry
}
