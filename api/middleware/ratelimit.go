package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/2501Pr0ject/Scrapinium-sub000/config"
	"github.com/2501Pr0ject/Scrapinium-sub000/metrics"
	"github.com/2501Pr0ject/Scrapinium-sub000/models"
	"github.com/2501Pr0ject/Scrapinium-sub000/ratelimit"
)

// RateLimit gates every request through the per-client limiter. The
// request-size check runs first so oversize bodies are refused before
// they consume quota.
func RateLimit(limiter *ratelimit.Limiter, cfg config.RateLimitConfig, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		if cfg.MaxRequestSize > 0 && c.Request.ContentLength > cfg.MaxRequestSize {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				models.Fail("request body too large", models.ErrorDetail{
					Kind:      models.ErrKindTooLarge,
					Message:   fmt.Sprintf("body exceeds %d bytes", cfg.MaxRequestSize),
					Timestamp: time.Now().Unix(),
				}))
			return
		}

		class := ratelimit.Classify(c.FullPath())
		clientID := ratelimit.ClientID(c.ClientIP(), c.GetHeader("User-Agent"))

		decision := limiter.Allow(clientID, class, observationFrom(c))

		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", fmt.Sprintf("%d", decision.Limit))
		h.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))
		if decision.Allowed {
			h.Set("X-RateLimit-Reset", fmt.Sprintf("%d", decision.Reset.Unix()))
			if nearLimit(decision.Limit, decision.Remaining) {
				h.Set("X-RateLimit-Warning", "minute quota nearly exhausted")
			}
		}

		if !decision.Allowed {
			retryAfter := int(decision.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			h.Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			if m != nil {
				m.RateLimitDenied.WithLabelValues(decision.Reason).Inc()
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				models.Fail("rate limit exceeded", models.ErrorDetail{
					Kind:      models.ErrKindRateLimit,
					Message:   fmt.Sprintf("limited (%s), retry in %ds", decision.Reason, retryAfter),
					Timestamp: time.Now().Unix(),
				}))
			return
		}

		c.Next()
	}
}

// nearLimit reports whether fewer than 10% of the minute quota remains.
func nearLimit(limit, remaining int) bool {
	return limit > 0 && remaining*10 < limit
}

func observationFrom(c *gin.Context) ratelimit.Observation {
	headerSize := 0
	for k, vs := range c.Request.Header {
		headerSize += len(k)
		for _, v := range vs {
			headerSize += len(v)
		}
	}
	return ratelimit.Observation{
		UserAgent:  c.GetHeader("User-Agent"),
		Path:       c.Request.URL.Path,
		RawQuery:   c.Request.URL.RawQuery,
		HeaderSize: headerSize,
	}
}
