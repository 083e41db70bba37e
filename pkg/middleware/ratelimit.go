package middleware

import (
	"net"
	"net/http"

	"review-catalog/pkg/utils"

	"go.uber.org/zap"
)

// Limiter is satisfied by ratelimit.KeyedLimiter.
type Limiter interface {
	Allow(key string) bool
}

// RateLimit throttles requests per client address. Place it after
// chi's RealIP so proxied clients are keyed by their own address.
func RateLimit(limiter Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)

			if !limiter.Allow(key) {
				logger.Warn("Rate limit exceeded",
					zap.String("ip", key),
					zap.String("path", r.URL.Path))
				utils.ResponseTooManyRequests(w, "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
