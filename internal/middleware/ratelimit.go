package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/florist-storefront/internal/ratelimit"
)

// RateLimit ограничивает частоту запросов одного клиента к обёрнутым маршрутам.
func RateLimit(l *ratelimit.Limiter, opts ratelimit.Options, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			res := l.Check(ip, opts)

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetTime.UnixMilli(), 10))

			if !res.Allowed {
				retryAfter := int(math.Ceil(time.Until(res.ResetTime).Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				logger.Info("rate limit exceeded", zap.String("ip", ip), zap.String("path", r.URL.Path))

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeFail(w, http.StatusTooManyRequests, "Too many requests, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP определяет адрес клиента по заголовкам прокси: cf-connecting-ip, затем первый адрес
// x-forwarded-for, затем x-real-ip. Без заголовков возвращается "unknown".
func ClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("Cf-Connecting-Ip")); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip := strings.TrimSpace(strings.Split(fwd, ",")[0]); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-Ip")); ip != "" {
		return ip
	}
	return "unknown"
}

// writeFail отвечает в общем формате API: {"success":false,"error":...}.
func writeFail(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}{Error: msg})
}
