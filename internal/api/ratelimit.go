package api

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// IPRateLimiter keeps one token bucket per client address. It protects the
// renderer pool from a single noisy client.
type IPRateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	perMin   int
	burst    int
	logger   *slog.Logger
}

func NewIPRateLimiter(perMinute, burst int, logger *slog.Logger) *IPRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &IPRateLimiter{
		rate:   rate.Every(time.Minute / time.Duration(perMinute)),
		perMin: perMinute,
		burst:  burst,
		logger: logger.With("component", "rate_limiter"),
	}
}

func (i *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	limiter, exists := i.limiters.Load(ip)
	if !exists {
		limiter, _ = i.limiters.LoadOrStore(ip, rate.NewLimiter(i.rate, i.burst))
	}
	return limiter.(*rate.Limiter)
}

func (i *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(i.perMin))

		if !i.getLimiter(ip).Allow() {
			i.logger.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(int(time.Minute/time.Duration(i.perMin)/time.Second)+1))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"too many requests"}` + "\n"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr, which chi's RealIP has already
// replaced with the forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
