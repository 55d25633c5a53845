package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/auth"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/config"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
)

const rateWindow = time.Minute

// RateLimiter throttles API traffic in three buckets. Anonymous calls share a
// bucket per client address, signed-in tenants and landlords get one each,
// and event stream connects are counted on their own so a browser stuck in
// an EventSource reconnect loop cannot starve the caller's regular requests.
type RateLimiter struct {
	cfg    *config.RateLimitConfig
	logger *zap.Logger

	anonymous func(http.Handler) http.Handler
	perUser   func(http.Handler) http.Handler
	streams   func(http.Handler) http.Handler

	exemptIPs      map[string]struct{}
	exemptPaths    map[string]struct{}
	exemptPrefixes []string
}

// NewRateLimiter creates a rate limiter. A whitelist path ending in /* exempts
// everything under it.
func NewRateLimiter(cfg *config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		cfg:         cfg,
		logger:      logger,
		exemptIPs:   make(map[string]struct{}, len(cfg.WhitelistIPs)),
		exemptPaths: make(map[string]struct{}, len(cfg.WhitelistPaths)),
	}
	for _, ip := range cfg.WhitelistIPs {
		rl.exemptIPs[ip] = struct{}{}
	}
	for _, path := range cfg.WhitelistPaths {
		if prefix, ok := strings.CutSuffix(path, "/*"); ok {
			rl.exemptPrefixes = append(rl.exemptPrefixes, prefix+"/")
			continue
		}
		rl.exemptPaths[path] = struct{}{}
	}

	streamLimit := cfg.StreamConnectsPerMinute
	if streamLimit <= 0 {
		streamLimit = cfg.RequestsPerMinute
	}

	rl.anonymous = rl.bucket(cfg.RequestsPerMinute, httprate.KeyByIP)
	rl.perUser = rl.bucket(cfg.RequestsPerMinuteAuth, callerKey)
	rl.streams = rl.bucket(streamLimit, func(r *http.Request) (string, error) {
		key, err := callerKey(r)
		return "stream:" + key, err
	})

	logger.Info("rate limiter initialized",
		zap.Int("requestsPerMinute", cfg.RequestsPerMinute),
		zap.Int("requestsPerMinuteAuth", cfg.RequestsPerMinuteAuth),
		zap.Int("streamConnectsPerMinute", streamLimit),
		zap.Strings("whitelistIPs", cfg.WhitelistIPs),
		zap.Strings("whitelistPaths", cfg.WhitelistPaths),
	)

	return rl
}

func (rl *RateLimiter) bucket(limit int, key httprate.KeyFunc) func(http.Handler) http.Handler {
	return httprate.Limit(limit, rateWindow,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(rl.tooManyRequests),
	)
}

// Limit throttles authenticated routes per user. It must run after the auth
// middleware, otherwise every caller falls into the anonymous bucket.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	if !rl.cfg.Enabled {
		return next
	}

	anonymous, perUser, streams := rl.anonymous(next), rl.perUser(next), rl.streams(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case rl.exempt(r):
			next.ServeHTTP(w, r)
		case auth.IsStreamPath(r.URL.Path):
			streams.ServeHTTP(w, r)
		default:
			if _, ok := auth.FromContext(r.Context()); ok {
				perUser.ServeHTTP(w, r)
				return
			}
			anonymous.ServeHTTP(w, r)
		}
	})
}

// LimitByIP throttles by client address before authentication has run.
// Stream connects still go to their own bucket.
func (rl *RateLimiter) LimitByIP(next http.Handler) http.Handler {
	if !rl.cfg.Enabled {
		return next
	}

	anonymous, streams := rl.anonymous(next), rl.streams(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case rl.exempt(r):
			next.ServeHTTP(w, r)
		case auth.IsStreamPath(r.URL.Path):
			streams.ServeHTTP(w, r)
		default:
			anonymous.ServeHTTP(w, r)
		}
	})
}

func (rl *RateLimiter) exempt(r *http.Request) bool {
	if _, ok := rl.exemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range rl.exemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	_, ok := rl.exemptIPs[clientIP(r)]
	return ok
}

// callerKey buckets by user id once authenticated. API key callers all act as
// the system identity and share one bucket.
func callerKey(r *http.Request) (string, error) {
	if userCtx, ok := auth.FromContext(r.Context()); ok {
		return "user:" + userCtx.UserID, nil
	}
	return "ip:" + clientIP(r), nil
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func (rl *RateLimiter) tooManyRequests(w http.ResponseWriter, r *http.Request) {
	fields := []zap.Field{
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
		zap.String("clientIp", clientIP(r)),
	}
	if userCtx, ok := auth.FromContext(r.Context()); ok {
		fields = append(fields, zap.String("userId", userCtx.UserID))
	}
	rl.logger.Warn("rate limit exceeded", fields...)

	detail := "Too many requests. Please try again later."
	if auth.IsStreamPath(r.URL.Path) {
		detail = "Too many event stream reconnects. Please wait before reconnecting."
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(int(rateWindow.Seconds())))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(domain.APIError{
		Type:   "rate_limited",
		Title:  http.StatusText(http.StatusTooManyRequests),
		Status: http.StatusTooManyRequests,
		Detail: detail,
	})
}
