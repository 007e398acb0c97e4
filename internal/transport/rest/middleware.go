package rest

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/httprate"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
	redisinfra "github.com/baechuer/real-time-ressys/services/registration-service/internal/infrastructure/redis"
	appCtx "github.com/baechuer/real-time-ressys/services/registration-service/internal/pkg/context"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/pkg/logger"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/security"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/transport/rest/response"
)

// RateLimiter is the shared fixed-window counter (redis).
type RateLimiter interface {
	AllowFixedWindow(ctx context.Context, key string, limit int, window time.Duration) (redisinfra.Decision, error)
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	response.Fail(w, http.StatusUnauthorized, "unauthorized", "missing or invalid access token", nil,
		appCtx.GetRequestID(r.Context()))
}

func AuthMiddleware(verifier security.AccessTokenVerifier) func(next http.Handler) http.Handler {
	if verifier == nil {
		panic("AuthMiddleware: nil verifier")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := strings.TrimSpace(r.Header.Get("Authorization"))
			parts := strings.SplitN(h, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w, r)
				return
			}

			raw := strings.TrimSpace(parts[1])
			if raw == "" {
				unauthorized(w, r)
				return
			}

			claims, err := verifier.VerifyAccessToken(raw)
			if err != nil {
				unauthorized(w, r)
				return
			}
			if strings.TrimSpace(claims.UserID) == "" {
				unauthorized(w, r)
				return
			}

			ctx := withAuth(r.Context(), AuthContext{
				UserID: claims.UserID,
				Role:   strings.TrimSpace(claims.Role),
				Ver:    claims.Ver,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must run after AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, ok := GetAuth(r.Context())
		if !ok {
			unauthorized(w, r)
			return
		}
		if a.Role != security.RoleAdmin {
			response.Err(w, r, domain.ErrForbidden("admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimitMiddleware counts requests per client IP under prefix. With a nil
// limiter it falls back to an in-process httprate counter. Redis failures
// let the request through.
func RateLimitMiddleware(limiter RateLimiter, prefix string, limit int, window time.Duration) func(next http.Handler) http.Handler {
	if limiter == nil {
		return httprate.Limit(limit, window,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				tooManyRequests(w, r, window)
			}),
		)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := limiter.AllowFixedWindow(r.Context(), prefix+":"+clientIP(r), limit, window)
			if err != nil {
				logger.WithCtx(r.Context()).Warn().Err(err).Str("limiter", prefix).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				tooManyRequests(w, r, d.RetryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tooManyRequests(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	secs := int(retryAfter.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	response.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil,
		appCtx.GetRequestID(r.Context()))
}

// clientIP is the RemoteAddr host part. middleware.RealIP runs first and
// rewrites RemoteAddr from X-Forwarded-For / X-Real-IP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// restrictive policy for a JSON/CSV API
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=(), usb=(), bluetooth=()")

		next.ServeHTTP(w, r)
	})
}
