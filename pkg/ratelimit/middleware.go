package ratelimit

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/tendant/legendboard/pkg/audit"
	"github.com/tendant/legendboard/pkg/errors"
	"github.com/tendant/legendboard/pkg/utils"
)

// Middleware enforces the class budget per client address. Requests over
// budget get a 429 and never reach next. Store failures let the request
// through. A nil Limiter passes every request.
func (l *Limiter) Middleware(class Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		p, ok := l.Policy(class)
		if !ok {
			return next
		}
		if p.FailuresOnly {
			return l.failuresOnly(class, next)
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r)
			d, err := l.Allow(r.Context(), class, ip)
			if err != nil {
				l.logger.Error("Rate limit store failed, allowing request", "class", class, "err", err)
			}
			if !d.Allowed {
				l.reject(w, r, class, ip, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// failuresOnly reserves a unit before next runs so parallel attempts
// cannot outrun the budget, then refunds it unless the attempt failed.
func (l *Limiter) failuresOnly(class Class, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := utils.ClientIP(r)
		d, err := l.Allow(r.Context(), class, ip)
		if err != nil {
			l.logger.Error("Rate limit store failed, allowing request", "class", class, "err", err)
			next.ServeHTTP(w, r)
			return
		}
		if !d.Allowed {
			l.refund(r, class, ip)
			l.reject(w, r, class, ip, d)
			return
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status < 400 || status >= 500 || status == http.StatusTooManyRequests {
			l.refund(r, class, ip)
		}
	})
}

func (l *Limiter) refund(r *http.Request, class Class, ip string) {
	// the client may be gone; the refund must still land
	ctx := context.WithoutCancel(r.Context())
	if err := l.Refund(ctx, class, ip); err != nil {
		l.logger.Error("Failed to refund rate limit unit", "class", class, "err", err)
	}
}

func (l *Limiter) reject(w http.ResponseWriter, r *http.Request, class Class, ip string, d Decision) {
	l.logger.Warn("Rate limit exceeded", "class", class, "ip", ip, "path", r.URL.Path, "count", d.Count)
	l.recorder.Record(r.Context(), audit.Event{
		Type:    audit.EventRateLimited,
		Outcome: audit.OutcomeFailure,
		Reason:  string(class),
	})

	seconds := retrySeconds(d.RetryAfter)
	appErr := errors.RateLimitExceeded(d.RetryAfter)
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	render.Status(r, appErr.HTTPStatusCode())
	render.JSON(w, r, map[string]interface{}{
		"status":     "error",
		"message":    appErr.PublicMessage(),
		"retryAfter": seconds,
	})
}

func retrySeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
