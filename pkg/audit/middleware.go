package audit

import (
	"context"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tendant/legendboard/pkg/utils"
)

type contextKey struct{}

// RequestInfo is the request metadata attached to every audit event
// recorded while serving the request.
type RequestInfo struct {
	RequestID string
	ClientIP  string
	Method    string
	URI       string
	UserAgent string
	Started   time.Time
}

// Middleware stores RequestInfo in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := RequestInfo{
			RequestID: chimiddleware.GetReqID(r.Context()),
			ClientIP:  utils.ClientIP(r),
			Method:    r.Method,
			URI:       r.URL.Path,
			UserAgent: r.UserAgent(),
			Started:   time.Now(),
		}
		next.ServeHTTP(w, r.WithContext(WithRequestInfo(r.Context(), info)))
	})
}

// WithRequestInfo returns a copy of ctx carrying info
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, contextKey{}, info)
}

// RequestInfoFromContext returns the RequestInfo stored by Middleware
func RequestInfoFromContext(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(contextKey{}).(RequestInfo)
	return info, ok
}
