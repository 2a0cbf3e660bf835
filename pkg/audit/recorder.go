// Package audit records authentication events as structured log lines and
// Prometheus counters.
package audit

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tendant/legendboard/pkg/utils"
)

type EventType string

const (
	EventRegister             EventType = "register"
	EventLogin                EventType = "login"
	EventLogout               EventType = "logout"
	EventPasswordChange       EventType = "password_change"
	EventPasswordResetRequest EventType = "password_reset_request"
	EventPasswordReset        EventType = "password_reset"
	EventFederatedLogin       EventType = "federated_login"
	EventSessionReject        EventType = "session_reject"
	EventRateLimited          EventType = "rate_limited"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is one authentication outcome. Email is masked before logging.
type Event struct {
	Type      EventType
	Outcome   Outcome
	AccountID string
	Email     string
	Reason    string
}

// Recorder receives auth events. Implementations must not block.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// NopRecorder discards events.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Event) {}

// LogRecorder logs events with slog and counts them in
// legendboard_auth_events_total{event,outcome}.
type LogRecorder struct {
	logger *slog.Logger
	events *prometheus.CounterVec
}

// NewLogRecorder registers the event counter with reg.
func NewLogRecorder(logger *slog.Logger, reg prometheus.Registerer) (*LogRecorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "legendboard",
		Name:      "auth_events_total",
		Help:      "Authentication events by type and outcome.",
	}, []string{"event", "outcome"})
	if reg != nil {
		if err := reg.Register(events); err != nil {
			return nil, err
		}
	}
	return &LogRecorder{logger: logger.With("component", "audit"), events: events}, nil
}

func (r *LogRecorder) Record(ctx context.Context, event Event) {
	r.events.WithLabelValues(string(event.Type), string(event.Outcome)).Inc()

	attrs := []any{"event", event.Type, "outcome", event.Outcome}
	if event.AccountID != "" {
		attrs = append(attrs, "account_id", event.AccountID)
	}
	if event.Email != "" {
		attrs = append(attrs, "email", utils.MaskEmail(event.Email))
	}
	if event.Reason != "" {
		attrs = append(attrs, "reason", event.Reason)
	}
	if info, ok := RequestInfoFromContext(ctx); ok {
		attrs = append(attrs, "ip", info.ClientIP, "method", info.Method, "uri", info.URI)
		if info.RequestID != "" {
			attrs = append(attrs, "request_id", info.RequestID)
		}
	}

	level := slog.LevelInfo
	if event.Outcome == OutcomeFailure {
		level = slog.LevelWarn
	}
	r.logger.Log(ctx, level, "auth event", attrs...)
}

// Counter exposes the underlying vector for tests and dashboards.
func (r *LogRecorder) Counter() *prometheus.CounterVec {
	return r.events
}
