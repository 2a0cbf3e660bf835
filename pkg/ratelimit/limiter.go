package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/legendboard/pkg/audit"
)

// Class names a group of endpoints sharing one budget.
type Class string

const (
	ClassLogin          Class = "login"
	ClassRegister       Class = "register"
	ClassForgotPassword Class = "forgot_password"
	ClassFederated      Class = "federated"
)

// Policy is a fixed window budget. With FailuresOnly set, only failed
// attempts are counted and successes pass without spending budget.
type Policy struct {
	Max          int
	Window       time.Duration
	FailuresOnly bool
}

// Decision is the outcome of a single check.
type Decision struct {
	Allowed    bool
	Count      int64
	Remaining  int
	RetryAfter time.Duration
}

// Limiter applies per-class policies keyed by client identity.
type Limiter struct {
	store    Store
	policies map[Class]Policy
	recorder audit.Recorder
	logger   *slog.Logger
}

type Option func(*Limiter)

func WithRecorder(r audit.Recorder) Option {
	return func(l *Limiter) { l.recorder = r }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

func NewLimiter(store Store, policies map[Class]Policy, opts ...Option) *Limiter {
	l := &Limiter{
		store:    store,
		policies: policies,
		recorder: audit.NopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Policy returns the configured policy for class.
func (l *Limiter) Policy(class Class) (Policy, bool) {
	p, ok := l.policies[class]
	if ok && p.Max <= 0 {
		return p, false
	}
	return p, ok
}

// Allow spends one unit of the class budget for key.
func (l *Limiter) Allow(ctx context.Context, class Class, key string) (Decision, error) {
	p, ok := l.Policy(class)
	if !ok {
		return Decision{Allowed: true}, nil
	}
	count, resetIn, err := l.store.Incr(ctx, storeKey(class, key), p.Window)
	if err != nil {
		return Decision{Allowed: true}, err
	}
	return decide(p, count, resetIn, count > int64(p.Max)), nil
}

// Refund returns one unit spent by Allow.
func (l *Limiter) Refund(ctx context.Context, class Class, key string) error {
	if _, ok := l.Policy(class); !ok {
		return nil
	}
	return l.store.Decr(ctx, storeKey(class, key))
}

func decide(p Policy, count int64, resetIn time.Duration, limited bool) Decision {
	remaining := p.Max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	d := Decision{Allowed: !limited, Count: count, Remaining: remaining}
	if limited {
		d.RetryAfter = resetIn
		if d.RetryAfter <= 0 {
			d.RetryAfter = time.Second
		}
	}
	return d
}

func storeKey(class Class, key string) string {
	return fmt.Sprintf("%s:%s", class, key)
}
