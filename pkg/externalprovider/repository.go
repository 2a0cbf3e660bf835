package externalprovider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStateNotFound is returned when a state is unknown, expired or already used.
var ErrStateNotFound = errors.New("oauth state not found or expired")

// StateRepository keeps issued OAuth2 state values until the callback
// consumes them. Consume must succeed at most once per state.
type StateRepository interface {
	StoreState(ctx context.Context, state string, ttl time.Duration) error
	ConsumeState(ctx context.Context, state string) error
}

type InMemoryStateRepository struct {
	mu     sync.Mutex
	states map[string]time.Time
	now    func() time.Time
}

func NewInMemoryStateRepository() *InMemoryStateRepository {
	return &InMemoryStateRepository{
		states: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (r *InMemoryStateRepository) StoreState(ctx context.Context, state string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for s, exp := range r.states {
		if !now.Before(exp) {
			delete(r.states, s)
		}
	}
	r.states[state] = now.Add(ttl)
	return nil
}

func (r *InMemoryStateRepository) ConsumeState(ctx context.Context, state string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	exp, ok := r.states[state]
	if !ok {
		return ErrStateNotFound
	}
	delete(r.states, state)
	if !r.now().Before(exp) {
		return ErrStateNotFound
	}
	return nil
}

const redisStatePrefix = "oauth_state:"

// RedisStateRepository shares state across instances. GETDEL makes
// consumption single use.
type RedisStateRepository struct {
	client redis.UniversalClient
}

func NewRedisStateRepository(client redis.UniversalClient) *RedisStateRepository {
	return &RedisStateRepository{client: client}
}

func (r *RedisStateRepository) StoreState(ctx context.Context, state string, ttl time.Duration) error {
	if err := r.client.Set(ctx, redisStatePrefix+state, "1", ttl).Err(); err != nil {
		return fmt.Errorf("store oauth state: %w", err)
	}
	return nil
}

func (r *RedisStateRepository) ConsumeState(ctx context.Context, state string) error {
	err := r.client.GetDel(ctx, redisStatePrefix+state).Err()
	if errors.Is(err, redis.Nil) {
		return ErrStateNotFound
	}
	if err != nil {
		return fmt.Errorf("consume oauth state: %w", err)
	}
	return nil
}
