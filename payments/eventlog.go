package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const eventKeyPrefix = "storefront:webhook:event:"

// claimTTL bounds how long an unfinished claim blocks redeliveries, so a
// claim left behind by a crashed process eventually lapses.
const claimTTL = 5 * time.Minute

const (
	valueClaimed = "claimed"
	valueDone    = "done"
)

// EventState is what Claim found for an event id.
type EventState int

const (
	// EventClaimed means the caller now owns the event and must Complete or
	// Forget it.
	EventClaimed EventState = iota
	// EventInProgress means another delivery holds the claim.
	EventInProgress
	// EventDone means the event was already handled.
	EventDone
)

// EventLog remembers gateway event ids so redelivered webhooks are handled
// once.
type EventLog interface {
	Claim(ctx context.Context, id string) (EventState, error)
	// Complete records a claimed id as handled.
	Complete(ctx context.Context, id string) error
	// Forget drops id so a later redelivery is processed again.
	Forget(ctx context.Context, id string) error
}

type RedisEventLog struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisEventLog(redisURL string, ttl time.Duration) (*RedisEventLog, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisEventLog{client: client, ttl: ttl}, nil
}

func (l *RedisEventLog) Claim(ctx context.Context, id string) (EventState, error) {
	key := eventKeyPrefix + id
	ok, err := l.client.SetNX(ctx, key, valueClaimed, claimTTL).Result()
	if err != nil {
		return 0, fmt.Errorf("claim event %s: %w", id, err)
	}
	if ok {
		return EventClaimed, nil
	}
	v, err := l.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Released between the two calls; the next redelivery claims it.
		return EventInProgress, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read event %s: %w", id, err)
	}
	if v == valueDone {
		return EventDone, nil
	}
	return EventInProgress, nil
}

func (l *RedisEventLog) Complete(ctx context.Context, id string) error {
	if err := l.client.Set(ctx, eventKeyPrefix+id, valueDone, l.ttl).Err(); err != nil {
		return fmt.Errorf("complete event %s: %w", id, err)
	}
	return nil
}

func (l *RedisEventLog) Forget(ctx context.Context, id string) error {
	if err := l.client.Del(ctx, eventKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("forget event %s: %w", id, err)
	}
	return nil
}

func (l *RedisEventLog) Close() error {
	return l.client.Close()
}

type eventEntry struct {
	done    bool
	expires time.Time
}

// MemoryEventLog is the single-process EventLog used when no Redis is
// configured.
type MemoryEventLog struct {
	mu      sync.Mutex
	entries map[string]eventEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryEventLog(ttl time.Duration) *MemoryEventLog {
	return &MemoryEventLog{entries: make(map[string]eventEntry), ttl: ttl, now: time.Now}
}

func (l *MemoryEventLog) Claim(_ context.Context, id string) (EventState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)
	if e, ok := l.entries[id]; ok {
		if e.done {
			return EventDone, nil
		}
		return EventInProgress, nil
	}
	l.entries[id] = eventEntry{expires: now.Add(claimTTL)}
	return EventClaimed, nil
}

func (l *MemoryEventLog) Complete(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[id] = eventEntry{done: true, expires: l.now().Add(l.ttl)}
	return nil
}

func (l *MemoryEventLog) Forget(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, id)
	return nil
}

// prune drops expired entries; called under mu.
func (l *MemoryEventLog) prune(now time.Time) {
	for id, e := range l.entries {
		if !now.Before(e.expires) {
			delete(l.entries, id)
		}
	}
}
