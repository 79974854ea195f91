package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SessionStore keeps one Session per conversation across turns and restarts.
// Load returns a fresh idle session for unknown conversations.
type SessionStore interface {
	Load(ctx context.Context, conversationID string) (Session, error)
	Save(ctx context.Context, conversationID string, s Session) error
	Delete(ctx context.Context, conversationID string) error
}

const defaultSessionTTL = 24 * time.Hour

// RedisSessionStore persists sessions as JSON with a sliding TTL.
type RedisSessionStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if client == nil {
		panic("booking: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisSessionStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("clinicassistant.internal.booking.sessions"),
	}
}

func sessionKey(conversationID string) string {
	return fmt.Sprintf("booking:session:%s", conversationID)
}

// Load fetches the session for a conversation.
func (r *RedisSessionStore) Load(ctx context.Context, conversationID string) (Session, error) {
	ctx, span := r.tracer.Start(ctx, "booking.load_session")
	defer span.End()
	span.SetAttributes(attribute.String("conversation.id", conversationID))

	data, err := r.redis.Get(ctx, sessionKey(conversationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewSession(), nil
	}
	if err != nil {
		span.RecordError(err)
		return Session{}, fmt.Errorf("booking: load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		span.RecordError(err)
		return Session{}, fmt.Errorf("booking: decode session: %w", err)
	}
	return s, nil
}

// Save stores the session. Idle sessions are deleted instead of stored.
func (r *RedisSessionStore) Save(ctx context.Context, conversationID string, s Session) error {
	ctx, span := r.tracer.Start(ctx, "booking.save_session")
	defer span.End()
	span.SetAttributes(
		attribute.String("conversation.id", conversationID),
		attribute.String("booking.stage", s.Stage.String()),
	)

	if !s.Active() {
		return r.Delete(ctx, conversationID)
	}
	data, err := json.Marshal(s)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("booking: encode session: %w", err)
	}
	if err := r.redis.Set(ctx, sessionKey(conversationID), data, r.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("booking: save session: %w", err)
	}
	return nil
}

// Delete removes any stored session.
func (r *RedisSessionStore) Delete(ctx context.Context, conversationID string) error {
	if err := r.redis.Del(ctx, sessionKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("booking: delete session: %w", err)
	}
	return nil
}

// MemorySessionStore keeps sessions in process.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]Session)}
}

// Load returns the stored session or a fresh one.
func (m *MemorySessionStore) Load(_ context.Context, conversationID string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[conversationID]; ok {
		return s, nil
	}
	return NewSession(), nil
}

// Save stores active sessions and forgets idle ones.
func (m *MemorySessionStore) Save(_ context.Context, conversationID string, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !s.Active() {
		delete(m.sessions, conversationID)
		return nil
	}
	m.sessions[conversationID] = s
	return nil
}

// Delete forgets a session.
func (m *MemorySessionStore) Delete(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, conversationID)
	return nil
}
