package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	conversationTTL       = 24 * time.Hour
	defaultMaxChatHistory = 25
)

// TranscriptEntry is one displayed chat message.
type TranscriptEntry struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// TranscriptStore keeps the most recent messages of each conversation.
type TranscriptStore interface {
	Append(ctx context.Context, conversationID string, entries ...TranscriptEntry) error
	History(ctx context.Context, conversationID string) ([]TranscriptEntry, error)
	Clear(ctx context.Context, conversationID string) error
}

// RedisTranscriptStore keeps transcripts in capped Redis lists.
type RedisTranscriptStore struct {
	redis      *redis.Client
	maxEntries int64
	ttl        time.Duration
	tracer     trace.Tracer
}

func NewRedisTranscriptStore(client *redis.Client, maxEntries int, ttl time.Duration) *RedisTranscriptStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if maxEntries <= 0 {
		maxEntries = defaultMaxChatHistory
	}
	if ttl <= 0 {
		ttl = conversationTTL
	}
	return &RedisTranscriptStore{
		redis:      client,
		maxEntries: int64(maxEntries),
		ttl:        ttl,
		tracer:     otel.Tracer("clinicassistant.internal.conversation.transcripts"),
	}
}

func transcriptKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:transcript", conversationID)
}

func (s *RedisTranscriptStore) Append(ctx context.Context, conversationID string, entries ...TranscriptEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ctx, span := s.tracer.Start(ctx, "conversation.append_transcript")
	defer span.End()
	span.SetAttributes(attribute.String("conversation.id", conversationID))

	args := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("conversation: failed to marshal transcript entry: %w", err)
		}
		args = append(args, data)
	}

	key := transcriptKey(conversationID)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, args...)
	pipe.LTrim(ctx, key, -s.maxEntries, -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to persist transcript: %w", err)
	}
	return nil
}

func (s *RedisTranscriptStore) History(ctx context.Context, conversationID string) ([]TranscriptEntry, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.load_transcript")
	defer span.End()

	raw, err := s.redis.LRange(ctx, transcriptKey(conversationID), 0, -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load transcript: %w", err)
	}
	entries := make([]TranscriptEntry, 0, len(raw))
	for _, item := range raw {
		var e TranscriptEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("conversation: failed to decode transcript: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *RedisTranscriptStore) Clear(ctx context.Context, conversationID string) error {
	if err := s.redis.Del(ctx, transcriptKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("conversation: failed to clear transcript: %w", err)
	}
	return nil
}

// MemoryTranscriptStore keeps capped transcripts in process.
type MemoryTranscriptStore struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string][]TranscriptEntry
}

func NewMemoryTranscriptStore(maxEntries int) *MemoryTranscriptStore {
	if maxEntries <= 0 {
		maxEntries = defaultMaxChatHistory
	}
	return &MemoryTranscriptStore{maxEntries: maxEntries, entries: make(map[string][]TranscriptEntry)}
}

func (m *MemoryTranscriptStore) Append(_ context.Context, conversationID string, entries ...TranscriptEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := append(m.entries[conversationID], entries...)
	if len(all) > m.maxEntries {
		all = append([]TranscriptEntry(nil), all[len(all)-m.maxEntries:]...)
	}
	m.entries[conversationID] = all
	return nil
}

func (m *MemoryTranscriptStore) History(_ context.Context, conversationID string) ([]TranscriptEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TranscriptEntry{}, m.entries[conversationID]...), nil
}

func (m *MemoryTranscriptStore) Clear(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, conversationID)
	return nil
}
