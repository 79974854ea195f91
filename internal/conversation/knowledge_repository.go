package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const knowledgeKey = "rag:chunks"

// KnowledgeRepository persists the chunked text of the uploaded documents so
// the retrieval index can be rebuilt after a restart without re-reading PDFs.
type KnowledgeRepository interface {
	ReplaceChunks(ctx context.Context, chunks []Chunk) error
	LoadChunks(ctx context.Context) ([]Chunk, error)
}

// RedisKnowledgeRepository stores chunks as JSON entries of one Redis list.
type RedisKnowledgeRepository struct {
	client *redis.Client
}

// NewRedisKnowledgeRepository creates a Redis-backed knowledge repo.
func NewRedisKnowledgeRepository(client *redis.Client) *RedisKnowledgeRepository {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	return &RedisKnowledgeRepository{client: client}
}

// ReplaceChunks overwrites every stored chunk in one transaction.
func (r *RedisKnowledgeRepository) ReplaceChunks(ctx context.Context, chunks []Chunk) error {
	args := make([]interface{}, 0, len(chunks))
	for _, c := range chunks {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("conversation: encode chunk: %w", err)
		}
		args = append(args, data)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, knowledgeKey)
	if len(args) > 0 {
		pipe.RPush(ctx, knowledgeKey, args...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("conversation: failed to replace knowledge: %w", err)
	}
	return nil
}

// LoadChunks returns the stored chunks in document order.
func (r *RedisKnowledgeRepository) LoadChunks(ctx context.Context) ([]Chunk, error) {
	raw, err := r.client.LRange(ctx, knowledgeKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("conversation: load knowledge: %w", err)
	}
	chunks := make([]Chunk, 0, len(raw))
	for _, item := range raw {
		var c Chunk
		if err := json.Unmarshal([]byte(item), &c); err != nil {
			return nil, fmt.Errorf("conversation: decode chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// MemoryKnowledgeRepository keeps chunks in process.
type MemoryKnowledgeRepository struct {
	mu     sync.RWMutex
	chunks []Chunk
}

func NewMemoryKnowledgeRepository() *MemoryKnowledgeRepository {
	return &MemoryKnowledgeRepository{}
}

func (m *MemoryKnowledgeRepository) ReplaceChunks(_ context.Context, chunks []Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append([]Chunk(nil), chunks...)
	return nil
}

func (m *MemoryKnowledgeRepository) LoadChunks(_ context.Context) ([]Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Chunk(nil), m.chunks...), nil
}

// RestoreIndex loads persisted chunks into the retriever. It returns the
// number of chunks indexed.
func RestoreIndex(ctx context.Context, repo KnowledgeRepository, retriever *Retriever) (int, error) {
	chunks, err := repo.LoadChunks(ctx)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}
	if err := retriever.Reindex(ctx, chunks); err != nil {
		return 0, fmt.Errorf("conversation: reindex restored knowledge: %w", err)
	}
	return len(chunks), nil
}
