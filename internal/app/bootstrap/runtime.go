package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-booking-assistant/internal/booking"
	"github.com/wolfman30/clinic-booking-assistant/internal/bookings"
	"github.com/wolfman30/clinic-booking-assistant/internal/clinic"
	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/conversation"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool connects to DATABASE_URL. An empty URL yields a nil pool.
func BuildPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return pool, nil
}

// BuildBookingRepository prefers Postgres and falls back to process memory.
func BuildBookingRepository(pool *pgxpool.Pool, logger *logging.Logger) bookings.Repository {
	if pool != nil {
		return bookings.NewPostgresRepository(pool)
	}
	if logger != nil {
		logger.Warn("DATABASE_URL not set; bookings are kept in memory")
	}
	return bookings.NewMemoryRepository()
}

// BuildSessionStore returns the Redis session store or an in-memory one.
func BuildSessionStore(redisClient *redis.Client, cfg *appconfig.Config) booking.SessionStore {
	if redisClient == nil {
		return booking.NewMemorySessionStore()
	}
	return booking.NewRedisSessionStore(redisClient, cfg.SessionTTL)
}

// BuildTranscriptStore returns the Redis transcript store or an in-memory one.
func BuildTranscriptStore(redisClient *redis.Client, cfg *appconfig.Config) conversation.TranscriptStore {
	if redisClient == nil {
		return conversation.NewMemoryTranscriptStore(cfg.MaxChatHistory)
	}
	return conversation.NewRedisTranscriptStore(redisClient, cfg.MaxChatHistory, cfg.SessionTTL)
}

// BuildKnowledgeRepository persists document chunks in Redis when available.
func BuildKnowledgeRepository(redisClient *redis.Client) conversation.KnowledgeRepository {
	if redisClient == nil {
		return conversation.NewMemoryKnowledgeRepository()
	}
	return conversation.NewRedisKnowledgeRepository(redisClient)
}

// BuildClinicStore returns the clinic directory cache when Redis is available.
func BuildClinicStore(redisClient *redis.Client) *clinic.Store {
	if redisClient == nil {
		return nil
	}
	return clinic.NewStore(redisClient)
}
