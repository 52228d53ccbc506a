package repository

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConversationRepository registra las conversaciones que emite el backend de
// desarrollo y a que usuario pertenecen.
type ConversationRepository interface {
	Create(ctx context.Context, conversationID, userID string) error
	Owner(ctx context.Context, conversationID string) (string, bool, error)
}

type memoryConversationRepository struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]conversationEntry
}

type conversationEntry struct {
	userID    string
	expiresAt time.Time
}

func NewMemoryConversationRepository(ttl time.Duration) ConversationRepository {
	return &memoryConversationRepository{
		ttl:   ttl,
		items: make(map[string]conversationEntry),
	}
}

func (r *memoryConversationRepository) Create(_ context.Context, conversationID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if strings.TrimSpace(conversationID) == "" {
		return nil
	}
	entry := conversationEntry{userID: userID}
	if r.ttl > 0 {
		entry.expiresAt = time.Now().UTC().Add(r.ttl)
	}
	r.items[conversationID] = entry
	return nil
}

func (r *memoryConversationRepository) Owner(_ context.Context, conversationID string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.items[conversationID]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().UTC().After(entry.expiresAt) {
		delete(r.items, conversationID)
		return "", false, nil
	}
	return entry.userID, true, nil
}

type redisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

type redisConversationRepository struct {
	client redisKV
	ttl    time.Duration
	prefix string
}

func NewRedisConversationRepository(client *redis.Client, ttl time.Duration) ConversationRepository {
	if client == nil {
		return nil
	}
	return &redisConversationRepository{
		client: client,
		ttl:    ttl,
		prefix: "chat:conversation:",
	}
}

func (r *redisConversationRepository) Create(ctx context.Context, conversationID, userID string) error {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil
	}
	return r.client.Set(ctx, r.prefix+conversationID, userID, r.ttl).Err()
}

func (r *redisConversationRepository) Owner(ctx context.Context, conversationID string) (string, bool, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return "", false, nil
	}
	userID, err := r.client.Get(ctx, r.prefix+conversationID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}
