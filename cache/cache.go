package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/schemaloop/schemaloop/types"
)

// ErrMiss indicates the key is absent from every tier.
var ErrMiss = errors.New("cache miss")

// Entry is one cached extraction result: the normalized validated
// value plus the usage the original call consumed.
type Entry struct {
	Value     json.RawMessage  `json:"value"`
	Usage     types.TokenUsage `json:"usage"`
	Attempts  int              `json:"attempts"`
	CreatedAt time.Time        `json:"created_at"`
}

// Config configures the tiers.
type Config struct {
	LocalMaxSize int           `json:"local_max_size"`
	LocalTTL     time.Duration `json:"local_ttl"`
	RedisTTL     time.Duration `json:"redis_ttl"`
	EnableLocal  bool          `json:"enable_local"`
	EnableRedis  bool          `json:"enable_redis"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LocalMaxSize: 1000,
		LocalTTL:     5 * time.Minute,
		RedisTTL:     time.Hour,
		EnableLocal:  true,
		EnableRedis:  true,
	}
}

// Cache is the two-tier result cache.
type Cache struct {
	local  *lru
	redis  *redis.Client
	config *Config
	logger *zap.Logger
}

// New builds a cache. rdb may be nil for a local-only cache.
func New(rdb *redis.Client, config *Config, logger *zap.Logger) *Cache {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var local *lru
	if config.EnableLocal {
		local = newLRU(config.LocalMaxSize, config.LocalTTL)
	}

	return &Cache{
		local:  local,
		redis:  rdb,
		config: config,
		logger: logger,
	}
}

// Key derives the cache key from everything that shapes the result.
func Key(model string, mode types.Mode, descriptor types.SchemaDescriptor, conversation []types.Message) string {
	h := xxhash.New()
	_, _ = h.WriteString(model)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(string(mode))
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(descriptor.Name)
	_, _ = h.WriteString("\x00")
	_, _ = h.Write(descriptor.Parameters)
	for _, msg := range conversation {
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(string(msg.Role))
		_, _ = h.WriteString("\x1f")
		_, _ = h.WriteString(msg.Content)
		for _, call := range msg.ToolCalls {
			_, _ = h.WriteString("\x1f")
			_, _ = h.WriteString(call.Name)
			_, _ = h.Write(call.Arguments)
		}
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// Get checks the local tier first, then Redis. A Redis hit refills
// the local tier.
func (c *Cache) Get(ctx context.Context, key string) (*Entry, error) {
	if c.local != nil {
		if entry, ok := c.local.get(key); ok {
			return entry, nil
		}
	}

	if c.config.EnableRedis && c.redis != nil {
		data, err := c.redis.Get(ctx, redisKey(key)).Bytes()
		if err == nil {
			var entry Entry
			if err := json.Unmarshal(data, &entry); err == nil {
				if c.local != nil {
					c.local.set(key, &entry)
				}
				return &entry, nil
			}
			c.logger.Warn("dropping undecodable cache entry", zap.String("key", key))
		}
	}

	return nil, ErrMiss
}

// Set stores the entry in every enabled tier.
func (c *Cache) Set(ctx context.Context, key string, entry *Entry) error {
	entry.CreatedAt = time.Now()

	if c.local != nil {
		c.local.set(key, entry)
	}

	if c.config.EnableRedis && c.redis != nil {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal cache entry: %w", err)
		}
		return c.redis.Set(ctx, redisKey(key), data, c.config.RedisTTL).Err()
	}

	return nil
}

func redisKey(key string) string {
	return "schemaloop:result:" + key
}

// lru is the in-process tier, doubly linked list over a map.
type lru struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*lruNode
	head     *lruNode
	tail     *lruNode
}

type lruNode struct {
	key       string
	entry     *Entry
	expiresAt time.Time
	prev      *lruNode
	next      *lruNode
}

func newLRU(capacity int, ttl time.Duration) *lru {
	if capacity < 1 {
		capacity = 1
	}
	return &lru{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*lruNode),
	}
}

func (c *lru) get(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(node.expiresAt) {
		c.removeNode(node)
		delete(c.items, key)
		return nil, false
	}
	c.moveToHead(node)
	return node.entry, true
}

func (c *lru) set(key string, entry *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if node, ok := c.items[key]; ok {
		node.entry = entry
		node.expiresAt = time.Now().Add(c.ttl)
		c.moveToHead(node)
		return
	}

	if len(c.items) >= c.capacity {
		c.evictTail()
	}

	node := &lruNode{
		key:       key,
		entry:     entry,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.items[key] = node
	c.addToHead(node)
}

func (c *lru) addToHead(node *lruNode) {
	node.prev = nil
	node.next = c.head
	if c.head != nil {
		c.head.prev = node
	}
	c.head = node
	if c.tail == nil {
		c.tail = node
	}
}

func (c *lru) removeNode(node *lruNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		c.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		c.tail = node.prev
	}
}

func (c *lru) moveToHead(node *lruNode) {
	if node == c.head {
		return
	}
	c.removeNode(node)
	c.addToHead(node)
}

func (c *lru) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.items, c.tail.key)
	c.removeNode(c.tail)
}
