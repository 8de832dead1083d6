// Package redis caches generations per prompt in Redis.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sweetpotato0/remote-llm/llm"
	"github.com/sweetpotato0/remote-llm/pkg/logging"
)

// Config holds Redis configuration
type Config struct {
	Addr     string        // Redis server address (e.g., "localhost:6379")
	Password string        // Redis password (if any)
	DB       int           // Redis database number
	Prefix   string        // Key prefix for namespacing
	TTL      time.Duration // Time-to-live for entries (0 means no expiration)
}

// Cache is an llm.LLM that serves repeated prompts from Redis and sends only
// the misses to the wrapped backend. It offers the blocking path only.
// Cache failures degrade to misses; backend failures are returned.
type Cache struct {
	backend llm.LLM
	client  goredis.UniversalClient
	prefix  string
	ttl     time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	llmType string
}

// typeReporter is implemented by backends whose type lookup can fail, such as
// remote.Client. A failed lookup is never memoized.
type typeReporter interface {
	TypeContext(ctx context.Context) (string, error)
}

var _ llm.LLM = (*Cache)(nil)

// New connects to Redis and wraps backend.
func New(backend llm.LLM, cfg Config) *Cache {
	if cfg.Prefix == "" {
		cfg.Prefix = "remote-llm:"
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return Wrap(backend, client, cfg.Prefix, cfg.TTL)
}

// Wrap uses an existing client.
func Wrap(backend llm.LLM, client goredis.UniversalClient, prefix string, ttl time.Duration) *Cache {
	return &Cache{
		backend: backend,
		client:  client,
		prefix:  prefix,
		ttl:     ttl,
		logger:  logging.WithComponent("cache.redis"),
	}
}

// Key derives the cache key for one prompt. Backend type and stop sequences
// are part of the key since both change the answer.
func Key(prefix, llmType, prompt string, stop []string) string {
	raw, _ := json.Marshal(struct {
		Type   string   `json:"t"`
		Prompt string   `json:"p"`
		Stop   []string `json:"s"`
	}{llmType, prompt, stop})
	sum := sha256.Sum256(raw)
	return prefix + "gen:" + hex.EncodeToString(sum[:])
}

// Generate implements llm.LLM.
func (c *Cache) Generate(ctx context.Context, prompts []string, stop []string) (*llm.Result, error) {
	if len(prompts) == 0 {
		return &llm.Result{Generations: []llm.Batch{}}, nil
	}

	llmType, err := c.resolveType(ctx)
	if err != nil {
		c.logger.Warn("backend type unavailable, bypassing generation cache", "error", err)
		return c.backend.Generate(ctx, prompts, stop)
	}
	keys := make([]string, len(prompts))
	for i, p := range prompts {
		keys[i] = Key(c.prefix, llmType, p, stop)
	}

	batches := make([]llm.Batch, len(prompts))
	hits := c.lookup(ctx, keys, batches)

	var missing []int
	var missPrompts []string
	for i := range prompts {
		if !hits[i] {
			missing = append(missing, i)
			missPrompts = append(missPrompts, prompts[i])
		}
	}
	c.logger.Debug("generation cache lookup", "prompts", len(prompts), "misses", len(missing))
	if len(missing) == 0 {
		return &llm.Result{Generations: batches}, nil
	}

	res, err := c.backend.Generate(ctx, missPrompts, stop)
	if err != nil {
		return nil, err
	}
	if err := res.Validate(len(missPrompts)); err != nil {
		return nil, err
	}

	pipe := c.client.Pipeline()
	for j, i := range missing {
		batches[i] = res.Generations[j]
		data, err := json.Marshal(res.Generations[j])
		if err != nil {
			return nil, fmt.Errorf("encode batch: %w", err)
		}
		pipe.Set(ctx, keys[i], data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("failed to store generations", "error", err)
	}
	return &llm.Result{Generations: batches}, nil
}

// lookup fills batches for cached prompts and reports which ones hit.
func (c *Cache) lookup(ctx context.Context, keys []string, batches []llm.Batch) []bool {
	hits := make([]bool, len(keys))
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("generation cache unavailable", "error", err)
		return hits
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var batch llm.Batch
		if err := json.Unmarshal([]byte(s), &batch); err != nil {
			c.logger.Warn("dropping corrupt cache entry", "key", keys[i], "error", err)
			continue
		}
		batches[i] = batch
		hits[i] = true
	}
	return hits
}

// Type reports the wrapped backend type, resolved once it is known.
func (c *Cache) Type() string {
	if _, ok := c.backend.(typeReporter); !ok {
		t, _ := c.resolveType(context.Background())
		return t
	}
	c.mu.Lock()
	t := c.llmType
	c.mu.Unlock()
	if t != "" {
		return t
	}
	return c.backend.Type()
}

// resolveType returns the backend type used in cache keys. It is looked up
// until one lookup succeeds and then kept for the life of the Cache.
func (c *Cache) resolveType(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.llmType != "" {
		return c.llmType, nil
	}
	var t string
	if r, ok := c.backend.(typeReporter); ok {
		var err error
		if t, err = r.TypeContext(ctx); err != nil {
			return "", err
		}
	} else {
		t = c.backend.Type()
	}
	c.llmType = t
	return t, nil
}

// Save delegates to the wrapped backend.
func (c *Cache) Save(path string) error {
	return c.backend.Save(path)
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
