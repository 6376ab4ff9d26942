// Package cache keeps found plans in Redis so identical searches skip the
// solver.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/pddlplanning/pddlplanning-go/ontology"
	"github.com/pddlplanning/pddlplanning-go/planning"
)

// Config configures the cache.
type Config struct {
	Addr      string        `json:"addr" yaml:"addr"`
	Password  string        `json:"password" yaml:"password"`
	DB        int           `json:"db" yaml:"db"`
	TTL       time.Duration `json:"ttl" yaml:"ttl"`
	KeyPrefix string        `json:"key_prefix" yaml:"key_prefix"`
}

// Client is the part of a Redis client the cache uses.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Solver serves plans from Redis and falls back to the wrapped solver.
// Only successful searches are cached. Redis failures are logged and
// bypassed.
type Solver struct {
	next   planning.Solver
	client Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// NewRedisClient creates a go-redis client from config.
func NewRedisClient(config *Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
}

// New wraps next with a cache on client.
func New(next planning.Solver, client Client, config *Config, logger *zap.Logger) *Solver {
	if config == nil {
		config = &Config{}
	}
	if config.TTL == 0 {
		config.TTL = time.Hour
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "pddl:plan:"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Solver{next: next, client: client, ttl: config.TTL, prefix: config.KeyPrefix, logger: logger}
}

// Decorator returns a cache decorator usable with planning.Chain.
func Decorator(client Client, config *Config, logger *zap.Logger) func(planning.Solver) planning.Solver {
	return func(next planning.Solver) planning.Solver {
		return New(next, client, config, logger)
	}
}

// Key returns the cache key of a search.
func (s *Solver) Key(domain, problem string) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0})
	h.Write([]byte(problem))
	return s.prefix + hex.EncodeToString(h.Sum(nil))
}

// SearchPlan returns the cached plan or searches and caches a new one.
func (s *Solver) SearchPlan(ctx context.Context, domain, problem string) ([]ontology.Task, error) {
	key := s.Key(domain, problem)

	cached, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var plan []ontology.Task
		if jsonErr := json.Unmarshal(cached, &plan); jsonErr == nil {
			s.logger.Debug("plan cache hit", zap.String("key", key))
			return plan, nil
		}
		s.logger.Warn("discarding unreadable cached plan", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		s.logger.Warn("plan cache unavailable", zap.Error(err))
	}

	plan, err := s.next.SearchPlan(ctx, domain, problem)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(nonNil(plan))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plan: %w", err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.Warn("failed to cache plan", zap.String("key", key), zap.Error(err))
	}
	return plan, nil
}

func nonNil(plan []ontology.Task) []ontology.Task {
	if plan == nil {
		return []ontology.Task{}
	}
	return plan
}
