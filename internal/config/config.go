// Package config describes and opens the components behind pddlc and pddld:
// the template source, the solver chain, the plan store and the event
// publisher.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/pddlplanning/pddlplanning-go/events"
	"github.com/pddlplanning/pddlplanning-go/planning"
	"github.com/pddlplanning/pddlplanning-go/solver/amqpsolver"
	"github.com/pddlplanning/pddlplanning-go/solver/cache"
	"github.com/pddlplanning/pddlplanning-go/solver/execsolver"
	"github.com/pddlplanning/pddlplanning-go/solver/grpcsolver"
	"github.com/pddlplanning/pddlplanning-go/solver/httpsolver"
	"github.com/pddlplanning/pddlplanning-go/store"
	"github.com/pddlplanning/pddlplanning-go/templates"
)

// Solver kinds.
const (
	SolverHTTP = "http"
	SolverGRPC = "grpc"
	SolverAMQP = "amqp"
	SolverExec = "exec"
)

// Store drivers.
const (
	StoreNone     = "none"
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config is the file form shared by both binaries. Durations are strings
// such as "30s" in YAML and nanoseconds in JSON.
type Config struct {
	Templates TemplatesConfig `yaml:"templates" json:"templates"`
	Solver    SolverConfig    `yaml:"solver" json:"solver"`
	Cache     *cache.Config   `yaml:"cache" json:"cache"`
	Store     StoreConfig     `yaml:"store" json:"store"`
	Events    EventsConfig    `yaml:"events" json:"events"`
}

// TemplatesConfig selects a directory or an S3 bucket.
type TemplatesConfig struct {
	Dir   string              `yaml:"dir" json:"dir"`
	Watch bool                `yaml:"watch" json:"watch"`
	S3    *templates.S3Config `yaml:"s3" json:"s3"`
}

// SolverConfig selects the solver client and its decorators.
type SolverConfig struct {
	Kind      string            `yaml:"kind" json:"kind"`
	Timeout   time.Duration     `yaml:"timeout" json:"timeout"`
	Retries   uint64            `yaml:"retries" json:"retries"`
	RetryBase time.Duration     `yaml:"retry_base" json:"retry_base"`
	HTTP      httpsolver.Config `yaml:"http" json:"http"`
	GRPC      grpcsolver.Config `yaml:"grpc" json:"grpc"`
	AMQP      amqpsolver.Config `yaml:"amqp" json:"amqp"`
	Exec      execsolver.Config `yaml:"exec" json:"exec"`
}

// StoreConfig selects the plan history store.
type StoreConfig struct {
	Driver   string               `yaml:"driver" json:"driver"`
	Postgres store.PostgresConfig `yaml:"postgres" json:"postgres"`
}

// EventsConfig enables plan events when Kafka brokers are given.
type EventsConfig struct {
	Kafka *events.KafkaConfig `yaml:"kafka" json:"kafka"`
}

// Load reads a YAML or JSON configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config yaml: %w", err)
		}
	}
	return cfg, nil
}

// OpenTemplates creates the configured template source. A watched directory
// is reloaded in the background until ctx is done.
func OpenTemplates(ctx context.Context, config TemplatesConfig, logger *zap.Logger) (templates.Source, error) {
	switch {
	case config.S3 != nil && config.S3.Bucket != "":
		src, err := templates.NewS3Source(ctx, config.S3)
		if err != nil {
			return nil, err
		}
		return src, nil
	case config.Dir != "":
		src, err := templates.NewDirSource(config.Dir, logger)
		if err != nil {
			return nil, err
		}
		if config.Watch {
			go func() {
				if err := src.Watch(ctx, nil); err != nil {
					logger.Error("template watcher stopped", zap.Error(err))
				}
			}()
		}
		return src, nil
	default:
		return nil, fmt.Errorf("no template source configured")
	}
}

// OpenSolver creates the solver client without decorators. The returned
// function releases its connections.
func OpenSolver(config SolverConfig, logger *zap.Logger) (planning.Solver, func() error, error) {
	nop := func() error { return nil }
	switch strings.ToLower(config.Kind) {
	case SolverHTTP:
		client, err := httpsolver.New(&config.HTTP)
		if err != nil {
			return nil, nil, fmt.Errorf("http solver: %w", err)
		}
		return client, nop, nil
	case SolverGRPC:
		client, err := grpcsolver.Dial(&config.GRPC)
		if err != nil {
			return nil, nil, fmt.Errorf("grpc solver: %w", err)
		}
		return client, client.Close, nil
	case SolverAMQP:
		client, err := amqpsolver.Dial(&config.AMQP)
		if err != nil {
			return nil, nil, fmt.Errorf("amqp solver: %w", err)
		}
		return client, client.Close, nil
	case SolverExec:
		s, err := execsolver.New(&config.Exec, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("exec solver: %w", err)
		}
		return s, nop, nil
	default:
		return nil, nil, fmt.Errorf("unknown solver %q (http, grpc, amqp, exec)", config.Kind)
	}
}

// OpenStore creates the plan history store. The memory store is the default.
func OpenStore(ctx context.Context, config StoreConfig) (store.Store, error) {
	switch strings.ToLower(config.Driver) {
	case "", StoreMemory:
		return store.NewMemoryStore(), nil
	case StorePostgres:
		pg, err := store.NewPostgresStore(ctx, &config.Postgres)
		if err != nil {
			return nil, err
		}
		return pg, nil
	case StoreNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q (memory, postgres, none)", config.Driver)
	}
}

// OpenPublisher creates the event publisher, a no-op without brokers.
func OpenPublisher(config EventsConfig) (events.Publisher, error) {
	if config.Kafka == nil || len(config.Kafka.Brokers) == 0 {
		return events.NopPublisher{}, nil
	}
	return events.NewKafkaPublisher(config.Kafka)
}

// Stack holds the opened components.
type Stack struct {
	Templates templates.Source
	Solver    planning.Solver
	Store     store.Store
	Publisher events.Publisher

	closers []func() error
}

// Decorate wraps a solver client into the chain client, cache, retry,
// timeout, recorder.
func Decorate(client planning.Solver, config *Config, cacheClient cache.Client, s store.Store, p events.Publisher, logger *zap.Logger) planning.Solver {
	var decorators []func(planning.Solver) planning.Solver
	if cacheClient != nil {
		decorators = append(decorators, cache.Decorator(cacheClient, config.Cache, logger))
	}
	retries, timeout, base := config.Solver.Retries, config.Solver.Timeout, config.Solver.RetryBase
	if base == 0 {
		base = 200 * time.Millisecond
	}
	decorators = append(decorators,
		func(s planning.Solver) planning.Solver { return planning.WithRetry(s, retries, base) },
		func(s planning.Solver) planning.Solver { return planning.WithTimeout(s, timeout) },
	)
	if s != nil || p != nil {
		decorators = append(decorators, planning.Recording(s, p, logger))
	}
	return planning.Chain(client, decorators...)
}

// Build opens every configured component. Templates are optional when
// requireTemplates is false.
func Build(ctx context.Context, config *Config, requireTemplates bool, logger *zap.Logger) (*Stack, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	stack := &Stack{}

	src, err := OpenTemplates(ctx, config.Templates, logger)
	switch {
	case err == nil:
		stack.Templates = src
	case requireTemplates:
		return nil, err
	}

	client, closeClient, err := OpenSolver(config.Solver, logger)
	if err != nil {
		return nil, err
	}
	stack.closers = append(stack.closers, closeClient)

	if stack.Store, err = OpenStore(ctx, config.Store); err != nil {
		stack.Close()
		return nil, err
	}
	if stack.Store != nil {
		stack.closers = append(stack.closers, stack.Store.Close)
	}

	if stack.Publisher, err = OpenPublisher(config.Events); err != nil {
		stack.Close()
		return nil, err
	}
	stack.closers = append(stack.closers, stack.Publisher.Close)

	var cacheClient cache.Client
	if config.Cache != nil && config.Cache.Addr != "" {
		redisClient := cache.NewRedisClient(config.Cache)
		stack.closers = append(stack.closers, redisClient.Close)
		cacheClient = redisClient
	}

	stack.Solver = Decorate(client, config, cacheClient, stack.Store, stack.Publisher, logger)
	logger.Info("solver ready",
		zap.String("kind", config.Solver.Kind),
		zap.Bool("cache", cacheClient != nil),
		zap.Uint64("retries", config.Solver.Retries),
		zap.Duration("timeout", config.Solver.Timeout))
	return stack, nil
}

// Close releases the components in reverse order of opening.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
