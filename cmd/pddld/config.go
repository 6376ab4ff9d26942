package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pddlplanning/pddlplanning-go/events"
	"github.com/pddlplanning/pddlplanning-go/internal/config"
	"github.com/pddlplanning/pddlplanning-go/solver/cache"
)

// runtimeConfig is the daemon configuration file. The component sections
// are shared with pddlc.
type runtimeConfig struct {
	config.Config `yaml:",inline"`

	HTTP   httpConfig   `yaml:"http" json:"http"`
	GRPC   httpConfig   `yaml:"grpc" json:"grpc"`
	API    apiConfig    `yaml:"api" json:"api"`
	Worker workerConfig `yaml:"worker" json:"worker"`
}

type httpConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

type apiConfig struct {
	Auth      string `yaml:"auth" json:"auth"`
	Token     string `yaml:"token" json:"token"`
	ReadToken string `yaml:"read_token" json:"read_token"`
	ACLFile   string `yaml:"acl_file" json:"acl_file"`
	RateLimit *int   `yaml:"rate_limit" json:"rate_limit"`
	RateBurst *int   `yaml:"rate_burst" json:"rate_burst"`
	MaxBody   *int64 `yaml:"max_body" json:"max_body"`
}

// workerConfig answers plan requests from an AMQP queue with the daemon's
// solver chain.
type workerConfig struct {
	AMQPURL string `yaml:"amqp_url" json:"amqp_url"`
	Queue   string `yaml:"queue" json:"queue"`
}

func loadRuntimeConfig(path string) (*runtimeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &runtimeConfig{}
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
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

// flagValues are the daemon flags. Values from the configuration file fill
// the flags that were not set on the command line.
type flagValues struct {
	httpAddr string
	grpcAddr string

	templateDir   string
	templateWatch bool

	solverKind    string
	solverURL     string
	solverAddress string
	solverCommand string
	solverTimeout time.Duration
	solverRetries uint64

	cacheAddr string
	cacheTTL  time.Duration

	storeDriver string
	storeDSN    string

	kafkaBrokers string
	kafkaTopic   string

	apiAuth      string
	apiToken     string
	apiReadToken string
	apiACLFile   string
	apiRateLimit int
	apiRateBurst int
	apiMaxBody   int64

	workerAMQPURL string
	workerQueue   string

	verbose bool
}

func applyRuntimeConfig(cfg *runtimeConfig, flags *flagValues, setFlags map[string]bool) {
	if cfg == nil {
		return
	}

	if cfg.HTTP.Addr != "" && !setFlags["http-addr"] {
		flags.httpAddr = cfg.HTTP.Addr
	}
	if cfg.GRPC.Addr != "" && !setFlags["grpc-addr"] {
		flags.grpcAddr = cfg.GRPC.Addr
	}

	if cfg.Templates.Dir != "" && !setFlags["template-dir"] {
		flags.templateDir = cfg.Templates.Dir
	}
	if cfg.Templates.Watch && !setFlags["template-watch"] {
		flags.templateWatch = true
	}

	if cfg.Solver.Kind != "" && !setFlags["solver"] {
		flags.solverKind = cfg.Solver.Kind
	}
	if cfg.Solver.HTTP.URL != "" && !setFlags["solver-url"] {
		flags.solverURL = cfg.Solver.HTTP.URL
	}
	if cfg.Solver.GRPC.Address != "" && !setFlags["solver-address"] {
		flags.solverAddress = cfg.Solver.GRPC.Address
	}
	if cfg.Solver.Exec.Command != "" && !setFlags["solver-command"] {
		flags.solverCommand = cfg.Solver.Exec.Command
	}
	if cfg.Solver.Timeout != 0 && !setFlags["solver-timeout"] {
		flags.solverTimeout = cfg.Solver.Timeout
	}
	if cfg.Solver.Retries != 0 && !setFlags["solver-retries"] {
		flags.solverRetries = cfg.Solver.Retries
	}

	if cfg.Cache != nil {
		if cfg.Cache.Addr != "" && !setFlags["cache-addr"] {
			flags.cacheAddr = cfg.Cache.Addr
		}
		if cfg.Cache.TTL != 0 && !setFlags["cache-ttl"] {
			flags.cacheTTL = cfg.Cache.TTL
		}
	}

	if cfg.Store.Driver != "" && !setFlags["store"] {
		flags.storeDriver = cfg.Store.Driver
	}
	if cfg.Store.Postgres.DSN != "" && !setFlags["store-dsn"] {
		flags.storeDSN = cfg.Store.Postgres.DSN
	}

	if cfg.Events.Kafka != nil {
		if len(cfg.Events.Kafka.Brokers) > 0 && !setFlags["kafka-brokers"] {
			flags.kafkaBrokers = strings.Join(cfg.Events.Kafka.Brokers, ",")
		}
		if cfg.Events.Kafka.Topic != "" && !setFlags["kafka-topic"] {
			flags.kafkaTopic = cfg.Events.Kafka.Topic
		}
	}

	if cfg.API.Auth != "" && !setFlags["api-auth"] {
		flags.apiAuth = cfg.API.Auth
	}
	if cfg.API.Token != "" && !setFlags["api-token"] {
		flags.apiToken = cfg.API.Token
	}
	if cfg.API.ReadToken != "" && !setFlags["api-read-token"] {
		flags.apiReadToken = cfg.API.ReadToken
	}
	if cfg.API.ACLFile != "" && !setFlags["api-acl-file"] {
		flags.apiACLFile = cfg.API.ACLFile
	}
	if cfg.API.RateLimit != nil && !setFlags["api-rate-limit"] {
		flags.apiRateLimit = *cfg.API.RateLimit
	}
	if cfg.API.RateBurst != nil && !setFlags["api-rate-burst"] {
		flags.apiRateBurst = *cfg.API.RateBurst
	}
	if cfg.API.MaxBody != nil && !setFlags["api-max-body"] {
		flags.apiMaxBody = *cfg.API.MaxBody
	}

	if cfg.Worker.AMQPURL != "" && !setFlags["worker-amqp-url"] {
		flags.workerAMQPURL = cfg.Worker.AMQPURL
	}
	if cfg.Worker.Queue != "" && !setFlags["worker-queue"] {
		flags.workerQueue = cfg.Worker.Queue
	}
}

// componentConfig merges the flags into the component sections of the file.
// Sections without flags, such as S3 templates or AMQP solver settings, are
// taken from the file as they are.
func componentConfig(file *runtimeConfig, flags *flagValues) *config.Config {
	cfg := config.Config{}
	if file != nil {
		cfg = file.Config
	}

	cfg.Templates.Dir = flags.templateDir
	cfg.Templates.Watch = flags.templateWatch

	cfg.Solver.Kind = flags.solverKind
	cfg.Solver.HTTP.URL = flags.solverURL
	cfg.Solver.GRPC.Address = flags.solverAddress
	cfg.Solver.Exec.Command = flags.solverCommand
	cfg.Solver.Timeout = flags.solverTimeout
	cfg.Solver.Retries = flags.solverRetries

	if flags.cacheAddr != "" {
		if cfg.Cache == nil {
			cfg.Cache = &cache.Config{}
		}
		cfg.Cache.Addr = flags.cacheAddr
		cfg.Cache.TTL = flags.cacheTTL
	}

	cfg.Store.Driver = flags.storeDriver
	cfg.Store.Postgres.DSN = flags.storeDSN
	if cfg.Store.Driver == config.StorePostgres {
		cfg.Store.Postgres.AutoMigrate = true
	}

	if brokers := splitCommaList(flags.kafkaBrokers); len(brokers) > 0 {
		kafka := cfg.Events.Kafka
		if kafka == nil {
			kafka = &events.KafkaConfig{}
		}
		kafka.Brokers = brokers
		kafka.Topic = flags.kafkaTopic
		cfg.Events.Kafka = kafka
	}
	return &cfg
}

func splitCommaList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
