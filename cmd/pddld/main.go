// Command pddld serves plan searches, state evaluation and problem checks
// over HTTP, with optional gRPC and AMQP front ends sharing one solver chain.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/pddlplanning/pddlplanning-go/internal/config"
	"github.com/pddlplanning/pddlplanning-go/planning"
	"github.com/pddlplanning/pddlplanning-go/solver/amqpsolver"
	"github.com/pddlplanning/pddlplanning-go/solver/grpcsolver"
)

func registerFlags(fs *flag.FlagSet, v *flagValues) *string {
	configPath := fs.String("config", "", "Path to YAML/JSON config file")

	fs.StringVar(&v.httpAddr, "http-addr", ":8080", "HTTP server address")
	fs.StringVar(&v.grpcAddr, "grpc-addr", "", "gRPC server address (empty to disable)")

	fs.StringVar(&v.templateDir, "template-dir", "", "Directory of domain/problem templates")
	fs.BoolVar(&v.templateWatch, "template-watch", false, "Reload templates when the directory changes")

	fs.StringVar(&v.solverKind, "solver", config.SolverHTTP, "Solver client (http, grpc, amqp, exec)")
	fs.StringVar(&v.solverURL, "solver-url", "", "HTTP planner endpoint")
	fs.StringVar(&v.solverAddress, "solver-address", "", "gRPC planner address")
	fs.StringVar(&v.solverCommand, "solver-command", "", "Planner binary for the exec solver")
	fs.DurationVar(&v.solverTimeout, "solver-timeout", 0, "Bound on each plan search (0 for none)")
	fs.Uint64Var(&v.solverRetries, "solver-retries", 0, "Attempts when the solver is unavailable")

	fs.StringVar(&v.cacheAddr, "cache-addr", "", "Redis address caching plans")
	fs.DurationVar(&v.cacheTTL, "cache-ttl", time.Hour, "Lifetime of cached plans")

	fs.StringVar(&v.storeDriver, "store", config.StoreMemory, "Plan history store (memory, postgres, none)")
	fs.StringVar(&v.storeDSN, "store-dsn", "", "PostgreSQL DSN for the postgres store")

	fs.StringVar(&v.kafkaBrokers, "kafka-brokers", "", "Kafka brokers for plan events (comma-separated)")
	fs.StringVar(&v.kafkaTopic, "kafka-topic", "pddl.plans", "Kafka topic for plan events")

	fs.StringVar(&v.apiAuth, "api-auth", "token", "API auth mode (token, disabled)")
	fs.StringVar(&v.apiToken, "api-token", "", "Write token for /v1 endpoints (comma-separated)")
	fs.StringVar(&v.apiReadToken, "api-read-token", "", "Read-only token for /v1 endpoints (comma-separated)")
	fs.StringVar(&v.apiACLFile, "api-acl-file", "", "Path to API ACL file (YAML/JSON)")
	fs.IntVar(&v.apiRateLimit, "api-rate-limit", 120, "API requests per minute per client (0 to disable)")
	fs.IntVar(&v.apiRateBurst, "api-rate-burst", 60, "API burst size (0 to use rate limit)")
	fs.Int64Var(&v.apiMaxBody, "api-max-body", defaultMaxBody, "Largest accepted request body in bytes")

	fs.StringVar(&v.workerAMQPURL, "worker-amqp-url", "", "AMQP broker answering plan requests (empty to disable)")
	fs.StringVar(&v.workerQueue, "worker-queue", "pddl.plan", "AMQP queue answered by the worker")

	fs.BoolVar(&v.verbose, "verbose", false, "Enable verbose logging")
	return configPath
}

func main() {
	var flags flagValues
	configPath := registerFlags(flag.CommandLine, &flags)
	flag.Parse()

	setFlags := map[string]bool{}
	flag.CommandLine.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	var file *runtimeConfig
	if strings.TrimSpace(*configPath) != "" {
		var err error
		if file, err = loadRuntimeConfig(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		applyRuntimeConfig(file, &flags, setFlags)
	}

	logger, err := newLogger(flags.verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, file, &flags, logger); err != nil {
		logger.Error("pddld stopped", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, file *runtimeConfig, flags *flagValues, logger *zap.Logger) error {
	cfg := componentConfig(file, flags)
	if flags.workerAMQPURL != "" && cfg.Solver.Kind == config.SolverAMQP &&
		cfg.Solver.AMQP.URL == flags.workerAMQPURL && cfg.Solver.AMQP.Queue == flags.workerQueue {
		return errors.New("worker queue must differ from the amqp solver queue")
	}

	stack, err := config.Build(ctx, cfg, false, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := stack.Close(); err != nil {
			logger.Warn("closing components", zap.Error(err))
		}
	}()
	if stack.Templates == nil {
		logger.Warn("no template source configured; requests must carry their documents")
	}

	srv, err := newServer(stack, flags, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 3)
	running := 1
	go func() { errs <- startHTTPServer(ctx, flags.httpAddr, srv.routes(), logger) }()
	if flags.grpcAddr != "" {
		running++
		go func() { errs <- startGRPCServer(ctx, flags.grpcAddr, stack.Solver, logger) }()
	}
	if flags.workerAMQPURL != "" {
		running++
		go func() { errs <- startWorker(ctx, flags, stack.Solver, logger) }()
	}

	var first error
	for ; running > 0; running-- {
		if err := <-errs; err != nil && first == nil {
			first = err
			cancel()
		}
	}
	return first
}

func newServer(stack *config.Stack, flags *flagValues, logger *zap.Logger) (*server, error) {
	auth, generated, err := newTokenAuth(flags.apiAuth, flags.apiToken, flags.apiReadToken)
	if err != nil {
		return nil, err
	}
	if generated != "" {
		logger.Warn("no api token configured; generated a write token", zap.String("token", generated))
	}

	var rules *acl
	if flags.apiACLFile != "" {
		if rules, err = loadACL(flags.apiACLFile); err != nil {
			return nil, err
		}
	}

	return &server{
		templates: stack.Templates,
		solver:    stack.Solver,
		store:     stack.Store,
		logger:    logger,
		auth:      auth,
		limiter:   newRateLimiter(flags.apiRateLimit, flags.apiRateBurst),
		acl:       rules,
		maxBody:   flags.apiMaxBody,
	}, nil
}

func startHTTPServer(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("starting HTTP server", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}

func startGRPCServer(ctx context.Context, addr string, solver planning.Solver, logger *zap.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	server := grpc.NewServer()
	grpcsolver.Register(server, solver)

	go func() {
		<-ctx.Done()
		server.GracefulStop()
	}()

	logger.Info("starting gRPC server", zap.String("addr", addr))
	if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc server: %w", err)
	}
	logger.Info("gRPC server stopped")
	return nil
}

func startWorker(ctx context.Context, flags *flagValues, solver planning.Solver, logger *zap.Logger) error {
	cfg := &amqpsolver.Config{URL: flags.workerAMQPURL, Queue: flags.workerQueue, QueueDurable: true}
	logger.Info("starting AMQP worker", zap.String("queue", cfg.Queue))
	if err := amqpsolver.Serve(ctx, cfg, solver, logger); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("amqp worker: %w", err)
	}
	logger.Info("AMQP worker stopped")
	return nil
}
