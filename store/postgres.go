package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq" // PostgreSQL driver for goose
	"github.com/pressly/goose/v3"

	"github.com/pddlplanning/pddlplanning-go/ontology"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresConfig configures PostgreSQL storage.
type PostgresConfig struct {
	DSN             string        `json:"dsn" yaml:"dsn"`
	MaxConnections  int           `json:"max_connections" yaml:"max_connections"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	AutoMigrate     bool          `json:"auto_migrate" yaml:"auto_migrate"`
	// KeepDocuments stores the full domain and problem text of each search.
	KeepDocuments bool `json:"keep_documents" yaml:"keep_documents"`
}

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	config *PostgresConfig
}

// NewPostgresStore connects to PostgreSQL and migrates the schema when
// AutoMigrate is set.
func NewPostgresStore(ctx context.Context, config *PostgresConfig) (*PostgresStore, error) {
	if config == nil || config.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	if config.MaxConnections == 0 {
		config.MaxConnections = 10
	}
	if config.ConnMaxLifetime == 0 {
		config.ConnMaxLifetime = time.Hour
	}
	if config.ConnMaxIdleTime == 0 {
		config.ConnMaxIdleTime = 30 * time.Minute
	}

	poolConfig, err := pgxpool.ParseConfig(config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	poolConfig.MaxConns = int32(config.MaxConnections)
	poolConfig.MaxConnLifetime = config.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = config.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if config.AutoMigrate {
		if err := Migrate(ctx, config.DSN); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return &PostgresStore{pool: pool, config: config}, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// MigrationStatus prints the state of each embedded migration through goose.
func MigrationStatus(ctx context.Context, dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.StatusContext(ctx, db, "migrations")
}

// Save inserts or replaces a record.
func (p *PostgresStore) Save(ctx context.Context, record Record) (Record, error) {
	record = prepare(record)
	tasks, err := json.Marshal(nonNilTasks(record.Tasks))
	if err != nil {
		return Record{}, fmt.Errorf("failed to marshal tasks: %w", err)
	}

	domain, problem := record.Domain, record.Problem
	if !p.config.KeepDocuments {
		domain, problem = "", ""
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO plan_records (id, domain_name, problem_name, domain, problem, tasks, status, error, duration_ns, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			domain_name = EXCLUDED.domain_name,
			problem_name = EXCLUDED.problem_name,
			domain = EXCLUDED.domain,
			problem = EXCLUDED.problem,
			tasks = EXCLUDED.tasks,
			status = EXCLUDED.status,
			error = EXCLUDED.error,
			duration_ns = EXCLUDED.duration_ns`,
		record.ID, record.DomainName, record.ProblemName, domain, problem, tasks,
		string(record.Status), record.Error, record.Duration.Nanoseconds(), record.CreatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("failed to store plan record: %w", err)
	}
	return record, nil
}

const selectRecord = `SELECT id, domain_name, problem_name, domain, problem, tasks, status, error, duration_ns, created_at FROM plan_records`

// Get returns a record by id.
func (p *PostgresStore) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	row := p.pool.QueryRow(ctx, selectRecord+` WHERE id = $1`, id)
	r, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to get plan record: %w", err)
	}
	return r, nil
}

// List returns matching records, newest first.
func (p *PostgresStore) List(ctx context.Context, filter Filter) ([]Record, error) {
	query, args := listQuery(filter)
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list plan records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list plan records: %w", err)
	}
	return out, nil
}

// listQuery builds the filtered select with positional arguments.
func listQuery(filter Filter) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)
	add := func(condition string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}
	if filter.ProblemName != "" {
		add("problem_name = $%d", filter.ProblemName)
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if !filter.Since.IsZero() {
		add("created_at >= $%d", filter.Since)
	}

	query := selectRecord
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, filter.limit())
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	return query, args
}

// Delete removes a record.
func (p *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM plan_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete plan record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		r        Record
		tasks    []byte
		status   string
		duration int64
	)
	if err := row.Scan(&r.ID, &r.DomainName, &r.ProblemName, &r.Domain, &r.Problem, &tasks, &status, &r.Error, &duration, &r.CreatedAt); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(tasks, &r.Tasks); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal tasks: %w", err)
	}
	r.Status = Status(status)
	r.Duration = time.Duration(duration)
	return r, nil
}

func nonNilTasks(tasks []ontology.Task) []ontology.Task {
	if tasks == nil {
		return []ontology.Task{}
	}
	return tasks
}
