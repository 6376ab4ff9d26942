package store

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pddlplanning/pddlplanning-go/ontology"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleRecords() []Record {
	return []Record{
		{
			DomainName:  "greet",
			ProblemName: "greet_everyone",
			Tasks:       []ontology.Task{ontology.NewTask("greet", "world"), ontology.NewTask("greet", "alice")},
			Status:      StatusSucceeded,
			Duration:    150 * time.Millisecond,
			CreatedAt:   base,
		},
		{
			DomainName:  "greet",
			ProblemName: "greet_everyone",
			Status:      StatusPlanningFailed,
			Error:       "no plan found",
			CreatedAt:   base.Add(time.Hour),
		},
		{
			DomainName:  "travel",
			ProblemName: "trip",
			Status:      StatusSucceeded,
			CreatedAt:   base.Add(2 * time.Hour),
		},
	}
}

func TestMemoryStoreSaveFillsIDAndTime(t *testing.T) {
	s := NewMemoryStore()
	saved, err := s.Save(context.Background(), Record{ProblemName: "p"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	got, err := s.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved, got)
}

func TestMemoryStoreSaveReplaces(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	saved, err := s.Save(ctx, Record{ProblemName: "p", Status: StatusFailed})
	require.NoError(t, err)

	saved.Status = StatusSucceeded
	_, err = s.Save(ctx, saved)
	require.NoError(t, err)

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, StatusSucceeded, all[0].Status)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	saved, err := s.Save(ctx, sampleRecords()[0])
	require.NoError(t, err)

	saved.Tasks[0] = ontology.NewTask("wave", "alice")
	got, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "greet", got.Tasks[0].Action)
}

func TestMemoryStoreList(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, r := range sampleRecords() {
		_, err := s.Save(ctx, r)
		require.NoError(t, err)
	}

	tests := []struct {
		name     string
		filter   Filter
		problems []string
	}{
		{"all newest first", Filter{}, []string{"trip", "greet_everyone", "greet_everyone"}},
		{"by problem", Filter{ProblemName: "greet_everyone"}, []string{"greet_everyone", "greet_everyone"}},
		{"by status", Filter{Status: StatusSucceeded}, []string{"trip", "greet_everyone"}},
		{"since", Filter{Since: base.Add(30 * time.Minute)}, []string{"trip", "greet_everyone"}},
		{"limit", Filter{Limit: 1}, []string{"trip"}},
		{"no match", Filter{ProblemName: "missing"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := s.List(ctx, tt.filter)
			require.NoError(t, err)
			var problems []string
			for _, r := range records {
				problems = append(problems, r.ProblemName)
			}
			assert.Equal(t, tt.problems, problems)
		})
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, uuid.New()), ErrNotFound)

	saved, err := s.Save(ctx, Record{})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, saved.ID))
	_, err = s.Get(ctx, saved.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().Save(ctx, Record{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExportParquet(t *testing.T) {
	records := sampleRecords()
	for i := range records {
		records[i] = prepare(records[i])
	}

	var buf bytes.Buffer
	require.NoError(t, ExportParquet(&buf, records))

	rows, err := ReadParquet(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := rows[0]
	assert.Equal(t, records[0].ID.String(), first.ID)
	assert.Equal(t, "greet_everyone", first.ProblemName)
	assert.Equal(t, "succeeded", first.Status)
	assert.Equal(t, int64(2), first.TaskCount)
	assert.Equal(t, (150 * time.Millisecond).Nanoseconds(), first.DurationNS)
	assert.Equal(t, "2026-03-01T12:00:00Z", first.CreatedAt)

	var tasks []ontology.Task
	require.NoError(t, json.Unmarshal([]byte(first.Tasks), &tasks))
	assert.Equal(t, records[0].Tasks, tasks)

	assert.Equal(t, "[]", rows[1].Tasks)
	assert.Equal(t, "no plan found", rows[1].Error)
}

func TestExportParquetEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportParquet(&buf, nil))

	rows, err := ReadParquet(buf.Bytes())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestListQuery(t *testing.T) {
	query, args := listQuery(Filter{ProblemName: "p", Status: StatusSucceeded, Limit: 5})
	assert.True(t, strings.HasSuffix(query, "WHERE problem_name = $1 AND status = $2 ORDER BY created_at DESC LIMIT $3"), query)
	assert.Equal(t, []interface{}{"p", "succeeded", 5}, args)

	query, args = listQuery(Filter{})
	assert.NotContains(t, query, "WHERE")
	assert.Equal(t, []interface{}{DefaultListLimit}, args)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("PDDL_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PDDL_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	s, err := NewPostgresStore(ctx, &PostgresConfig{DSN: dsn, AutoMigrate: true, KeepDocuments: true})
	require.NoError(t, err)
	defer s.Close()

	record := sampleRecords()[0]
	record.Domain = "(define (domain greet))"
	saved, err := s.Save(ctx, record)
	require.NoError(t, err)
	defer s.Delete(ctx, saved.ID)

	got, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Tasks, got.Tasks)
	assert.Equal(t, saved.Domain, got.Domain)
	assert.Equal(t, saved.Duration, got.Duration)
	assert.True(t, saved.CreatedAt.Equal(got.CreatedAt))

	listed, err := s.List(ctx, Filter{ProblemName: "greet_everyone", Limit: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, listed)

	_, err = s.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewPostgresStoreRequiresDSN(t *testing.T) {
	_, err := NewPostgresStore(context.Background(), &PostgresConfig{})
	assert.EqualError(t, err, "dsn is required")
}
