package planning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pddlplanning/pddlplanning-go/events"
	"github.com/pddlplanning/pddlplanning-go/internal/testutils"
	"github.com/pddlplanning/pddlplanning-go/ontology"
	"github.com/pddlplanning/pddlplanning-go/store"
)

const recordedDomain = "(define (domain greetings)\n(:predicates (was_greeted ?o)))"

type failingStore struct{ store.Store }

func (failingStore) Save(context.Context, store.Record) (store.Record, error) {
	return store.Record{}, errors.New("disk full")
}

type stalledStore struct{ store.Store }

func (stalledStore) Save(ctx context.Context, _ store.Record) (store.Record, error) {
	<-ctx.Done()
	return store.Record{}, ctx.Err()
}

type stalledPublisher struct{ events.NopPublisher }

func (stalledPublisher) Publish(ctx context.Context, _ ...events.Event) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRecorderBoundsStalledRecording(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	solver := NewRecorder(&testutils.StubSolver{Plan: greetPlan()}, stalledStore{}, stalledPublisher{}, zap.New(core))
	solver.timeout = 20 * time.Millisecond

	done := make(chan struct{})
	var plan []ontology.Task
	var err error
	go func() {
		defer close(done)
		plan, err = solver.SearchPlan(context.Background(), recordedDomain, testutils.GreetProblem)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("search blocked on recording")
	}
	require.NoError(t, err)
	assert.Equal(t, greetPlan(), plan)
	assert.Equal(t, 2, logs.Len())
}

func TestRecorderSavesSuccessfulSearch(t *testing.T) {
	records := store.NewMemoryStore()
	published := &events.MemoryPublisher{}
	solver := NewRecorder(&testutils.StubSolver{Plan: greetPlan()}, records, published, nil)

	plan, err := solver.SearchPlan(context.Background(), recordedDomain, testutils.GreetProblem)
	require.NoError(t, err)
	assert.Equal(t, greetPlan(), plan)

	listed, err := records.List(context.Background(), store.Filter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	r := listed[0]
	assert.Equal(t, "greetings", r.DomainName)
	assert.Equal(t, "greet_everyone", r.ProblemName)
	assert.Equal(t, store.StatusSucceeded, r.Status)
	assert.Equal(t, greetPlan(), r.Tasks)
	assert.Empty(t, r.Error)

	evs := published.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.TypePlanFound, evs[0].Type)
	assert.Equal(t, r.ID, evs[0].RecordID)
	assert.Equal(t, "succeeded", evs[0].Status)
}

func TestRecorderRecordsFailures(t *testing.T) {
	records := store.NewMemoryStore()
	published := &events.MemoryPublisher{}
	failure := &TranslationError{Message: "unknown requirement"}
	solver := NewRecorder(&testutils.StubSolver{Err: failure}, records, published, nil)

	_, err := solver.SearchPlan(context.Background(), recordedDomain, testutils.GreetProblem)
	assert.Same(t, failure, err)

	listed, err := records.List(context.Background(), store.Filter{Status: store.StatusTranslationFailed})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "translation error: unknown requirement", listed[0].Error)

	evs := published.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.TypePlanFailed, evs[0].Type)
}

func TestRecorderRecordsCanceledSearch(t *testing.T) {
	records := store.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRecorder(&testutils.StubSolver{}, records, nil, nil).SearchPlan(ctx, "", "")
	assert.ErrorIs(t, err, context.Canceled)

	listed, listErr := records.List(context.Background(), store.Filter{})
	require.NoError(t, listErr)
	require.Len(t, listed, 1)
	assert.Equal(t, store.StatusFailed, listed[0].Status)
	assert.Empty(t, listed[0].ProblemName)
}

func TestRecorderStoreFailureDoesNotFailSearch(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	published := &events.MemoryPublisher{}
	solver := NewRecorder(&testutils.StubSolver{Plan: greetPlan()}, failingStore{}, published, zap.New(core))

	plan, err := solver.SearchPlan(context.Background(), recordedDomain, testutils.GreetProblem)
	require.NoError(t, err)
	assert.Len(t, plan, 2)
	assert.Equal(t, 1, logs.FilterMessage("failed to record plan search").Len())

	evs := published.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, uuid.Nil, evs[0].RecordID)
}

func TestRecorderDuration(t *testing.T) {
	records := store.NewMemoryStore()
	r := NewRecorder(&testutils.StubSolver{}, records, nil, nil)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := []time.Time{start, start.Add(250 * time.Millisecond)}
	r.now = func() time.Time {
		next := ticks[0]
		ticks = ticks[1:]
		return next
	}

	_, err := r.SearchPlan(context.Background(), "", "")
	require.NoError(t, err)
	listed, err := records.List(context.Background(), store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, listed[0].Duration)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want store.Status
	}{
		{nil, store.StatusSucceeded},
		{&TranslationError{Message: "x"}, store.StatusTranslationFailed},
		{&PlanningError{Message: "x"}, store.StatusPlanningFailed},
		{Unavailable(errors.New("down")), store.StatusUnavailable},
		{context.DeadlineExceeded, store.StatusUnavailable},
		{errors.New("boom"), store.StatusFailed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusOf(tt.err), "%v", tt.err)
	}
}

func TestRecordingDecorator(t *testing.T) {
	records := store.NewMemoryStore()
	stub := &testutils.StubSolver{Plan: []ontology.Task{ontology.NewTask("greet", "world")}}

	s := Chain(stub, Recording(records, nil, nil))
	_, err := s.SearchPlan(context.Background(), recordedDomain, testutils.GreetProblem)
	require.NoError(t, err)

	listed, err := records.List(context.Background(), store.Filter{ProblemName: "greet_everyone"})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}
