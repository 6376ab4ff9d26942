package grpcsolver

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/pddlplanning/pddlplanning-go/internal/testutils"
	"github.com/pddlplanning/pddlplanning-go/ontology"
	"github.com/pddlplanning/pddlplanning-go/planning"
)

func startPlanner(t *testing.T, solver planning.Solver, headers map[string]string) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	Register(server, solver)
	go server.Serve(lis)
	t.Cleanup(server.Stop)

	c, err := Dial(&Config{Address: "passthrough:///bufnet", Headers: headers},
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSearchPlanRoundTrip(t *testing.T) {
	plan := []ontology.Task{ontology.NewTask("greet", "world"), ontology.NewTask("rest")}
	stub := &testutils.StubSolver{Plan: plan}
	c := startPlanner(t, stub, nil)

	got, err := c.SearchPlan(context.Background(), "dom", "prob")
	require.NoError(t, err)
	assert.Equal(t, plan, got)

	calls := stub.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "dom", calls[0].Domain)
	assert.Equal(t, "prob", calls[0].Problem)
}

func TestSearchPlanErrorKinds(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    string
		message string
	}{
		{"translation", &planning.TranslationError{Message: "bad domain"}, "translation", "translation error: bad domain"},
		{"planning", &planning.PlanningError{Message: "no plan"}, "planning", "planning error: no plan"},
		{"unavailable", planning.Unavailable(errors.New("busy")), "unavailable", ""},
		{"unclassified malformed input", &ontology.MalformedInputError{Position: 1, Message: "expected '('"}, "translation", ""},
		{"unclassified other", errors.New("boom"), "planning", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := startPlanner(t, &testutils.StubSolver{Err: tt.err}, nil)
			_, err := c.SearchPlan(context.Background(), "dom", "prob")
			require.Error(t, err)
			assert.Equal(t, tt.kind, planning.Kind(err))
			if tt.message != "" {
				assert.EqualError(t, err, tt.message)
			}
		})
	}
}

func TestSearchPlanRejectsEmptyDocuments(t *testing.T) {
	stub := &testutils.StubSolver{}
	c := startPlanner(t, stub, nil)

	_, err := c.SearchPlan(context.Background(), "", "prob")
	assert.ErrorIs(t, err, planning.ErrTranslation)
	assert.Empty(t, stub.Calls())
}

func TestSearchPlanSendsHeaders(t *testing.T) {
	var token []string
	solver := planning.SolverFunc(func(ctx context.Context, domain, problem string) ([]ontology.Task, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		token = md.Get("x-token")
		return nil, nil
	})
	c := startPlanner(t, solver, map[string]string{"x-token": "secret"})

	plan, err := c.SearchPlan(context.Background(), "dom", "prob")
	require.NoError(t, err)
	assert.Empty(t, plan)
	assert.Equal(t, []string{"secret"}, token)
}

func TestFromStatus(t *testing.T) {
	assert.ErrorIs(t, fromStatus(status.Error(codes.DeadlineExceeded, "slow")), context.DeadlineExceeded)
	assert.ErrorIs(t, fromStatus(status.Error(codes.Canceled, "gone")), context.Canceled)
	assert.ErrorIs(t, fromStatus(status.Error(codes.Unavailable, "down")), planning.ErrSolverUnavailable)
	assert.ErrorIs(t, fromStatus(status.Error(codes.Internal, "bug")), planning.ErrPlanning)
}

func TestDecodePlan(t *testing.T) {
	_, err := decodePlan(&structpb.Struct{})
	assert.ErrorIs(t, err, planning.ErrPlanning)

	resp, err := structpb.NewStruct(map[string]interface{}{"plan": []interface{}{"(greet world"}})
	require.NoError(t, err)
	_, err = decodePlan(resp)
	assert.ErrorIs(t, err, ontology.ErrMalformedInput)
}

func TestDialValidation(t *testing.T) {
	_, err := Dial(nil)
	assert.EqualError(t, err, "config is nil")
	_, err = Dial(&Config{})
	assert.EqualError(t, err, "address is required")
}
