// Package grpcsolver carries plan searches over gRPC with structpb messages,
// so no generated code is needed on either side.
package grpcsolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/pddlplanning/pddlplanning-go/ontology"
	"github.com/pddlplanning/pddlplanning-go/planning"
)

const (
	ServiceName = "pddlplanning.v1.Planner"
	MethodName  = "SearchPlan"
	// FullMethod is the method path invoked by Client.
	FullMethod = "/" + ServiceName + "/" + MethodName
)

// Config configures the client.
type Config struct {
	Address    string            `json:"address" yaml:"address"`
	TLS        bool              `json:"tls" yaml:"tls"`
	ServerName string            `json:"server_name" yaml:"server_name"`
	Headers    map[string]string `json:"headers" yaml:"headers"`
}

// Client is a planning.Solver calling a remote Planner service.
type Client struct {
	config *Config
	conn   *grpc.ClientConn
}

// Dial creates a client for config.Address. Extra dial options are appended
// after the transport credentials.
func Dial(config *Config, opts ...grpc.DialOption) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if config.Address == "" {
		return nil, fmt.Errorf("address is required")
	}

	creds := insecure.NewCredentials()
	if config.TLS {
		creds = credentials.NewClientTLSFromCert(nil, config.ServerName)
	}
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, opts...)

	conn, err := grpc.NewClient(config.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client: %w", err)
	}
	return &Client{config: config, conn: conn}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// SearchPlan invokes the remote planner.
func (c *Client) SearchPlan(ctx context.Context, domain, problem string) ([]ontology.Task, error) {
	req, err := structpb.NewStruct(map[string]interface{}{
		"domain":  domain,
		"problem": problem,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	if len(c.config.Headers) > 0 {
		headers := metadata.New(nil)
		for key, value := range c.config.Headers {
			headers.Append(key, value)
		}
		ctx = metadata.NewOutgoingContext(ctx, headers)
	}

	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, FullMethod, req, resp); err != nil {
		return nil, fromStatus(err)
	}
	return decodePlan(resp)
}

func decodePlan(resp *structpb.Struct) ([]ontology.Task, error) {
	field, ok := resp.GetFields()["plan"]
	if !ok {
		return nil, &planning.PlanningError{Message: "response has no plan"}
	}
	steps := field.GetListValue().GetValues()
	tasks := make([]ontology.Task, 0, len(steps))
	for i, step := range steps {
		task, err := ontology.ParseTask(step.GetStringValue())
		if err != nil {
			return nil, &planning.PlanningError{Message: fmt.Sprintf("step %d", i), Err: err}
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func encodePlan(tasks []ontology.Task) (*structpb.Struct, error) {
	steps := make([]interface{}, len(tasks))
	for i, t := range tasks {
		steps[i] = "(" + t.String() + ")"
	}
	return structpb.NewStruct(map[string]interface{}{"plan": steps})
}

// fromStatus maps a gRPC status back to a planning error kind.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return planning.Unavailable(err)
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return &planning.TranslationError{Message: st.Message()}
	case codes.FailedPrecondition, codes.NotFound:
		return &planning.PlanningError{Message: st.Message()}
	case codes.Unavailable, codes.ResourceExhausted:
		return planning.Unavailable(errors.New(st.Message()))
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", context.DeadlineExceeded, st.Message())
	case codes.Canceled:
		return fmt.Errorf("%w: %s", context.Canceled, st.Message())
	default:
		return &planning.PlanningError{Message: st.Message(), Err: err}
	}
}

// toStatus maps a planning error kind to a gRPC status.
func toStatus(err error) error {
	code := codes.Internal
	switch planning.Kind(err) {
	case "translation":
		code = codes.InvalidArgument
	case "planning":
		code = codes.FailedPrecondition
	case "unavailable":
		code = codes.Unavailable
	case "timeout":
		code = codes.DeadlineExceeded
	case "canceled":
		code = codes.Canceled
	}
	return status.Error(code, message(err))
}

// message drops the kind prefix, which the status code already carries.
func message(err error) string {
	var (
		te *planning.TranslationError
		pe *planning.PlanningError
	)
	switch {
	case errors.As(err, &te):
		return strings.TrimPrefix(te.Error(), "translation error: ")
	case errors.As(err, &pe):
		return strings.TrimPrefix(pe.Error(), "planning error: ")
	}
	return err.Error()
}

// PlannerServer is the service implementation registered by Register.
type PlannerServer interface {
	planning.Solver
}

// Register exposes solver as the Planner service on server. Errors that are
// not yet classified go through planning.Classify.
func Register(server grpc.ServiceRegistrar, solver planning.Solver) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*PlannerServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: MethodName, Handler: searchPlanHandler},
		},
		Metadata: "pddlplanning/v1/planner.proto",
	}, solver)
}

func searchPlanHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := &structpb.Struct{}
	if err := dec(req); err != nil {
		return nil, err
	}
	handle := func(ctx context.Context, in interface{}) (interface{}, error) {
		return serve(ctx, srv.(planning.Solver), in.(*structpb.Struct))
	}
	if interceptor == nil {
		return handle(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod}
	return interceptor(ctx, req, info, handle)
}

func serve(ctx context.Context, solver planning.Solver, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	domain, problem := fields["domain"].GetStringValue(), fields["problem"].GetStringValue()
	if domain == "" || problem == "" {
		return nil, status.Error(codes.InvalidArgument, "domain and problem are required")
	}

	start := time.Now()
	plan, err := solver.SearchPlan(ctx, domain, problem)
	if err != nil {
		return nil, toStatus(planning.Classify(err))
	}
	resp, err := encodePlan(plan)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	resp.Fields["elapsed_ms"] = structpb.NewNumberValue(float64(time.Since(start).Milliseconds()))
	return resp, nil
}
