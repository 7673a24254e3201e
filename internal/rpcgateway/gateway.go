// ============================================================================
// TaskGateway - gRPC Coordinator Surface Over A WorkerSet
// ============================================================================
//
// Package: internal/rpcgateway
// File: gateway.go
// Purpose: The concrete "coordinator RPC handler" spec §1 cites as an
//          external collaborator of the task-execution core: a gRPC
//          service that turns SubmitTask/GetStatus requests into calls
//          against an *executor.WorkerSet, exactly the way the teacher's
//          internal/server.Server turns Raft/job RPCs into calls against
//          a *controller.Controller.
//
// Routing:
//   RoutingKey == "" -> WorkerSet.ExecuteRR (round robin)
//   RoutingKey != "" -> WorkerSet.ExecuteHashBy(key, task) (affinity)
//
// ============================================================================

package rpcgateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dingodb/dingo-taskqueue/pkg/executor"
	"github.com/dingodb/dingo-taskqueue/pkg/task"
)

var log = slog.Default()

// Handler runs the business logic for one task type. Returning an error
// is surfaced only through logging; the spec treats task execution
// outcomes as the task's own business (§7), so Handler has no bearing on
// whether SubmitTask reports acceptance.
type Handler func(ctx context.Context, payload []byte) error

// TaskGatewayServer is the hand-written equivalent of what
// protoc-gen-go-grpc would emit for taskqueue.proto's TaskGateway
// service.
type TaskGatewayServer interface {
	SubmitTask(context.Context, *SubmitTaskRequest) (*SubmitTaskResponse, error)
	GetStatus(context.Context, *GetStatusRequest) (*GetStatusResponse, error)
}

// remoteWorkerInfo is informational bookkeeping about a remote process
// that has announced itself to this gateway, adapted from the teacher's
// internal/server.WorkerInfo. It never participates in routing --
// routing stays entirely in-process via WorkerSet (spec §4.4) -- it only
// backs GetStatus-adjacent diagnostics and staleness detection.
type remoteWorkerInfo struct {
	NodeID     string
	Address    string
	Capacity   int32
	Tags       []string
	LastSeen   time.Time
	ExpiryTime time.Time
}

// Gateway implements TaskGatewayServer over one WorkerSet.
type Gateway struct {
	set      *executor.WorkerSet
	handlers map[string]Handler

	remoteMu sync.Mutex
	remote   map[string]remoteWorkerInfo
}

// NewGateway wires a Gateway to an already-Init'd WorkerSet. Register
// per-task-type handlers with Handle before calling Serve.
func NewGateway(set *executor.WorkerSet) *Gateway {
	return &Gateway{
		set:      set,
		handlers: make(map[string]Handler),
		remote:   make(map[string]remoteWorkerInfo),
	}
}

// Heartbeat records (or refreshes) a remote worker's announcement, alive
// until ttl elapses without another call. Purely informational -- it has
// no effect on SubmitTask routing.
func (g *Gateway) Heartbeat(nodeID, address string, capacity int32, tags []string, ttl time.Duration) {
	now := time.Now()
	g.remoteMu.Lock()
	defer g.remoteMu.Unlock()
	g.remote[nodeID] = remoteWorkerInfo{
		NodeID:     nodeID,
		Address:    address,
		Capacity:   capacity,
		Tags:       tags,
		LastSeen:   now,
		ExpiryTime: now.Add(ttl),
	}
}

// RemoteWorkers returns the node ids of remote workers whose heartbeat
// has not yet expired, for diagnostics and logging.
func (g *Gateway) RemoteWorkers() []string {
	now := time.Now()
	g.remoteMu.Lock()
	defer g.remoteMu.Unlock()
	var alive []string
	for id, info := range g.remote {
		if now.Before(info.ExpiryTime) {
			alive = append(alive, id)
		} else {
			delete(g.remote, id)
		}
	}
	return alive
}

// Handle registers the function that runs when a task of the given type
// executes. Tasks of unregistered types log a warning and otherwise
// no-op -- this mirrors the spec's stance that execution failures are
// the task's own business, never the core's.
func (g *Gateway) Handle(taskType string, h Handler) {
	g.handlers[taskType] = h
}

// gatewayTask adapts one SubmitTask request into a task.Task.
type gatewayTask struct {
	task.Base
	payload []byte
	handler Handler
}

func newGatewayTask(taskType string, payload []byte, handler Handler) *gatewayTask {
	t := &gatewayTask{payload: payload, handler: handler}
	t.Base = task.NewBase(taskType)
	return t
}

func (t *gatewayTask) Run() {
	if t.handler == nil {
		log.Warn("no handler registered for task type", "task_type", t.Type(), "task_id", t.ID())
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := t.handler(ctx, t.payload); err != nil {
		log.Warn("task handler returned error", "task_type", t.Type(), "task_id", t.ID(), "error", err)
	}
}

// SubmitTask forwards the request into the WorkerSet via round-robin or
// hash-affinity routing, per RoutingKey.
func (g *Gateway) SubmitTask(ctx context.Context, req *SubmitTaskRequest) (*SubmitTaskResponse, error) {
	t := newGatewayTask(req.TaskType, req.Payload, g.handlers[req.TaskType])

	var accepted bool
	if req.RoutingKey == "" {
		accepted = g.set.ExecuteRR(t)
	} else {
		accepted = g.set.ExecuteHashBy(req.RoutingKey, t)
	}

	if !accepted {
		return &SubmitTaskResponse{
			Accepted: false,
			TaskID:   t.ID(),
			Message:  "rejected: worker set at admission limit or affinity worker unavailable",
		}, nil
	}
	return &SubmitTaskResponse{Accepted: true, TaskID: t.ID()}, nil
}

// GetStatus snapshots the aggregate counters plus each worker's pending
// traces. Per-worker entries carry only Index and Traces; their Pending
// and Total fields are left zero.
func (g *Gateway) GetStatus(ctx context.Context, req *GetStatusRequest) (*GetStatusResponse, error) {
	traces := g.set.PendingTraces()
	resp := &GetStatusResponse{
		WorkerCount:   int32(g.set.WorkerCount()),
		TotalAccepted: g.set.TotalCount(),
		Pending:       g.set.PendingCount(),
		Workers:       make([]WorkerStatus, len(traces)),
	}
	for i, t := range traces {
		resp.Workers[i] = WorkerStatus{Index: int32(i), Traces: t}
	}
	return resp, nil
}

// UnimplementedTaskGatewayServer can be embedded by servers that only
// implement a subset of the RPCs, matching the
// pb.UnimplementedXServiceServer convention protoc-gen-go-grpc emits.
type UnimplementedTaskGatewayServer struct{}

func (UnimplementedTaskGatewayServer) SubmitTask(context.Context, *SubmitTaskRequest) (*SubmitTaskResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SubmitTask not implemented")
}
func (UnimplementedTaskGatewayServer) GetStatus(context.Context, *GetStatusRequest) (*GetStatusResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetStatus not implemented")
}

var _ TaskGatewayServer = (*Gateway)(nil)

func _TaskGateway_SubmitTask_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SubmitTaskRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TaskGatewayServer).SubmitTask(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/dingodb.taskqueue.TaskGateway/SubmitTask"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TaskGatewayServer).SubmitTask(ctx, req.(*SubmitTaskRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TaskGateway_GetStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TaskGatewayServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/dingodb.taskqueue.TaskGateway/GetStatus"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TaskGatewayServer).GetStatus(ctx, req.(*GetStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is the hand-written equivalent of what protoc-gen-go-grpc
// emits for taskqueue.proto's TaskGateway service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "dingodb.taskqueue.TaskGateway",
	HandlerType: (*TaskGatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitTask", Handler: _TaskGateway_SubmitTask_Handler},
		{MethodName: "GetStatus", Handler: _TaskGateway_GetStatus_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "taskqueue.proto",
}

// RegisterTaskGatewayServer registers srv on s, mirroring the generated
// RegisterXServer helper.
func RegisterTaskGatewayServer(s *grpc.Server, srv TaskGatewayServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// TaskGatewayClient is the hand-written equivalent of a generated gRPC
// client stub.
type TaskGatewayClient interface {
	SubmitTask(ctx context.Context, in *SubmitTaskRequest, opts ...grpc.CallOption) (*SubmitTaskResponse, error)
	GetStatus(ctx context.Context, in *GetStatusRequest, opts ...grpc.CallOption) (*GetStatusResponse, error)
}

type taskGatewayClient struct {
	cc grpc.ClientConnInterface
}

// NewTaskGatewayClient wraps a dialed connection as a typed client.
func NewTaskGatewayClient(cc grpc.ClientConnInterface) TaskGatewayClient {
	return &taskGatewayClient{cc: cc}
}

func (c *taskGatewayClient) SubmitTask(ctx context.Context, in *SubmitTaskRequest, opts ...grpc.CallOption) (*SubmitTaskResponse, error) {
	out := new(SubmitTaskResponse)
	opts = append(opts, grpc.CallContentSubtype(codecName))
	if err := c.cc.Invoke(ctx, "/dingodb.taskqueue.TaskGateway/SubmitTask", in, out, opts...); err != nil {
		return nil, fmt.Errorf("rpcgateway: SubmitTask: %w", err)
	}
	return out, nil
}

func (c *taskGatewayClient) GetStatus(ctx context.Context, in *GetStatusRequest, opts ...grpc.CallOption) (*GetStatusResponse, error) {
	out := new(GetStatusResponse)
	opts = append(opts, grpc.CallContentSubtype(codecName))
	if err := c.cc.Invoke(ctx, "/dingodb.taskqueue.TaskGateway/GetStatus", in, out, opts...); err != nil {
		return nil, fmt.Errorf("rpcgateway: GetStatus: %w", err)
	}
	return out, nil
}
