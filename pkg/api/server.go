package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cuemby/mgs/pkg/grainstore"
	"github.com/cuemby/mgs/pkg/metrics"
	"github.com/cuemby/mgs/pkg/types"
)

// grainStorageServer is the handler-side contract the hand-written
// ServiceDesc below dispatches to; Server implements it.
type grainStorageServer interface {
	Read(context.Context, *ReadRequest) (*ReadResponse, error)
	Write(context.Context, *WriteRequest) (*WriteResponse, error)
	Clear(context.Context, *ClearRequest) (*ClearResponse, error)
}

var grainStorageServiceDesc = grpc.ServiceDesc{
	ServiceName: "mgs.GrainStorage",
	HandlerType: (*grainStorageServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Read", Handler: grainStorageReadHandler},
		{MethodName: "Write", Handler: grainStorageWriteHandler},
		{MethodName: "Clear", Handler: grainStorageClearHandler},
	},
	Metadata: "mgs/api",
}

func grainStorageReadHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ReadRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(grainStorageServer).Read(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mgs.GrainStorage/Read"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(grainStorageServer).Read(ctx, req.(*ReadRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func grainStorageWriteHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(WriteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(grainStorageServer).Write(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mgs.GrainStorage/Write"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(grainStorageServer).Write(ctx, req.(*WriteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func grainStorageClearHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ClearRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(grainStorageServer).Clear(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mgs.GrainStorage/Clear"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(grainStorageServer).Clear(ctx, req.(*ClearRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Server implements the GrainStorage gRPC facade over one or more
// registered Grain Storage Cores, keyed by storage-name, plus the
// /healthz, /readyz and /metrics HTTP endpoints.
type Server struct {
	cores map[string]*grainstore.Core
	grpc  *grpc.Server
	http  *http.Server
}

// NewServer returns a Server exposing the given storage-name -> Core
// registry.
func NewServer(cores map[string]*grainstore.Core) *Server {
	s := &Server{cores: cores, grpc: grpc.NewServer()}
	s.grpc.RegisterService(&grainStorageServiceDesc, s)
	return s
}

// StartGRPC starts the gRPC listener. It blocks until the listener closes.
func (s *Server) StartGRPC(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.grpc.Serve(lis)
}

// StartHTTP starts the health/metrics HTTP listener. It blocks until the
// listener closes.
func (s *Server) StartHTTP(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", metrics.LivenessHandler())
	mux.HandleFunc("/readyz", metrics.ReadyHandler())
	mux.Handle("/metrics", metrics.Handler())

	s.http = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s.http.ListenAndServe()
}

// Stop gracefully stops both listeners.
func (s *Server) Stop(ctx context.Context) {
	s.grpc.GracefulStop()
	if s.http != nil {
		s.http.Shutdown(ctx)
	}
}

func (s *Server) core(storage string) (*grainstore.Core, error) {
	core, ok := s.cores[storage]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "unknown storage %q", storage)
	}
	return core, nil
}

// Read implements grainStorageServer.
func (s *Server) Read(ctx context.Context, req *ReadRequest) (*ReadResponse, error) {
	core, err := s.core(req.Storage)
	if err != nil {
		return nil, err
	}
	if req.Tenant != "" {
		ctx = grainstore.WithTenant(ctx, req.Tenant)
	}
	slot := &types.StateSlot{}
	core.Read(ctx, req.EntityID, slot)
	return &ReadResponse{Slot: toMessage(slot)}, nil
}

// Write implements grainStorageServer.
func (s *Server) Write(ctx context.Context, req *WriteRequest) (*WriteResponse, error) {
	core, err := s.core(req.Storage)
	if err != nil {
		return nil, err
	}
	if req.Tenant != "" {
		ctx = grainstore.WithTenant(ctx, req.Tenant)
	}
	slot := fromMessage(req.Slot)
	writeErr := core.Write(ctx, req.EntityID, &slot)
	if grainstore.IsConcurrencyConflict(writeErr) {
		return &WriteResponse{ConcurrencyConflict: true}, nil
	}
	if writeErr != nil {
		return nil, status.Errorf(codes.Internal, "%v", writeErr)
	}
	return &WriteResponse{Slot: toMessage(&slot)}, nil
}

// Clear implements grainStorageServer.
func (s *Server) Clear(ctx context.Context, req *ClearRequest) (*ClearResponse, error) {
	core, err := s.core(req.Storage)
	if err != nil {
		return nil, err
	}
	if req.Tenant != "" {
		ctx = grainstore.WithTenant(ctx, req.Tenant)
	}
	slot := &types.StateSlot{}
	if err := core.Clear(ctx, req.EntityID, slot); err != nil {
		return nil, status.Errorf(codes.Internal, "%v", err)
	}
	return &ClearResponse{}, nil
}

func toMessage(slot *types.StateSlot) StateSlotMessage {
	return StateSlotMessage{Data: slot.Data, ETag: slot.ETag, RecordExists: slot.RecordExists}
}

func fromMessage(m StateSlotMessage) types.StateSlot {
	return types.StateSlot{Data: m.Data, ETag: m.ETag, RecordExists: m.RecordExists}
}
