package gritrpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/log"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/resolver"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/runtime"
)

// RuntimeConfig supplies what every new agent's runtime.Runtime needs beyond
// its bootstrap point.
type RuntimeConfig struct {
	Resolver      *resolver.Resolver
	Collaborators map[string]any

	// CooperativeConcurrency and BlockingWorkers forward to
	// runtime.Config's matching fields (spec.md §5), applied identically to
	// every agent this Server starts.
	CooperativeConcurrency int64
	BlockingWorkers        int
}

// Config configures a Server.
type Config struct {
	ListenAddr string
	Store      gritstore.Store
	Runtime    RuntimeConfig
	Log        log.Logger
}

type runningAgent struct {
	rootId grit.ActorId
	cancel context.CancelFunc
	done   <-chan error
}

// Server is the gRPC store/orchestrator face (spec.md §6). It owns no agent
// state itself beyond bookkeeping which runtime.Runtime instances it has
// started; all durable state lives in Store.
type Server struct {
	cfg Config
	log log.Logger

	mu     sync.Mutex
	agents map[string]*runningAgent

	grpcServer *grpc.Server
	listener   net.Listener
}

// NewServer creates a Server. Call Start to begin listening.
func NewServer(cfg Config) *Server {
	l := cfg.Log
	if l == nil {
		l = log.Disabled()
	}
	return &Server{
		cfg:    cfg,
		log:    l,
		agents: make(map[string]*runningAgent),
	}
}

// ServiceDesc is the hand-wired gRPC service descriptor backing Server,
// routed over the "json" codec registered in codec.go rather than generated
// protobuf stubs.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "grit.Store",
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Put", Handler: putHandler},
		{MethodName: "Get", Handler: getHandler},
		{MethodName: "SetRef", Handler: setRefHandler},
		{MethodName: "GetRef", Handler: getRefHandler},
		{MethodName: "GetRefs", Handler: getRefsHandler},
		{MethodName: "DeleteRef", Handler: deleteRefHandler},
		{MethodName: "StartAgent", Handler: startAgentHandler},
		{MethodName: "StopAgent", Handler: stopAgentHandler},
		{MethodName: "GetRunningAgents", Handler: getRunningAgentsHandler},
	},
	Metadata: "grit.proto",
}

// Start opens the listener and begins serving RPCs in a background
// goroutine.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("gritrpc: listening on %s: %w", s.cfg.ListenAddr, err)
	}
	s.listener = lis

	s.grpcServer = grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.loggingInterceptor),
	)
	s.grpcServer.RegisterService(&ServiceDesc, s)

	go func() {
		if err := s.grpcServer.Serve(lis); err != nil {
			s.log.WarnS(context.Background(), "gRPC server stopped serving", err)
		}
	}()
	s.log.InfoS(context.Background(), "gRPC server listening", "addr", lis.Addr().String())
	return nil
}

// Stop gracefully shuts down the server and cancels every agent runtime it
// started.
func (s *Server) Stop() {
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}

	s.mu.Lock()
	agents := make([]*runningAgent, 0, len(s.agents))
	for _, a := range s.agents {
		agents = append(agents, a)
	}
	s.mu.Unlock()

	for _, a := range agents {
		a.cancel()
		<-a.done
	}
}

// Addr returns the address the server is listening on, empty if not started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) loggingInterceptor(
	ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler,
) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		s.log.WarnS(ctx, "rpc failed", err, "method", info.FullMethod, "took", time.Since(start))
	} else {
		s.log.DebugS(ctx, "rpc completed", "method", info.FullMethod, "took", time.Since(start))
	}
	return resp, err
}

// --- store face -------------------------------------------------------

func (s *Server) Put(ctx context.Context, req *PutRequest) (*PutResponse, error) {
	obj, err := grit.Decode(req.Encoded)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decoding object: %v", err)
	}
	id, err := s.cfg.Store.Put(ctx, obj)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "storing object: %v", err)
	}
	return &PutResponse{Id: id.String()}, nil
}

func (s *Server) Get(ctx context.Context, req *GetRequest) (*GetResponse, error) {
	id, err := grit.ParseObjectId(req.Id)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "parsing id: %v", err)
	}
	obj, err := s.cfg.Store.Get(ctx, id)
	if err != nil {
		if err == gritstore.ErrNotFound {
			return nil, status.Errorf(codes.NotFound, "object %s not found", req.Id)
		}
		return nil, status.Errorf(codes.Internal, "loading object: %v", err)
	}
	return &GetResponse{Encoded: grit.Encode(obj)}, nil
}

func (s *Server) SetRef(ctx context.Context, req *SetRefRequest) (*SetRefResponse, error) {
	id, err := grit.ParseObjectId(req.Id)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "parsing id: %v", err)
	}
	if err := s.cfg.Store.SetRef(ctx, req.Ref, id); err != nil {
		return nil, status.Errorf(codes.Internal, "setting ref: %v", err)
	}
	return &SetRefResponse{UpdatedAt: timestamppb.Now()}, nil
}

func (s *Server) GetRef(ctx context.Context, req *GetRefRequest) (*GetRefResponse, error) {
	id, err := s.cfg.Store.GetRef(ctx, req.Ref)
	if err != nil {
		if err == gritstore.ErrNotFound {
			return nil, status.Errorf(codes.NotFound, "ref %s not found", req.Ref)
		}
		return nil, status.Errorf(codes.Internal, "loading ref: %v", err)
	}
	return &GetRefResponse{Id: id.String()}, nil
}

func (s *Server) GetRefs(ctx context.Context, req *GetRefsRequest) (*GetRefsResponse, error) {
	refs, err := s.cfg.Store.GetRefs(ctx, req.Prefix)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "listing refs: %v", err)
	}
	out := make(map[string]string, len(refs))
	for name, id := range refs {
		out[name] = id.String()
	}
	return &GetRefsResponse{Refs: out}, nil
}

func (s *Server) DeleteRef(ctx context.Context, req *DeleteRefRequest) (*DeleteRefResponse, error) {
	if err := s.cfg.Store.DeleteRef(ctx, req.Ref); err != nil {
		return nil, status.Errorf(codes.Internal, "deleting ref: %v", err)
	}
	return &DeleteRefResponse{}, nil
}

// --- orchestrator face --------------------------------------------------

func (s *Server) StartAgent(ctx context.Context, req *StartAgentRequest) (*StartAgentResponse, error) {
	s.mu.Lock()
	if _, exists := s.agents[req.Name]; exists {
		s.mu.Unlock()
		return nil, status.Errorf(codes.AlreadyExists, "agent %q already running", req.Name)
	}
	s.mu.Unlock()

	rt := runtime.New(runtime.Config{
		Store:                  s.cfg.Store,
		Resolver:               s.cfg.Runtime.Resolver,
		Collaborators:          s.cfg.Runtime.Collaborators,
		Point:                  grit.Point(req.Point),
		CooperativeConcurrency: s.cfg.Runtime.CooperativeConcurrency,
		BlockingWorkers:        s.cfg.Runtime.BlockingWorkers,
	})

	rootId, err := runtimeRootId(ctx, s.cfg.Store, grit.Point(req.Point))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "resolving agent id: %v", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(runCtx) }()

	s.mu.Lock()
	s.agents[req.Name] = &runningAgent{rootId: rootId, cancel: cancel, done: done}
	s.mu.Unlock()

	return &StartAgentResponse{AgentId: rootId.String()}, nil
}

func (s *Server) StopAgent(ctx context.Context, req *StopAgentRequest) (*StopAgentResponse, error) {
	s.mu.Lock()
	a, ok := s.agents[req.Name]
	if ok {
		delete(s.agents, req.Name)
	}
	s.mu.Unlock()

	if !ok {
		return nil, status.Errorf(codes.NotFound, "agent %q not running", req.Name)
	}
	a.cancel()
	<-a.done
	return &StopAgentResponse{}, nil
}

func (s *Server) GetRunningAgents(ctx context.Context, req *GetRunningAgentsRequest) (*GetRunningAgentsResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.agents))
	for name, a := range s.agents {
		out[name] = a.rootId.String()
	}
	return &GetRunningAgentsResponse{Agents: out}, nil
}

// runtimeRootId resolves what AgentId runtime.Run will bootstrap or adopt
// for point, without requiring the caller to start a runtime first.
func runtimeRootId(ctx context.Context, store gritstore.Store, point grit.Point) (grit.AgentId, error) {
	if existing, err := store.GetRef(ctx, grit.RefRuntimeAgent); err == nil {
		return existing, nil
	} else if err != gritstore.ErrNotFound {
		return grit.AgentId{}, err
	}
	return grit.AgentIdFromPoint(point), nil
}
