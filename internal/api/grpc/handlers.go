package gritrpc

import (
	"context"

	"google.golang.org/grpc"
)

// Each *Handler function adapts one ServiceDesc method to Server's plain Go
// method, decoding the request via the registered "json" codec and letting
// grpc.UnaryServerInterceptor chain (the logging interceptor) wrap the call.

func putHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(PutRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).Put(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/grit.Store/Put"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).Put(ctx, req.(*PutRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func getHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(GetRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).Get(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/grit.Store/Get"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).Get(ctx, req.(*GetRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func setRefHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(SetRefRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).SetRef(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/grit.Store/SetRef"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).SetRef(ctx, req.(*SetRefRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func getRefHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(GetRefRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).GetRef(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/grit.Store/GetRef"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).GetRef(ctx, req.(*GetRefRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func getRefsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(GetRefsRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).GetRefs(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/grit.Store/GetRefs"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).GetRefs(ctx, req.(*GetRefsRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func deleteRefHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(DeleteRefRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).DeleteRef(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/grit.Store/DeleteRef"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).DeleteRef(ctx, req.(*DeleteRefRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func startAgentHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(StartAgentRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).StartAgent(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/grit.Store/StartAgent"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).StartAgent(ctx, req.(*StartAgentRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func stopAgentHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(StopAgentRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).StopAgent(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/grit.Store/StopAgent"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).StopAgent(ctx, req.(*StopAgentRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func getRunningAgentsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(GetRunningAgentsRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).GetRunningAgents(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/grit.Store/GetRunningAgents"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).GetRunningAgents(ctx, req.(*GetRunningAgentsRequest))
	}
	return interceptor(ctx, req, info, handler)
}
