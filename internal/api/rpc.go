// Package api exposes the daemon over gRPC. Services are described by hand
// with protobuf well-known types as messages, so no code generation is needed.
package api

import (
	"context"
	"path"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
)

// Service names.
const (
	BadgeServiceName    = "resort.v1.BadgeService"
	SessionServiceName  = "resort.v1.SessionService"
	ChatServiceName     = "resort.v1.ChatService"
	FavoriteServiceName = "resort.v1.FavoriteService"
)

// Full method names, as used by clients.
const (
	MethodGetUnreadCount    = "/" + BadgeServiceName + "/GetUnreadCount"
	MethodSetUnreadCount    = "/" + BadgeServiceName + "/SetUnreadCount"
	MethodAdjustUnreadCount = "/" + BadgeServiceName + "/AdjustUnreadCount"
	MethodRefreshUnread     = "/" + BadgeServiceName + "/RefreshUnread"
	MethodWatchUnreadCount  = "/" + BadgeServiceName + "/WatchUnreadCount"

	MethodGetStatus = "/" + SessionServiceName + "/GetStatus"
	MethodLogin     = "/" + SessionServiceName + "/Login"
	MethodLogout    = "/" + SessionServiceName + "/Logout"

	MethodListConversations = "/" + ChatServiceName + "/ListConversations"
	MethodListMessages      = "/" + ChatServiceName + "/ListMessages"

	MethodQueueFavorite = "/" + FavoriteServiceName + "/QueueFavorite"
	MethodGetFavoriteOp = "/" + FavoriteServiceName + "/GetFavoriteOp"
	MethodIsFavorite    = "/" + FavoriteServiceName + "/IsFavorite"
	MethodListFavorites = "/" + FavoriteServiceName + "/ListFavorites"
)

// WatchStreamDesc describes the server stream of WatchUnreadCount for clients.
var WatchStreamDesc = &grpc.StreamDesc{
	StreamName:    "WatchUnreadCount",
	ServerStreams: true,
}

// unary adapts a typed method expression such as (*BadgeService).GetUnreadCount
// to a grpc.MethodHandler, running the server's interceptors.
func unary[Req any, PReq interface {
	*Req
	proto.Message
}, Resp proto.Message, S any](fullMethod string, call func(S, context.Context, PReq) (Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(S), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(S), ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// method builds the descriptor of a unary method from its full name.
func method(fullMethod string, h grpc.MethodHandler) grpc.MethodDesc {
	return grpc.MethodDesc{MethodName: path.Base(fullMethod), Handler: h}
}
