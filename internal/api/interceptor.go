package api

import (
	"context"
	"errors"
	"strings"

	"github.com/matheus3301/resort/internal/unread"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// BadgeScope puts the active session's badge in the context of every unary
// BadgeService call. Calls without a logged-in user fail with FailedPrecondition.
func BadgeScope(tracker *unread.Tracker) grpc.UnaryServerInterceptor {
	prefix := "/" + BadgeServiceName + "/"
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, prefix) {
			return handler(ctx, req)
		}
		badge, err := tracker.Session()
		if errors.Is(err, unread.ErrNoSession) {
			return nil, grpcstatus.Error(codes.FailedPrecondition, "no user is logged in")
		}
		if err != nil {
			return nil, grpcstatus.Errorf(codes.Internal, "session: %v", err)
		}
		return handler(unread.NewContext(ctx, badge), req)
	}
}

// Recover turns a handler panic into an Internal error instead of crashing the daemon.
func Recover(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("rpc handler panicked", zap.String("method", info.FullMethod), zap.Any("panic", r))
				err = grpcstatus.Errorf(codes.Internal, "internal error in %s", info.FullMethod)
			}
		}()
		return handler(ctx, req)
	}
}
