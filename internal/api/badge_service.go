package api

import (
	"context"
	"math"

	"github.com/matheus3301/resort/internal/bus"
	"github.com/matheus3301/resort/internal/unread"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// BadgeService exposes the unread badge count. Unary methods read the
// session badge that BadgeScope put in the context.
type BadgeService struct {
	tracker *unread.Tracker
	bus     *bus.Bus
}

// NewBadgeService creates a new badge service.
func NewBadgeService(tracker *unread.Tracker, b *bus.Bus) *BadgeService {
	return &BadgeService{tracker: tracker, bus: b}
}

func (s *BadgeService) GetUnreadCount(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.Int64Value, error) {
	return wrapperspb.Int64(int64(unread.FromContext(ctx).Count())), nil
}

// checkRange bounds written values so n + delta cannot overflow int.
func checkRange(v int64) error {
	if v > math.MaxInt32 || v < -math.MaxInt32 {
		return grpcstatus.Errorf(codes.InvalidArgument, "value %d out of range", v)
	}
	return nil
}

func (s *BadgeService) SetUnreadCount(ctx context.Context, req *wrapperspb.Int64Value) (*wrapperspb.Int64Value, error) {
	if err := checkRange(req.GetValue()); err != nil {
		return nil, err
	}
	badge := unread.FromContext(ctx)
	badge.Set(int(req.GetValue()))
	return wrapperspb.Int64(int64(badge.Count())), nil
}

func (s *BadgeService) AdjustUnreadCount(ctx context.Context, req *wrapperspb.Int64Value) (*wrapperspb.Int64Value, error) {
	if err := checkRange(req.GetValue()); err != nil {
		return nil, err
	}
	badge := unread.FromContext(ctx)
	delta := int(req.GetValue())
	badge.Update(func(n int) int {
		if delta > 0 && n > math.MaxInt-delta {
			return math.MaxInt
		}
		return n + delta
	})
	return wrapperspb.Int64(int64(badge.Count())), nil
}

// RefreshUnread waits for a full refresh and returns the resulting count. A
// failed refresh returns the unchanged count.
func (s *BadgeService) RefreshUnread(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.Int64Value, error) {
	badge := unread.FromContext(ctx)
	badge.Refresh(ctx)
	return wrapperspb.Int64(int64(badge.Count())), nil
}

// WatchUnreadCount streams the current count, then every change. It spans
// logins: a logout shows up as 0.
func (s *BadgeService) WatchUnreadCount(_ *emptypb.Empty, stream grpc.ServerStream) error {
	ch, unsub := s.bus.Subscribe(bus.KindUnreadChanged, 64)
	defer unsub()

	last := int64(s.tracker.Count())
	if err := stream.SendMsg(wrapperspb.Int64(last)); err != nil {
		return err
	}
	for {
		select {
		case <-ch:
			n := int64(s.tracker.Count())
			if n == last {
				continue
			}
			last = n
			if err := stream.SendMsg(wrapperspb.Int64(n)); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(*BadgeService).WatchUnreadCount(in, stream)
}

// BadgeServiceDesc describes BadgeService for grpc.Server.RegisterService.
var BadgeServiceDesc = grpc.ServiceDesc{
	ServiceName: BadgeServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		method(MethodGetUnreadCount, unary(MethodGetUnreadCount, (*BadgeService).GetUnreadCount)),
		method(MethodSetUnreadCount, unary(MethodSetUnreadCount, (*BadgeService).SetUnreadCount)),
		method(MethodAdjustUnreadCount, unary(MethodAdjustUnreadCount, (*BadgeService).AdjustUnreadCount)),
		method(MethodRefreshUnread, unary(MethodRefreshUnread, (*BadgeService).RefreshUnread)),
	},
	Streams: []grpc.StreamDesc{{
		StreamName:    WatchStreamDesc.StreamName,
		Handler:       watchHandler,
		ServerStreams: true,
	}},
}
