package api

import (
	"context"
	"errors"

	"github.com/matheus3301/resort/internal/backend"
	"github.com/matheus3301/resort/internal/outbox"
	"github.com/matheus3301/resort/internal/store"
	"github.com/matheus3301/resort/internal/unread"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// FavoriteLookup is the read side of the favorites backend.
type FavoriteLookup interface {
	IsFavorite(ctx context.Context, resortID string) (bool, error)
	UserFavorites(ctx context.Context, userID string) ([]backend.FavoriteResort, error)
}

// FavoriteService queues favorite mutations and proxies favorite lookups.
type FavoriteService struct {
	sender  *outbox.Sender
	lookup  FavoriteLookup
	db      *store.DB
	tracker *unread.Tracker
}

// NewFavoriteService creates a new favorite service.
func NewFavoriteService(sender *outbox.Sender, lookup FavoriteLookup, db *store.DB, tracker *unread.Tracker) *FavoriteService {
	return &FavoriteService{sender: sender, lookup: lookup, db: db, tracker: tracker}
}

// QueueFavorite takes {resort_id, action} and returns the op id.
func (s *FavoriteService) QueueFavorite(_ context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	if _, ok := s.tracker.Identity(); !ok {
		return nil, grpcstatus.Error(codes.FailedPrecondition, "no user is logged in")
	}
	resortID, action := str(req, "resort_id"), str(req, "action")
	if resortID == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "resort_id is required")
	}
	if action != store.FavoriteAdd && action != store.FavoriteRemove {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "action must be add or remove, got %q", action)
	}
	opID, err := s.sender.Queue(resortID, action)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "queue favorite: %v", err)
	}
	return wrapperspb.String(opID), nil
}

func (s *FavoriteService) GetFavoriteOp(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	op, err := s.db.GetFavoriteOp(req.GetValue())
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "get favorite op: %v", err)
	}
	if op == nil {
		return nil, grpcstatus.Errorf(codes.NotFound, "favorite op %q not found", req.GetValue())
	}
	return FavoriteOp{
		OpID:     op.OpID,
		ResortID: op.ResortID,
		Action:   op.Action,
		Status:   op.Status,
		Error:    op.ErrorMessage,
	}.toStruct(), nil
}

func (s *FavoriteService) IsFavorite(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if req.GetValue() == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "resort id is required")
	}
	ok, err := s.lookup.IsFavorite(ctx, req.GetValue())
	if err != nil {
		return nil, backendError("is favorite", err)
	}
	return wrapperspb.Bool(ok), nil
}

func (s *FavoriteService) ListFavorites(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	id, ok := s.tracker.Identity()
	if !ok {
		return nil, grpcstatus.Error(codes.FailedPrecondition, "no user is logged in")
	}
	favs, err := s.lookup.UserFavorites(ctx, id.UserID)
	if err != nil {
		return nil, backendError("list favorites", err)
	}
	out := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(favs))}
	for _, f := range favs {
		out.Values = append(out.Values, Favorite{ResortID: f.ID, Name: f.Name}.toValue())
	}
	return out, nil
}

// backendError maps a backend failure to a gRPC status.
func backendError(op string, err error) error {
	var apiErr *backend.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 404:
			return grpcstatus.Errorf(codes.NotFound, "%s: %v", op, err)
		case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
			return grpcstatus.Errorf(codes.PermissionDenied, "%s: %v", op, err)
		}
	}
	return grpcstatus.Errorf(codes.Unavailable, "%s: %v", op, err)
}

// FavoriteServiceDesc describes FavoriteService for grpc.Server.RegisterService.
var FavoriteServiceDesc = grpc.ServiceDesc{
	ServiceName: FavoriteServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		method(MethodQueueFavorite, unary(MethodQueueFavorite, (*FavoriteService).QueueFavorite)),
		method(MethodGetFavoriteOp, unary(MethodGetFavoriteOp, (*FavoriteService).GetFavoriteOp)),
		method(MethodIsFavorite, unary(MethodIsFavorite, (*FavoriteService).IsFavorite)),
		method(MethodListFavorites, unary(MethodListFavorites, (*FavoriteService).ListFavorites)),
	},
}

// Register registers every service on srv.
func Register(srv *grpc.Server, badge *BadgeService, session *SessionService, chat *ChatService, favorites *FavoriteService) {
	srv.RegisterService(&BadgeServiceDesc, badge)
	srv.RegisterService(&SessionServiceDesc, session)
	srv.RegisterService(&ChatServiceDesc, chat)
	srv.RegisterService(&FavoriteServiceDesc, favorites)
}
