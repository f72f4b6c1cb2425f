package api

import (
	"context"

	"github.com/matheus3301/resort/internal/store"
	"github.com/matheus3301/resort/internal/unread"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ChatService serves the logged-in user's conversations from the snapshot store.
type ChatService struct {
	db      *store.DB
	tracker *unread.Tracker
}

// NewChatService creates a new chat service backed by the store.
func NewChatService(db *store.DB, tracker *unread.Tracker) *ChatService {
	return &ChatService{db: db, tracker: tracker}
}

func (s *ChatService) ListConversations(_ context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	id, ok := s.tracker.Identity()
	if !ok {
		return nil, grpcstatus.Error(codes.FailedPrecondition, "no user is logged in")
	}
	convs, err := s.db.ListConversations(id.UserID)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list conversations: %v", err)
	}

	out := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(convs))}
	for _, c := range convs {
		out.Values = append(out.Values, Conversation{
			ID:            c.ID,
			ResortID:      c.ResortID,
			ResortName:    c.ResortName,
			Preview:       c.LastMessagePreview,
			LastSender:    c.LastSender,
			LastMessageAt: c.LastMessageAt,
			Unread:        int64(c.UnreadCount),
		}.toValue())
	}
	return out, nil
}

// ListMessages takes {conversation_id, limit} and returns the latest messages, oldest first.
func (s *ChatService) ListMessages(_ context.Context, req *structpb.Struct) (*structpb.ListValue, error) {
	id, ok := s.tracker.Identity()
	if !ok {
		return nil, grpcstatus.Error(codes.FailedPrecondition, "no user is logged in")
	}
	convID := str(req, "conversation_id")
	if convID == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "conversation_id is required")
	}
	c, err := s.db.GetConversation(convID)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "get conversation: %v", err)
	}
	if c == nil || c.UserID != id.UserID {
		return nil, grpcstatus.Errorf(codes.NotFound, "conversation %q not found", convID)
	}

	msgs, err := s.db.ListMessages(convID, int(num(req, "limit")))
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list messages: %v", err)
	}
	out := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(msgs))}
	for _, m := range msgs {
		out.Values = append(out.Values, Message{
			ID:        m.MsgID,
			Sender:    m.Sender,
			Text:      m.Body,
			Timestamp: m.Timestamp,
		}.toValue())
	}
	return out, nil
}

// ChatServiceDesc describes ChatService for grpc.Server.RegisterService.
var ChatServiceDesc = grpc.ServiceDesc{
	ServiceName: ChatServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		method(MethodListConversations, unary(MethodListConversations, (*ChatService).ListConversations)),
		method(MethodListMessages, unary(MethodListMessages, (*ChatService).ListMessages)),
	},
}
