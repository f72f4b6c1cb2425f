package api

import (
	"context"
	"time"

	"github.com/matheus3301/resort/internal/auth"
	"github.com/matheus3301/resort/internal/store"
	intsync "github.com/matheus3301/resort/internal/sync"
	"github.com/matheus3301/resort/internal/unread"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// TokenSink receives the bearer token of an RPC login.
type TokenSink interface {
	SetToken(token string)
}

// SessionService reports daemon status and switches the logged-in user.
type SessionService struct {
	sessionName string
	startedAt   time.Time
	tracker     *unread.Tracker
	db          *store.DB
	reconciler  *intsync.Reconciler
	logger      *zap.Logger
	tokens      []TokenSink
}

// NewSessionService creates a new session service. db and reconciler may be
// nil. A login carrying a token hands it to every sink before the session starts.
func NewSessionService(sessionName string, tracker *unread.Tracker, db *store.DB, reconciler *intsync.Reconciler, logger *zap.Logger, tokens ...TokenSink) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		sessionName: sessionName,
		startedAt:   time.Now(),
		tracker:     tracker,
		db:          db,
		reconciler:  reconciler,
		logger:      logger,
		tokens:      tokens,
	}
}

func (s *SessionService) GetStatus(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st := Status{
		Session:  s.sessionName,
		State:    string(s.tracker.State()),
		UptimeMs: time.Since(s.startedAt).Milliseconds(),
		Unread:   int64(s.tracker.Count()),
	}

	if id, ok := s.tracker.Identity(); ok {
		st.UserID = id.UserID
		st.Role = string(id.Role)
		if since, ok := s.tracker.Since(); ok {
			st.SessionMs = time.Since(since).Milliseconds()
		}
		if s.db != nil {
			if n, err := s.db.ConversationCount(id.UserID); err == nil {
				st.Conversations = n
			}
		}
		if s.reconciler != nil {
			if at, ok, err := s.reconciler.LastRefresh(id.UserID); err == nil && ok {
				st.LastRefresh = at.Format(time.RFC3339)
			}
		}
	}
	if s.db != nil {
		if n, err := s.db.MessageCount(); err == nil {
			st.Messages = n
		}
	}

	out, err := st.toStruct()
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "encode status: %v", err)
	}
	return out, nil
}

// Login starts a session. The request carries user_id and role, or a token
// whose claims identify the user.
func (s *SessionService) Login(_ context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	token := str(req, "token")
	id, err := auth.Resolve(str(req, "user_id"), str(req, "role"), token)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "login: %v", err)
	}
	if token != "" {
		for _, sink := range s.tokens {
			sink.SetToken(token)
		}
	}
	if err := s.tracker.Login(id); err != nil {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "login: %v", err)
	}
	s.logger.Info("login requested over rpc", zap.String("user_id", id.UserID))
	return &emptypb.Empty{}, nil
}

func (s *SessionService) Logout(_ context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.tracker.Logout()
	return &emptypb.Empty{}, nil
}

// SessionServiceDesc describes SessionService for grpc.Server.RegisterService.
var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: SessionServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		method(MethodGetStatus, unary(MethodGetStatus, (*SessionService).GetStatus)),
		method(MethodLogin, unary(MethodLogin, (*SessionService).Login)),
		method(MethodLogout, unary(MethodLogout, (*SessionService).Logout)),
	},
}
