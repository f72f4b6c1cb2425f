package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/matheus3301/resort/internal/api"
	"github.com/matheus3301/resort/internal/bus"
	"github.com/matheus3301/resort/internal/chatsock"
	"github.com/matheus3301/resort/internal/config"
	"github.com/matheus3301/resort/internal/session"
	"github.com/matheus3301/resort/internal/status"
	"github.com/matheus3301/resort/internal/unread"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const chatsJSON = `[{
  "_id": "chat-1",
  "customer_id": {"_id": "cust-1", "name": "Ana"},
  "resort_id": {"_id": "resort-9", "resort_name": "Palm Bay"},
  "createdAt": "2025-03-01T10:00:00Z",
  "messages": [
    {"_id": "m1", "sender": "customer", "text": "hi", "timestamp": "2025-03-01T10:01:00Z"},
    {"_id": "m2", "sender": "owner", "text": "hello", "timestamp": "2025-03-01T10:02:00Z"},
    {"_id": "m3", "sender": "owner", "text": "room ready", "timestamp": "2025-03-01T10:03:00Z"}
  ]
}]`

// fakeBackend serves the chats endpoint and a chat socket that accepts every join.
type fakeBackend struct {
	api    *httptest.Server
	socket *httptest.Server

	mu    sync.Mutex
	conns []*websocket.Conn
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}

	r := mux.NewRouter()
	r.HandleFunc("/chats/user/{userId}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(chatsJSON))
	}).Methods(http.MethodGet)
	fb.api = httptest.NewServer(r)

	var upgrader websocket.Upgrader
	fb.socket = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		var join chatsock.Event
		if err := conn.ReadJSON(&join); err != nil || join.Op != chatsock.OpJoin {
			_ = conn.Close()
			return
		}
		// push writes under fb.mu too; gorilla conns allow one writer at a time.
		fb.mu.Lock()
		_ = conn.WriteJSON(chatsock.Event{Op: chatsock.OpReady})
		fb.conns = append(fb.conns, conn)
		fb.mu.Unlock()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))

	t.Cleanup(func() {
		fb.mu.Lock()
		for _, c := range fb.conns {
			_ = c.Close()
		}
		fb.mu.Unlock()
		fb.socket.Close()
		fb.api.Close()
	})
	return fb
}

func (fb *fakeBackend) socketURL() string {
	return "ws" + strings.TrimPrefix(fb.socket.URL, "http")
}

func (fb *fakeBackend) push(t *testing.T, op string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if len(fb.conns) == 0 {
		t.Fatal("no socket connection to push to")
	}
	if err := fb.conns[len(fb.conns)-1].WriteJSON(chatsock.Event{Op: op, Data: raw}); err != nil {
		t.Fatal(err)
	}
}

// tempHome points RESORT_HOME at a short /tmp path to stay under the Unix socket path limit.
func tempHome(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "resort-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	t.Setenv("RESORT_HOME", dir)
	for _, env := range []string{config.EnvAPIURL, config.EnvSocketURL, config.EnvToken, config.EnvUserID, config.EnvRole} {
		t.Setenv(env, "")
	}
	return dir
}

func dial(t *testing.T, socketPath string) *grpc.ClientConn {
	t.Helper()
	conn, err := grpc.NewClient("unix://"+socketPath, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func getStatus(t *testing.T, conn *grpc.ClientConn) api.Status {
	t.Helper()
	out := &structpb.Struct{}
	if err := conn.Invoke(context.Background(), api.MethodGetStatus, &emptypb.Empty{}, out); err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	return api.StatusFromStruct(out)
}

func TestFxModuleWiring(t *testing.T) {
	tempHome(t)
	if err := fx.ValidateApp(Module(Params{SessionName: "fxtest"})); err != nil {
		t.Fatalf("fx graph does not resolve: %v", err)
	}
}

func TestDaemonEndToEnd(t *testing.T) {
	tempHome(t)
	fb := newFakeBackend(t)

	const name = "e2e"
	if err := session.EnsureDir(name); err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultSession()
	cfg.APIURL = fb.api.URL
	cfg.SocketURL = fb.socketURL()
	cfg.UserID = "cust-1"
	cfg.Role = "customer"
	cfg.RefreshInterval = config.Duration{}
	cfg.ConnectBackoff = config.Duration{Duration: 10 * time.Millisecond}
	cfg.ConnectBackoffMax = config.Duration{Duration: 50 * time.Millisecond}
	if err := config.SaveSession(session.SessionConfigPath(name), cfg); err != nil {
		t.Fatal(err)
	}

	app := fx.New(Module(Params{SessionName: name, LogLevel: "error"}), fx.NopLogger)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("app.Start: %v", err)
	}
	stopped := false
	defer func() {
		if !stopped {
			_ = app.Stop(context.Background())
		}
	}()

	conn := dial(t, session.SocketPath(name))
	count := func() int64 {
		out := &wrapperspb.Int64Value{}
		if err := conn.Invoke(context.Background(), api.MethodGetUnreadCount, &emptypb.Empty{}, out); err != nil {
			return -1
		}
		return out.GetValue()
	}

	eventually(t, "LIVE with the initial count", func() bool {
		return getStatus(t, conn).State == string(status.Live) && count() == 2
	})

	fb.push(t, chatsock.OpNewMessage, chatsock.MessageData{ChatID: "chat-1", ID: "m4", Sender: "owner", Text: "pool is open", Timestamp: time.Now()})
	eventually(t, "live increment", func() bool { return count() == 3 })

	list := &structpb.ListValue{}
	eventually(t, "live message stored", func() bool {
		req, _ := structpb.NewStruct(map[string]any{"conversation_id": "chat-1"})
		if err := conn.Invoke(context.Background(), api.MethodListMessages, req, list); err != nil {
			return false
		}
		return len(api.MessagesFromList(list)) == 4
	})

	st := getStatus(t, conn)
	if st.UserID != "cust-1" || st.Conversations != 1 || st.LastRefresh == "" {
		t.Errorf("status = %+v", st)
	}

	if err := conn.Invoke(context.Background(), api.MethodLogout, &emptypb.Empty{}, &emptypb.Empty{}); err != nil {
		t.Fatal(err)
	}
	err := conn.Invoke(context.Background(), api.MethodGetUnreadCount, &emptypb.Empty{}, &wrapperspb.Int64Value{})
	if grpcstatus.Code(err) != codes.FailedPrecondition {
		t.Errorf("GetUnreadCount after logout = %v, want FailedPrecondition", err)
	}
	if st := getStatus(t, conn); st.State != string(status.Uninitialized) || st.Unread != 0 {
		t.Errorf("status after logout = %+v", st)
	}

	stopped = true
	if err := app.Stop(ctx); err != nil {
		t.Fatalf("app.Stop: %v", err)
	}
	if _, err := os.Stat(session.SocketPath(name)); !os.IsNotExist(err) {
		t.Errorf("socket file left behind: %v", err)
	}
	if _, err := os.Stat(filepath.Join(session.Dir(name), "LOCK")); !os.IsNotExist(err) {
		t.Errorf("lock file left behind: %v", err)
	}
}

func TestDaemonWithoutIdentityStaysUninitialized(t *testing.T) {
	tempHome(t)
	fb := newFakeBackend(t)

	const name = "anon"
	if err := session.EnsureDir(name); err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultSession()
	cfg.APIURL = fb.api.URL
	cfg.SocketURL = fb.socketURL()
	if err := config.SaveSession(session.SessionConfigPath(name), cfg); err != nil {
		t.Fatal(err)
	}

	app := fx.New(Module(Params{SessionName: name, LogLevel: "error"}), fx.NopLogger)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = app.Stop(ctx) }()

	conn := dial(t, session.SocketPath(name))
	if st := getStatus(t, conn); st.State != string(status.Uninitialized) || st.UserID != "" {
		t.Fatalf("status = %+v", st)
	}

	req, _ := structpb.NewStruct(map[string]any{"user_id": "owner-1", "role": "owner"})
	if err := conn.Invoke(context.Background(), api.MethodLogin, req, &emptypb.Empty{}); err != nil {
		t.Fatal(err)
	}
	eventually(t, "owner session LIVE", func() bool {
		st := getStatus(t, conn)
		return st.UserID == "owner-1" && st.State == string(status.Live)
	})
	// The owner's counterpart is the customer, who wrote nothing after the owner's last reply.
	if st := getStatus(t, conn); st.Unread != 0 {
		t.Errorf("owner unread = %d, want 0", st.Unread)
	}
}

func TestServerRejectsBadgeCallsWithoutSession(t *testing.T) {
	dir, err := os.MkdirTemp("/tmp", "resort-srv-*")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(dir) }()
	socketPath := filepath.Join(dir, "d.sock")

	b := bus.New()
	tracker := unread.NewTracker(nil, nil, status.NewMachine(b), b, nil, unread.Options{})
	srv, err := NewServer(
		Params{SessionName: "srvtest", SocketPath: socketPath},
		zap.NewNop(),
		tracker,
		api.NewBadgeService(tracker, b),
		api.NewSessionService("srvtest", tracker, nil, nil, nil),
		api.NewChatService(nil, tracker),
		api.NewFavoriteService(nil, nil, nil, tracker),
	)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go func() { _ = srv.Start() }()
	defer srv.Stop(context.Background())

	info, err := os.Stat(socketPath)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("socket mode = %o, want 600", perm)
	}

	conn := dial(t, socketPath)
	err = conn.Invoke(context.Background(), api.MethodGetUnreadCount, &emptypb.Empty{}, &wrapperspb.Int64Value{})
	if grpcstatus.Code(err) != codes.FailedPrecondition {
		t.Errorf("GetUnreadCount without session = %v, want FailedPrecondition", err)
	}
	if st := getStatus(t, conn); st.Session != "srvtest" || st.State != string(status.Uninitialized) {
		t.Errorf("status = %+v", st)
	}
}
