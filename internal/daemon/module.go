package daemon

import (
	"context"
	"errors"
	"os"

	"github.com/matheus3301/resort/internal/api"
	"github.com/matheus3301/resort/internal/auth"
	"github.com/matheus3301/resort/internal/backend"
	"github.com/matheus3301/resort/internal/bus"
	"github.com/matheus3301/resort/internal/chatsock"
	"github.com/matheus3301/resort/internal/config"
	"github.com/matheus3301/resort/internal/lock"
	"github.com/matheus3301/resort/internal/logging"
	"github.com/matheus3301/resort/internal/outbox"
	"github.com/matheus3301/resort/internal/session"
	"github.com/matheus3301/resort/internal/status"
	"github.com/matheus3301/resort/internal/store"
	intsync "github.com/matheus3301/resort/internal/sync"
	"github.com/matheus3301/resort/internal/unread"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	SocketPath  string // optional override for testing; empty = use default
	LogLevel    string
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideConfig,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideBackend,
			provideSocket,
			provideTracker,
			provideSyncEngine,
			provideSender,
			api.NewBadgeService,
			provideSessionService,
			api.NewChatService,
			provideFavoriteService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName, logging.ParseLevel(p.LogLevel))
}

// provideConfig layers session.toml, the session .env file and RESORT_*
// variables, in increasing precedence.
func provideConfig(p Params, logger *zap.Logger) (*config.Session, error) {
	config.LoadDotenv(session.DotenvPath(p.SessionName))
	cfg, err := config.LoadSession(session.SessionConfigPath(p.SessionName))
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Info("config loaded",
		zap.String("api_url", cfg.APIURL),
		zap.String("socket_url", cfg.SocketURL),
		zap.Duration("refresh_interval", cfg.RefreshInterval.Duration),
		zap.Bool("token", cfg.Token != ""))
	return cfg, nil
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

// provideStore depends on the lock so the database is never opened by two daemons.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.DBPath(p.SessionName)
	db, result, err := store.OpenMigrated(dbPath)
	if err != nil {
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("from", result.From), zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideBackend(cfg *config.Session) *backend.Client {
	return backend.New(cfg.APIURL, cfg.Token)
}

func provideSocket(cfg *config.Session, logger *zap.Logger) *chatsock.Client {
	return chatsock.New(cfg.SocketURL, logger.Named("chatsock"),
		chatsock.WithToken(cfg.Token),
		chatsock.WithBackoff(cfg.ConnectBackoff.Duration, cfg.ConnectBackoffMax.Duration))
}

func provideTracker(client *backend.Client, sock *chatsock.Client, machine *status.Machine, b *bus.Bus, cfg *config.Session, logger *zap.Logger) *unread.Tracker {
	return unread.NewTracker(client, sock, machine, b, logger.Named("unread"), unread.Options{
		RefreshInterval:   cfg.RefreshInterval.Duration,
		ConnectBackoff:    cfg.ConnectBackoff.Duration,
		ConnectBackoffMax: cfg.ConnectBackoffMax.Duration,
	})
}

func provideSyncEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(db, b, logger.Named("sync"))
}

func provideSender(db *store.DB, client *backend.Client, b *bus.Bus, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(db, client, b, logger.Named("outbox"))
}

func provideSessionService(p Params, tracker *unread.Tracker, db *store.DB, engine *intsync.Engine, client *backend.Client, sock *chatsock.Client, logger *zap.Logger) *api.SessionService {
	return api.NewSessionService(p.SessionName, tracker, db, engine.Reconciler(), logger, client, sock)
}

func provideFavoriteService(sender *outbox.Sender, client *backend.Client, db *store.DB, tracker *unread.Tracker) *api.FavoriteService {
	return api.NewFavoriteService(sender, client, db, tracker)
}

// autoLogin starts the session configured in session.toml or the environment.
// Without an identity the daemon stays UNINITIALIZED until an RPC login.
func autoLogin(cfg *config.Session, tracker *unread.Tracker, logger *zap.Logger) {
	id, err := auth.Resolve(cfg.UserID, cfg.Role, cfg.Token)
	if errors.Is(err, auth.ErrNoIdentity) {
		logger.Info("no identity configured, waiting for login")
		return
	}
	if err != nil {
		logger.Error("configured identity is invalid", zap.Error(err))
		return
	}
	if err := tracker.Login(id); err != nil {
		logger.Error("auto-login failed", zap.Error(err))
	}
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, db *store.DB, cfg *config.Session, sock *chatsock.Client, tracker *unread.Tracker, engine *intsync.Engine, sender *outbox.Sender, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// The engine subscribes before the first session can publish.
			engine.Start(context.Background())

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			sender.Start(context.Background())
			autoLogin(cfg, tracker, logger)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Stop(ctx)
			tracker.Logout()
			_ = sock.Close()
			sender.Stop()
			engine.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
