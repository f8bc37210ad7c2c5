package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/application/identity"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/infrastructure/db/postgres"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/infrastructure/memory"
	rabbitmq_pub "github.com/baechuer/real-time-ressys/services/identity-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/infrastructure/redis"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/logger"
	http_handlers "github.com/baechuer/real-time-ressys/services/identity-service/internal/transport/http/handlers"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/transport/http/response"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB func(addr string, debug bool) (*sql.DB, error)

	Migrate func(ctx context.Context, db *sql.DB) error

	NewRedis func(addr, password string, db int) *redis.Client

	NewPublisher func(rabbitURL, exchange string) (Publisher, error)

	NewRouter func(router.Deps) (http.Handler, error)

	// NewMemoryStore backs dev mode when no DB_ADDR is configured.
	NewMemoryStore func() *memory.Store
}

type Publisher interface {
	identity.EventPublisher
	Close() error
}

// storage is what the service and middleware need from a backing store.
type storage interface {
	identity.UserRepo
	identity.RoleStore
	identity.RoleGranter
	GetByEmail(ctx context.Context, email string) (domain.User, error)
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	if deps.LoadConfig == nil || deps.NewRouter == nil {
		return nil, nil, errNilDeps
	}

	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()
	fail := func(err error) (*http.Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	checks := map[string]http_handlers.Check{}

	// 1) storage: postgres, or the in-memory store for dev without DB_ADDR
	var (
		users identity.UserRepo
		roles identity.RoleStore
	)
	if cfg.DBAddr != "" {
		if deps.NewDB == nil || deps.Migrate == nil {
			return nil, nil, errNilDeps
		}
		db, err := deps.NewDB(cfg.DBAddr, cfg.DBDebug)
		if err != nil {
			return nil, nil, err
		}
		cleanupFns = append(cleanupFns, func() { _ = db.Close() })

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = deps.Migrate(ctx, db)
		cancel()
		if err != nil {
			return fail(err)
		}

		users = postgres.NewUserRepo(db)
		roles = postgres.NewRoleRepo(db)
		checks["db"] = db.PingContext
	} else {
		logger.Logger.Warn().Msg("DB_ADDR not set; using in-memory store")
		newStore := deps.NewMemoryStore
		if newStore == nil {
			newStore = memory.NewStore
		}
		store := newStore()
		if err := seedDev(store); err != nil {
			return fail(err)
		}
		users, roles = store, store
	}

	// 2) redis role cache (best-effort)
	if cfg.RedisAddr != "" && deps.NewRedis != nil {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.Ping(ctx)
		cancel()

		if err != nil {
			logger.Logger.Warn().Err(err).Msg("redis unavailable; role cache disabled")
			_ = c.Close()
		} else {
			logger.Logger.Info().Msg("redis connected")
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
			roles = redis.NewCachedRoleStore(roles, c, cfg.RoleCacheTTL)
			checks["redis"] = c.Ping
		}
	}

	// 3) publisher
	var pub identity.EventPublisher = memory.NewNoopPublisher()
	if cfg.RabbitURL != "" && deps.NewPublisher != nil {
		p, err := deps.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		switch {
		case err == nil:
			pub = p
			cleanupFns = append(cleanupFns, func() { _ = p.Close() })
		case cfg.IsDev():
			logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; using noop publisher")
		default:
			return fail(err)
		}
	}

	// 4) security
	logger.Logger.Info().Str("issuer", security.Issuer).Msg("initializing rs256 token issuer")
	issuer := security.NewTokenIssuer(cfg.PrivateKey)
	verifier := security.NewTokenVerifier(cfg.PublicKey)

	// 5) service
	svc := identity.NewService(users, roles, issuer, pub).
		WithAudit(audit.New(logger.Logger).Record)
	if g, ok := roles.(identity.RoleGranter); ok {
		svc = svc.WithRoleGranter(g)
	}

	// 6) handlers + middleware
	usersH := http_handlers.NewUsersHandler(svc)
	healthH := http_handlers.NewHealthHandler(checks)
	authMW := middleware.Auth(verifier, users, response.WriteError)

	// 7) router
	mux, err := deps.NewRouter(router.Deps{
		RequestIDMW: middleware.RequestID,
		Health:      healthH,
		Users:       usersH,
		AuthMW:      authMW,
		Metrics:     promhttp.Handler(),
	})
	if err != nil {
		return fail(err)
	}

	// 8) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

// seedDev loads the fixture users into a fresh in-memory store.
func seedDev(store storage) error {
	seeded, err := postgres.SeedUsers(context.Background(), store, store)
	if err != nil {
		return err
	}
	for _, u := range seeded {
		logger.Logger.Info().Int64("user_id", u.ID).Str("uuid", u.UUID).Msg("dev user available")
	}
	return nil
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB:      config.NewDB,
		Migrate:    postgres.Migrate,
		NewRedis:   redis.New,
		NewPublisher: func(url, exchange string) (Publisher, error) {
			p, err := rabbitmq_pub.NewPublisher(url, exchange)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
		NewRouter:      router.New,
		NewMemoryStore: memory.NewStore,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

var errNilDeps = errors.New("bootstrap: missing dependency")
