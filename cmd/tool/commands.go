package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/application/identity"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/infrastructure/db/postgres"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/infrastructure/memory"
	rabbitmq_pub "github.com/baechuer/real-time-ressys/services/identity-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/infrastructure/redis"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/logger"
)

const usage = `usage: tool <command> [flags]

commands:
  migrate                          apply database migrations
  create-user -email <email>       create a user
  grant-role  -user <id> -role <r> grant admin, owner or member
  issue-token -user <id>           print an access token for a user
  seed                             create the dev fixture users
  keygen [-bits 2048] [-out dir]   generate an RSA key pair
`

var errUsage = errors.New("invalid usage")

// toolEnv holds everything a command reaches outside the process.
type toolEnv struct {
	out io.Writer

	loadOps    func() (*config.OpsConfig, error)
	loadConfig func() (*config.Config, error)
	openDB     func(dsn string, debug bool) (*sql.DB, error)
	migrate    func(ctx context.Context, db *sql.DB) error

	newPublisher func(url, exchange string) (identity.EventPublisher, func(), error)
	newRedis     func(addr, password string, db int) *redis.Client
}

func defaultEnv(out io.Writer) toolEnv {
	return toolEnv{
		out:        out,
		loadOps:    config.LoadOps,
		loadConfig: config.Load,
		openDB:     config.NewDB,
		migrate:    postgres.Migrate,
		newPublisher: func(url, exchange string) (identity.EventPublisher, func(), error) {
			p, err := rabbitmq_pub.NewPublisher(url, exchange)
			if err != nil {
				return nil, nil, err
			}
			return p, func() { _ = p.Close() }, nil
		},
		newRedis: redis.New,
	}
}

func run(ctx context.Context, args []string, env toolEnv) error {
	if len(args) == 0 {
		fmt.Fprint(env.out, usage)
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "migrate":
		return cmdMigrate(ctx, env)
	case "create-user":
		return cmdCreateUser(ctx, env, rest)
	case "grant-role":
		return cmdGrantRole(ctx, env, rest)
	case "issue-token":
		return cmdIssueToken(ctx, env, rest)
	case "seed":
		return cmdSeed(ctx, env)
	case "keygen":
		return cmdKeygen(env, rest)
	case "help", "-h", "--help":
		fmt.Fprint(env.out, usage)
		return nil
	default:
		fmt.Fprint(env.out, usage)
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// openStore opens the database named by DB_ADDR. The returned func closes it.
func openStore(env toolEnv) (*config.OpsConfig, *sql.DB, func(), error) {
	oc, err := env.loadOps()
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := env.openDB(oc.DBAddr, oc.DBDebug)
	if err != nil {
		return nil, nil, nil, err
	}
	return oc, db, func() { _ = db.Close() }, nil
}

type roleStore interface {
	identity.RoleStore
	identity.RoleGranter
}

func newService(db *sql.DB, roles roleStore, issuer identity.TokenIssuer, pub identity.EventPublisher) *identity.Service {
	if roles == nil {
		roles = postgres.NewRoleRepo(db)
	}
	return identity.NewService(postgres.NewUserRepo(db), roles, issuer, pub).
		WithAudit(audit.New(logger.Logger).Record).
		WithRoleGranter(roles)
}

// grantStore returns the role store grants go through. With REDIS_ADDR set
// it is the cached store, so a grant drops the user's cached role set.
func grantStore(ctx context.Context, env toolEnv, oc *config.OpsConfig, db *sql.DB) (roleStore, func()) {
	roles := postgres.NewRoleRepo(db)
	if oc.RedisAddr == "" || env.newRedis == nil {
		return roles, func() {}
	}

	c := env.newRedis(oc.RedisAddr, oc.RedisPassword, oc.RedisDB)
	if err := c.Ping(ctx); err != nil {
		logger.Logger.Warn().Err(err).Msg("redis unavailable; cached roles will only refresh on expiry")
		_ = c.Close()
		return roles, func() {}
	}
	return redis.NewCachedRoleStore(roles, c, 0), func() { _ = c.Close() }
}

func cmdMigrate(ctx context.Context, env toolEnv) error {
	_, db, closeDB, err := openStore(env)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := env.migrate(ctx, db); err != nil {
		return err
	}
	fmt.Fprintln(env.out, "migrations applied")
	return nil
}

func cmdCreateUser(ctx context.Context, env toolEnv, args []string) error {
	fs := newFlagSet("create-user", env.out)
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" {
		return fmt.Errorf("%w: -email is required", errUsage)
	}

	oc, db, closeDB, err := openStore(env)
	if err != nil {
		return err
	}
	defer closeDB()

	var pub identity.EventPublisher = memory.NewNoopPublisher()
	if oc.RabbitURL != "" && env.newPublisher != nil {
		p, closePub, err := env.newPublisher(oc.RabbitURL, oc.RabbitExchange)
		if err != nil {
			logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; user.created will not be published")
		} else {
			pub = p
			defer closePub()
		}
	}

	u, err := newService(db, nil, nil, pub).CreateUser(ctx, *email)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "created user id=%d uuid=%s email=%s\n", u.ID, u.UUID, u.Email)
	return nil
}

func cmdGrantRole(ctx context.Context, env toolEnv, args []string) error {
	fs := newFlagSet("grant-role", env.out)
	userID := fs.Int64("user", 0, "user id")
	role := fs.String("role", "", "role name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID <= 0 || *role == "" {
		return fmt.Errorf("%w: -user and -role are required", errUsage)
	}

	oc, db, closeDB, err := openStore(env)
	if err != nil {
		return err
	}
	defer closeDB()

	roles, closeRoles := grantStore(ctx, env, oc, db)
	defer closeRoles()

	if err := newService(db, roles, nil, memory.NewNoopPublisher()).GrantRole(ctx, *userID, *role); err != nil {
		return err
	}
	fmt.Fprintf(env.out, "granted %s to user %d\n", strings.ToLower(strings.TrimSpace(*role)), *userID)
	return nil
}

func cmdIssueToken(ctx context.Context, env toolEnv, args []string) error {
	fs := newFlagSet("issue-token", env.out)
	userID := fs.Int64("user", 0, "user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID <= 0 {
		return fmt.Errorf("%w: -user is required", errUsage)
	}

	cfg, err := env.loadConfig()
	if err != nil {
		return err
	}
	db, err := env.openDB(cfg.DBAddr, cfg.DBDebug)
	if err != nil {
		return err
	}
	defer db.Close()

	issuer := security.NewTokenIssuer(cfg.PrivateKey)
	tok, err := newService(db, nil, issuer, memory.NewNoopPublisher()).IssueAccessToken(ctx, *userID)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.out, tok)
	return nil
}

func cmdSeed(ctx context.Context, env toolEnv) error {
	_, db, closeDB, err := openStore(env)
	if err != nil {
		return err
	}
	defer closeDB()

	seeded, err := postgres.SeedUsers(ctx, postgres.NewUserRepo(db), postgres.NewRoleRepo(db))
	if err != nil {
		return err
	}
	for i, u := range seeded {
		roles := postgres.FixtureUsers()[i].Roles
		fmt.Fprintf(env.out, "%d\t%s\t%s\t%s\n", u.ID, u.UUID, u.Email, strings.Join(roles, ","))
	}
	return nil
}

func cmdKeygen(env toolEnv, args []string) error {
	fs := newFlagSet("keygen", env.out)
	bits := fs.Int("bits", 2048, "RSA modulus size")
	out := fs.String("out", "", "directory for private.pem and public.pem (stdout if empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *bits < 2048 {
		return fmt.Errorf("%w: -bits must be at least 2048", errUsage)
	}

	privPEM, pubPEM, err := security.GenerateKeyPair(*bits)
	if err != nil {
		return err
	}

	if *out == "" {
		_, _ = env.out.Write(privPEM)
		_, _ = env.out.Write(pubPEM)
		return nil
	}

	if err := os.MkdirAll(*out, 0o700); err != nil {
		return err
	}
	privPath := filepath.Join(*out, "private.pem")
	pubPath := filepath.Join(*out, "public.pem")
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		return err
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(env.out, "wrote %s and %s\n", privPath, pubPath)
	return nil
}
