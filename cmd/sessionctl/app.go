package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/credentials"
	"github.com/MrEthical07/goSession/internal/logging"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"github.com/redis/go-redis/v9"
)

const usage = `usage: sessionctl <command> [flags]

commands:
  hash                      read a password, print its PHC hash
  migrate                   apply the credential schema
  adduser -username NAME    create a user
  passwd  -username NAME    replace a user's password
  session -token TOKEN      show a session without renewing it
  ping                      check Redis and Postgres
`

type app struct {
	stdin  io.Reader
	reader *bufio.Reader
	out    io.Writer
	errOut io.Writer

	loadConfig func() goSession.Config
	openDB     func(ctx context.Context, cfg goSession.DatabaseConfig) (*sql.DB, error)
	dialRedis  func(ctx context.Context, cfg goSession.RedisConfig) (redis.UniversalClient, error)
	migrate    func(ctx context.Context, db *sql.DB) error

	cfg goSession.Config
	log logging.Logger
}

func newApp(stdin io.Reader, out, errOut io.Writer) *app {
	return &app{
		stdin:      stdin,
		out:        out,
		errOut:     errOut,
		loadConfig: func() goSession.Config { return goSession.LoadConfigFromEnv("") },
		openDB: func(ctx context.Context, cfg goSession.DatabaseConfig) (*sql.DB, error) {
			if cfg.DSN == "" {
				return nil, errors.New("GOSESSION_DATABASE_DSN is not set")
			}
			return credentials.Open(ctx, cfg.DSN, credentials.PoolOptions{
				MaxOpenConns:    cfg.MaxConnections,
				MaxIdleConns:    cfg.MinConnections,
				ConnMaxLifetime: cfg.ConnMaxLifetime,
				ConnectTimeout:  cfg.ConnectTimeout,
			})
		},
		dialRedis: func(ctx context.Context, cfg goSession.RedisConfig) (redis.UniversalClient, error) {
			return session.Dial(ctx, cfg.DialOptions())
		},
		migrate: credentials.Migrate,
	}
}

func (a *app) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(a.errOut, usage)
		return 2
	}

	a.cfg = a.loadConfig()
	logger, err := logging.NewJSON(a.errOut, a.cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(a.errOut, "config: %v\n", err)
		return 2
	}
	a.log = logger

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "hash":
		err = a.hash(ctx, rest)
	case "migrate":
		err = a.migrateCmd(ctx, rest)
	case "adduser":
		err = a.addUser(ctx, rest)
	case "passwd":
		err = a.passwd(ctx, rest)
	case "session":
		err = a.sessionCmd(ctx, rest)
	case "ping":
		err = a.ping(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return 0
	default:
		fmt.Fprintf(a.errOut, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(a.errOut, "%s: %v\n", cmd, err)
		return 1
	}
	return 0
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func (a *app) hasher() (*password.Argon2, error) {
	if len(a.cfg.Password.Pepper) == 0 {
		return nil, errors.New("GOSESSION_PEPPER is not set")
	}
	return password.NewArgon2(a.cfg.Password.HasherConfig())
}

func (a *app) hash(_ context.Context, args []string) error {
	if err := a.flags("hash").Parse(args); err != nil {
		return err
	}
	h, err := a.hasher()
	if err != nil {
		return err
	}
	pw, err := a.readNewPassword()
	if err != nil {
		return err
	}
	if err := goSession.ValidatePassword(pw); err != nil {
		return fmt.Errorf("password: %w", err)
	}
	encoded, err := h.Hash(pw)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, encoded)
	return nil
}

func (a *app) migrateCmd(ctx context.Context, args []string) error {
	if err := a.flags("migrate").Parse(args); err != nil {
		return err
	}
	db, err := a.openDB(ctx, a.cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := a.migrate(ctx, db); err != nil {
		return err
	}
	a.log.Info(ctx, "migrations applied")
	return nil
}

// withRepository opens the database, migrates when configured, and hands a
// repository to fn.
func (a *app) withRepository(ctx context.Context, fn func(*credentials.Repository) error) error {
	db, err := a.openDB(ctx, a.cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if a.cfg.Database.AutoMigrate {
		if err := a.migrate(ctx, db); err != nil {
			return err
		}
	}
	return fn(credentials.NewRepository(db))
}

func (a *app) addUser(ctx context.Context, args []string) error {
	fs := a.flags("adduser")
	username := fs.String("username", "", "login name (ASCII letters and digits)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := goSession.ValidateUsername(*username); err != nil {
		return fmt.Errorf("username: %w", err)
	}

	h, err := a.hasher()
	if err != nil {
		return err
	}
	pw, err := a.readNewPassword()
	if err != nil {
		return err
	}
	if err := goSession.ValidatePassword(pw); err != nil {
		return fmt.Errorf("password: %w", err)
	}
	encoded, err := h.Hash(pw)
	if err != nil {
		return err
	}

	return a.withRepository(ctx, func(repo *credentials.Repository) error {
		id, err := repo.Create(ctx, *username, encoded)
		if err != nil {
			return err
		}
		a.log.Info(ctx, "user created", "user_id", id, "username", *username)
		fmt.Fprintf(a.out, "created user %s with id %d\n", *username, id)
		return nil
	})
}

func (a *app) passwd(ctx context.Context, args []string) error {
	fs := a.flags("passwd")
	username := fs.String("username", "", "login name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := goSession.ValidateUsername(*username); err != nil {
		return fmt.Errorf("username: %w", err)
	}

	h, err := a.hasher()
	if err != nil {
		return err
	}

	return a.withRepository(ctx, func(repo *credentials.Repository) error {
		cred, err := repo.GetCredentialByUsername(ctx, *username)
		if err != nil {
			return err
		}
		pw, err := a.readNewPassword()
		if err != nil {
			return err
		}
		if err := goSession.ValidatePassword(pw); err != nil {
			return fmt.Errorf("password: %w", err)
		}
		encoded, err := h.Hash(pw)
		if err != nil {
			return err
		}
		if err := repo.UpdatePasswordHash(ctx, cred.UserID, encoded); err != nil {
			return err
		}
		a.log.Info(ctx, "password changed", "user_id", cred.UserID)
		fmt.Fprintf(a.out, "password changed for %s\n", *username)
		return nil
	})
}

func (a *app) store(ctx context.Context) (*session.Store, func(), error) {
	client, err := a.dialRedis(ctx, a.cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	s := a.cfg.Session
	store := session.NewStore(client, s.RedisPrefix, session.Policy{LongTerm: s.LongTerm, ShortTerm: s.ShortTerm}, s.SafetyBuffer)
	return store, func() { _ = client.Close() }, nil
}

func (a *app) sessionCmd(ctx context.Context, args []string) error {
	fs := a.flags("session")
	token := fs.String("token", "", "session token")
	destroy := fs.Bool("destroy", false, "delete the session after showing it")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *token == "" {
		return errors.New("-token is required")
	}

	store, closeFn, err := a.store(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	sess, err := store.GetSessionData(ctx, *token)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "user_id=%d long_term=%t expires_at=%s\n",
		sess.UserID, sess.IsLongTerm, sess.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"))

	if *destroy {
		if err := store.DestroySession(ctx, *token); err != nil {
			return err
		}
		a.log.Info(ctx, "session destroyed", "token", session.Fingerprint(*token), "user_id", sess.UserID)
		fmt.Fprintln(a.out, "destroyed")
	}
	return nil
}

func (a *app) ping(ctx context.Context, args []string) error {
	fs := a.flags("ping")
	skipDB := fs.Bool("skip-db", false, "only check Redis")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var failures []string

	store, closeFn, err := a.store(ctx)
	if err != nil {
		failures = append(failures, "redis")
		fmt.Fprintf(a.out, "redis: %v\n", err)
	} else {
		rtt, err := store.Ping(ctx)
		closeFn()
		if err != nil {
			failures = append(failures, "redis")
			fmt.Fprintf(a.out, "redis: %v\n", err)
		} else {
			fmt.Fprintf(a.out, "redis: ok (%s)\n", rtt)
		}
	}

	if !*skipDB {
		db, err := a.openDB(ctx, a.cfg.Database)
		if err != nil {
			failures = append(failures, "postgres")
			fmt.Fprintf(a.out, "postgres: %v\n", err)
		} else {
			_ = db.Close()
			fmt.Fprintln(a.out, "postgres: ok")
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("unreachable: %s", strings.Join(failures, ", "))
	}
	return nil
}
