package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-auth/internal/bootstrap"
	"github.com/target/mmk-auth/internal/domain/auth"
	"github.com/target/mmk-auth/internal/domain/model"
	"github.com/target/mmk-auth/internal/service"
)

type setPasswordOptions struct {
	User     string
	Password string
	Timeout  time.Duration
}

type revokeSessionsOptions struct {
	User    string
	Timeout time.Duration
}

type resolveSessionOptions struct {
	Token   string
	JSON    bool
	Timeout time.Duration
}

func runSetPassword(cmdCtx *commandContext, args []string) error {
	opts, err := parseSetPasswordFlags(args)
	if err != nil {
		return err
	}
	if opts.Password == "" {
		if opts.Password, err = readPassword(os.Stdin, os.Stderr); err != nil {
			return err
		}
	}

	return withAuthService(cmdCtx, opts.Timeout, func(ctx context.Context, svc *service.AuthService[*model.User]) error {
		user, findErr := svc.FindUser(ctx, opts.User)
		if findErr != nil {
			return fmt.Errorf("find user %q: %w", opts.User, findErr)
		}
		if setErr := svc.SetPassword(ctx, user.ID, opts.Password); setErr != nil {
			return fmt.Errorf("set password: %w", setErr)
		}
		cmdCtx.Logger.Info("password updated", "user_id", user.ID)
		return writef(os.Stdout, "Password updated for user %s\n", user.ID)
	})
}

func runRevokeSessions(cmdCtx *commandContext, args []string) error {
	opts, err := parseRevokeSessionsFlags(args)
	if err != nil {
		return err
	}

	return withAuthService(cmdCtx, opts.Timeout, func(ctx context.Context, svc *service.AuthService[*model.User]) error {
		user, findErr := svc.FindUser(ctx, opts.User)
		if findErr != nil {
			return fmt.Errorf("find user %q: %w", opts.User, findErr)
		}
		n, revokeErr := svc.RevokeSessions(ctx, user.ID)
		if revokeErr != nil {
			return fmt.Errorf("revoke sessions: %w", revokeErr)
		}
		cmdCtx.Logger.Info("sessions revoked", "user_id", user.ID, "count", n)
		return writef(os.Stdout, "Revoked %d active sessions for user %s\n", n, user.ID)
	})
}

func runResolveSession(cmdCtx *commandContext, args []string) error {
	opts, err := parseResolveSessionFlags(args)
	if err != nil {
		return err
	}

	return withAuthService(cmdCtx, opts.Timeout, func(ctx context.Context, svc *service.AuthService[*model.User]) error {
		sess, resolveErr := svc.ResolveSession(ctx, opts.Token)
		if resolveErr != nil {
			return fmt.Errorf("resolve session: %w", resolveErr)
		}
		return printSession(os.Stdout, sess, opts.JSON)
	})
}

func parseSetPasswordFlags(args []string) (setPasswordOptions, error) {
	fs := flag.NewFlagSet("set-password", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := setPasswordOptions{}
	fs.StringVar(&opts.User, "user", "", "User id, email, phone or login")
	fs.StringVar(&opts.Password, "password", "", "New password; read from stdin when empty")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration for the command")

	if err := fs.Parse(args); err != nil {
		return setPasswordOptions{}, err
	}
	opts.User = strings.TrimSpace(opts.User)
	if opts.User == "" {
		return setPasswordOptions{}, errors.New("--user is required")
	}
	if opts.Timeout <= 0 {
		return setPasswordOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseRevokeSessionsFlags(args []string) (revokeSessionsOptions, error) {
	fs := flag.NewFlagSet("revoke-sessions", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := revokeSessionsOptions{}
	fs.StringVar(&opts.User, "user", "", "User id, email, phone or login")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration for the command")

	if err := fs.Parse(args); err != nil {
		return revokeSessionsOptions{}, err
	}
	opts.User = strings.TrimSpace(opts.User)
	if opts.User == "" {
		return revokeSessionsOptions{}, errors.New("--user is required")
	}
	if opts.Timeout <= 0 {
		return revokeSessionsOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseResolveSessionFlags(args []string) (resolveSessionOptions, error) {
	fs := flag.NewFlagSet("resolve-session", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := resolveSessionOptions{}
	fs.StringVar(&opts.Token, "token", "", "Session token as stored in the session cookie")
	fs.BoolVar(&opts.JSON, "json", false, "Print the session as JSON")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration for the command")

	if err := fs.Parse(args); err != nil {
		return resolveSessionOptions{}, err
	}
	opts.Token = strings.TrimSpace(opts.Token)
	if opts.Token == "" {
		return resolveSessionOptions{}, errors.New("--token is required")
	}
	if opts.Timeout <= 0 {
		return resolveSessionOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

// readPassword reads a single line so the password stays out of shell history.
func readPassword(in io.Reader, out io.Writer) (string, error) {
	if err := write(out, "New password: "); err != nil {
		return "", fmt.Errorf("print password prompt: %w", err)
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("password is required")
	}
	return pw, nil
}

// withAuthService connects the stores, builds the auth service and runs f under a timeout.
func withAuthService(
	cmdCtx *commandContext,
	timeout time.Duration,
	f func(context.Context, *service.AuthService[*model.User]) error,
) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dbCfg := bootstrap.DatabaseConfig{
		DBConfig:    cmdCtx.Config.Postgres,
		RedisConfig: cmdCtx.Config.Redis,
		Logger:      cmdCtx.Logger,
	}
	db, err := bootstrap.ConnectDB(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", cerr)
		}
	}()

	var rc redis.UniversalClient
	rc, err = bootstrap.ConnectRedis(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if rc != nil {
		defer func() {
			if cerr := rc.Close(); cerr != nil {
				cmdCtx.Logger.Warn("redis close failed", "error", cerr)
			}
		}()
	}

	svc, err := bootstrap.BuildAuthService(ctx, bootstrap.AuthConfig{
		Auth:        cmdCtx.Config.Auth,
		Redis:       cmdCtx.Config.Redis,
		DB:          db,
		RedisClient: rc,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		return err
	}
	return f(ctx, svc)
}

func printSession(out io.Writer, sess *auth.Session, asJSON bool) error {
	if sess == nil {
		return writeln(out, "no active session")
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sess)
	}
	rows := [][2]string{
		{"Session", sess.ID},
		{"User", sess.UserID},
		{"Grant", sess.GrantID},
		{"IP", sess.UserIP},
		{"OS", sess.UserOS},
		{"Browser", sess.UserBrowser},
		{"Created", sess.CreateTime.UTC().Format(time.RFC3339)},
		{"Expires", sess.EndTime.UTC().Format(time.RFC3339)},
	}
	for _, row := range rows {
		if err := writef(out, "%-8s %s\n", row[0]+":", row[1]); err != nil {
			return err
		}
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func write(w io.Writer, s string) error {
	_, err := io.WriteString(w, s)
	return err
}

func writeln(w io.Writer, s string) error {
	_, err := fmt.Fprintln(w, s)
	return err
}
