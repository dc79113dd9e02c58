package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-auth/config"
	"github.com/target/mmk-auth/internal/migrate"
)

// DatabaseConfig contains configuration for database connections.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

// PostgresDSN builds the connection URL; url.URL escapes special characters in credentials.
func PostgresDSN(cfg config.DBConfig) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Name,
	}
	q := u.Query()
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q.Set("sslmode", sslMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// ConnectDB establishes a connection to the PostgreSQL database through the pgx stdlib driver.
func ConnectDB(ctx context.Context, cfg DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", PostgresDSN(cfg.DBConfig))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("database connected",
			"host", cfg.DBConfig.Host,
			"port", cfg.DBConfig.Port,
			"database", cfg.DBConfig.Name,
		)
	}

	return db, nil
}

// ConnectRedis establishes a connection to Redis for the session cache.
// It returns a nil client when the cache is disabled.
//
//nolint:ireturn // returning redis.UniversalClient lets us pick single, sentinel, or cluster clients at runtime.
func ConnectRedis(ctx context.Context, cfg DatabaseConfig) (redis.UniversalClient, error) {
	if !cfg.RedisConfig.Enabled {
		return nil, nil
	}
	target, err := sessionCacheTarget(cfg.RedisConfig)
	if err != nil {
		return nil, err
	}
	client := target.client()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis %s: %w", target, pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("session cache connected", "redis", target.String())
	}
	return client, nil
}

// redisMode selects the go-redis client constructor.
type redisMode string

const (
	redisDirect   redisMode = "direct"
	redisSentinel redisMode = "sentinel"
	redisCluster  redisMode = "cluster"
)

// redisTarget is the resolved session cache endpoint.
type redisTarget struct {
	mode redisMode
	opts redis.UniversalOptions
}

// sessionCacheTarget resolves RedisConfig into client options. A redis:// or rediss:// URI
// supplies credentials, database and TLS for direct and cluster modes.
func sessionCacheTarget(cfg config.RedisConfig) (redisTarget, error) {
	t := redisTarget{mode: redisDirect, opts: redis.UniversalOptions{Password: cfg.Password}}

	switch {
	case cfg.UseCluster:
		t.mode = redisCluster
		t.opts.Addrs = trimmedAddrs(cfg.ClusterNodes)
		if len(t.opts.Addrs) == 0 && strings.TrimSpace(cfg.URI) != "" {
			if err := t.applyURI(cfg.URI); err != nil {
				return redisTarget{}, err
			}
		}
	case cfg.UseSentinel:
		t.mode = redisSentinel
		t.opts.Addrs = trimmedAddrs(cfg.SentinelNodes)
		t.opts.MasterName = cfg.SentinelMasterName
		t.opts.SentinelPassword = cfg.SentinelPassword
		if t.opts.MasterName == "" {
			return redisTarget{}, errors.New("redis sentinel configuration requires a master name")
		}
	default:
		if err := t.applyURI(cfg.URI); err != nil {
			return redisTarget{}, err
		}
	}

	if len(t.opts.Addrs) == 0 {
		return redisTarget{}, fmt.Errorf("redis %s configuration requires at least one address", t.mode)
	}
	return t, nil
}

// applyURI reads a single address or a redis URL into the options.
func (t *redisTarget) applyURI(raw string) error {
	uri := strings.TrimSpace(raw)
	if uri == "" {
		return nil
	}
	if !strings.HasPrefix(uri, "redis://") && !strings.HasPrefix(uri, "rediss://") {
		t.opts.Addrs = []string{uri}
		return nil
	}
	parsed, err := redis.ParseURL(uri)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	t.opts.Addrs = []string{parsed.Addr}
	t.opts.Username = parsed.Username
	if parsed.Password != "" {
		t.opts.Password = parsed.Password
	}
	t.opts.DB = parsed.DB
	t.opts.TLSConfig = parsed.TLSConfig
	return nil
}

//nolint:ireturn // the mode decides the concrete client.
func (t redisTarget) client() redis.UniversalClient {
	opts := t.opts
	switch t.mode {
	case redisCluster:
		return redis.NewClusterClient(opts.Cluster())
	case redisSentinel:
		return redis.NewFailoverClient(opts.Failover())
	default:
		return redis.NewClient(opts.Simple())
	}
}

// String describes the target without credentials.
func (t redisTarget) String() string {
	desc := string(t.mode) + ":" + strings.Join(t.opts.Addrs, ",")
	if t.mode == redisSentinel {
		desc += "/" + t.opts.MasterName
	}
	return desc
}

func trimmedAddrs(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, addr := range raw {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// RunMigrations applies the embedded auth schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	applied, err := migrate.Run(ctx, db, logger)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if logger != nil {
		logger.InfoContext(ctx, "database migrations completed", "applied", len(applied))
	}

	return nil
}
