package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/pulsehq/pulse-ui-api/config"
	"github.com/pulsehq/pulse-ui-api/internal/bootstrap"
	"github.com/pulsehq/pulse-ui-api/internal/util"
)

var errRedisNotConfigured = errors.New("redis not configured")

// connectInfra wires up both infrastructure dependencies for CLI commands.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func connectInfra(logger *slog.Logger, cfg *config.AppConfig) (*sql.DB, redis.UniversalClient, error) {
	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, Logger: logger})
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}

	redisClient, err := maybeConnectRedis(logger, &cfg.Redis)
	if err != nil {
		if errors.Is(err, errRedisNotConfigured) {
			logger.Info("no redis configuration detected; skipping redis connection")
			return db, nil, nil
		}
		if closeErr := db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close db: %w", closeErr))
		}
		return nil, nil, err
	}

	return db, redisClient, nil
}

// maybeConnectRedis returns a connected client when configuration is present.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func maybeConnectRedis(logger *slog.Logger, cfg *config.RedisConfig) (redis.UniversalClient, error) {
	if !hasRedisConfig(cfg) {
		return nil, errRedisNotConfigured
	}
	client, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{RedisConfig: *cfg, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

func hasRedisConfig(cfg *config.RedisConfig) bool {
	if cfg == nil {
		return false
	}
	if cfg.UseCluster {
		return len(cfg.ClusterNodes) > 0 || cfg.URI != ""
	}
	if cfg.UseSentinel {
		return len(cfg.SentinelNodes) > 0
	}
	return cfg.URI != ""
}

func closeInfra(db *sql.DB, redisClient redis.UniversalClient) error {
	var closeErr error
	if db != nil {
		if err := db.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close db: %w", err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close redis: %w", err))
		}
	}
	return closeErr
}

type checkTarget struct {
	name    string
	skipped string
	probe   func(ctx context.Context) error
	latency time.Duration
}

// runCheck probes Postgres, Redis, the identity provider's discovery
// document, and the backend service, reporting round-trip latency for each.
func runCheck(cmdCtx *commandContext, _ []string) error {
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, time.Minute)
	defer cancel()

	db, redisClient, err := connectInfra(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeInfra(db, redisClient); cerr != nil {
			cmdCtx.Logger.Warn("close infra failed", "error", cerr)
		}
	}()

	targets := buildCheckTargets(&cmdCtx.Config, db, redisClient)

	g, gctx := errgroup.WithContext(ctx)
	for i := range targets {
		target := &targets[i]
		if target.skipped != "" {
			continue
		}
		g.Go(func() error {
			start := time.Now()
			if probeErr := target.probe(gctx); probeErr != nil {
				return fmt.Errorf("%s: %w", target.name, probeErr)
			}
			target.latency = time.Since(start)
			return nil
		})
	}
	if waitErr := g.Wait(); waitErr != nil {
		return waitErr
	}

	for _, target := range targets {
		if target.skipped != "" {
			if printErr := writef(os.Stdout, "%-9s skipped (%s)\n", target.name+":", target.skipped); printErr != nil {
				return fmt.Errorf("print %s check: %w", target.name, printErr)
			}
			continue
		}
		if printErr := writef(os.Stdout, "%-9s ok (%s)\n", target.name+":", util.FormatProcessingDuration(target.latency)); printErr != nil {
			return fmt.Errorf("print %s check: %w", target.name, printErr)
		}
	}
	return nil
}

func buildCheckTargets(cfg *config.AppConfig, db *sql.DB, redisClient redis.UniversalClient) []checkTarget {
	targets := []checkTarget{
		{name: "postgres", probe: db.PingContext},
	}

	redisTarget := checkTarget{name: "redis", skipped: "not configured"}
	if redisClient != nil {
		redisTarget = checkTarget{name: "redis", probe: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}}
	}
	targets = append(targets, redisTarget)

	idpTarget := checkTarget{name: "idp", skipped: "oauth mode not configured"}
	if cfg.Auth.Mode == config.AuthModeOAuth && cfg.Auth.OAuth.DiscoveryURL != "" {
		discoveryURL := cfg.Auth.OAuth.DiscoveryURL
		idpTarget = checkTarget{name: "idp", probe: func(ctx context.Context) error {
			return probeHTTP(ctx, discoveryURL)
		}}
	}
	targets = append(targets, idpTarget)

	backendTarget := checkTarget{name: "backend", skipped: "not configured"}
	if cfg.Backend.Enabled() {
		baseURL := cfg.Backend.BaseURL
		backendTarget = checkTarget{name: "backend", probe: func(ctx context.Context) error {
			return probeHTTP(ctx, baseURL)
		}}
	}
	targets = append(targets, backendTarget)

	return targets
}

// probeHTTP issues a GET and treats any HTTP response as reachable; only
// transport failures count as errors.
func probeHTTP(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}
