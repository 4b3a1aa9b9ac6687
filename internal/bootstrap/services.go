package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pulsehq/pulse-ui-api/config"
	"github.com/pulsehq/pulse-ui-api/internal/adapters/backendproxy"
	redisadapter "github.com/pulsehq/pulse-ui-api/internal/adapters/redis"
	"github.com/pulsehq/pulse-ui-api/internal/authstate"
	"github.com/pulsehq/pulse-ui-api/internal/data"
	"github.com/pulsehq/pulse-ui-api/internal/ports"
	"github.com/pulsehq/pulse-ui-api/internal/resolve"
	"github.com/pulsehq/pulse-ui-api/internal/service"
)

// shutdownWaitTimeout bounds graceful shutdown of each component.
const shutdownWaitTimeout = 10 * time.Second

// ServiceContainer holds all constructed application services.
type ServiceContainer struct {
	Identity  ports.IdentityClient
	Resolver  *resolve.Resolver
	AuthState *authstate.Store
	Auth      *service.AuthService
	Reports   *service.ReportService
	Teams     *service.TeamService
	Admin     *service.AdminService
}

// BuildServicesConfig groups dependencies for BuildServices.
type BuildServicesConfig struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// BuildServices constructs the service graph: adapters first, then the
// resolution pipeline, then the application services.
func BuildServices(cfg BuildServicesConfig) (*ServiceContainer, error) {
	if cfg.Config == nil {
		return nil, errors.New("app config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	identity := BuildIdentityClient(AuthConfig{
		Auth:        cfg.Config.Auth,
		RedisClient: cfg.RedisClient,
		Logger:      logger,
	})

	sessionStore := BuildSessionStore(cfg.RedisClient)
	teamCache := redisadapter.NewTeamCacheWithTTL(cfg.RedisClient, cfg.Config.Cache.TeamSelectionTTL)

	profileRepo := data.NewProfileRepo(cfg.DB)
	teamRepo := data.NewTeamRepo(cfg.DB)
	reportRepo := data.NewReportRepo(cfg.DB)

	proxy, err := buildBackendProxy(cfg.Config.Backend, logger)
	if err != nil {
		return nil, err
	}

	emailRules, err := ParseEmailRules(cfg.Config.Auth.EmailRoleRules)
	if err != nil {
		return nil, fmt.Errorf("parse email role rules: %w", err)
	}

	resolver := resolve.NewResolver(resolve.ResolverOptions{
		Profiles:   profileRepo,
		TeamCache:  teamCache,
		EmailRules: emailRules,
		Logger:     logger,
	})

	container := &ServiceContainer{
		Identity: identity,
		Resolver: resolver,
		Auth: service.NewAuthService(service.AuthServiceOptions{
			Identity:   identity,
			Sessions:   sessionStore,
			Resolver:   resolver,
			WaitBudget: cfg.Config.Auth.WaitBudget,
			SessionTTL: cfg.Config.Auth.SessionTTL,
			Logger:     logger,
		}),
		Reports: service.NewReportService(service.ReportServiceOptions{
			Reports: reportRepo,
			Members: profileRepo,
			Logger:  logger,
		}),
		Teams: service.NewTeamService(service.TeamServiceOptions{
			Proxy:    proxy,
			Teams:    teamRepo,
			Profiles: profileRepo,
			Cache:    teamCache,
			Logger:   logger,
		}),
		Admin: service.NewAdminService(service.AdminServiceOptions{
			Proxy:    proxy,
			Profiles: profileRepo,
			Logger:   logger,
		}),
	}

	if identity != nil {
		container.AuthState = authstate.NewStore(identity, resolver, logger)
	}

	return container, nil
}

// buildBackendProxy constructs the optional backend client. A disabled
// backend yields a nil proxy; consumers fall back to local behavior.
func buildBackendProxy(cfg config.BackendConfig, logger *slog.Logger) (ports.BackendProxy, error) {
	if !cfg.Enabled() {
		logger.Info("backend service not configured, using local fallbacks")
		return nil, nil
	}

	client, err := backendproxy.NewClient(backendproxy.Config{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Timeout:     cfg.Timeout,
		SummaryExpr: cfg.SummaryExpr,
	})
	if err != nil {
		return nil, fmt.Errorf("build backend proxy: %w", err)
	}
	logger.Info("backend service configured", "base_url", cfg.BaseURL)
	return client, nil
}

// ServiceOrchestrationConfig groups dependencies for running services.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	if cfg.Services == nil {
		return errors.New("service orchestration config missing services")
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	var httpServer *http.Server
	if enabledServices[config.ServiceModeHTTP] {
		httpServer = StartHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: *cfg.Services,
			Logger:   logger,
		})
	}

	var watcherDone <-chan struct{}
	if enabledServices[config.ServiceModeAuthWatcher] && cfg.Services.AuthState != nil {
		watcherDone = startAuthWatcher(serviceCtx, cfg.Services.AuthState, logger, errCh)
	}

	return waitForShutdown(shutdownConfig{
		ctx:         serviceCtx,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  httpServer,
		watcherDone: watcherDone,
		logger:      logger,
	})
}

// startAuthWatcher runs the auth-state-change watcher until the context ends.
func startAuthWatcher(ctx context.Context, store *authstate.Store, logger *slog.Logger, errCh chan<- error) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("starting auth-state watcher")
		if err := store.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("auth-state watcher: %w", err)
			return
		}
		logger.Info("auth-state watcher stopped")
	}()
	return done
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	count := 0
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	size := errorChannelCapacity(enabled) + 1
	if size < 1 {
		return 1
	}
	return size
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	watcherDone <-chan struct{}
	logger      *slog.Logger
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel()
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel()
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop attempts to gracefully stop all services.
func gracefulStop(cfg shutdownConfig) error {
	if cfg.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  cfg.httpServer,
			Logger:  cfg.logger,
		}); err != nil {
			return err
		}
	}

	waitForService(cfg.watcherDone, "auth-state watcher", cfg.logger)
	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
