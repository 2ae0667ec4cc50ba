package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/jonny/kube-actions/internal/adapter/inbound/api"
	"github.com/jonny/kube-actions/internal/adapter/inbound/api/middleware"
	"github.com/jonny/kube-actions/internal/adapter/outbound/kubernetes"
	"github.com/jonny/kube-actions/internal/adapter/outbound/notification"
	slacknotifier "github.com/jonny/kube-actions/internal/adapter/outbound/notification/slack"
	"github.com/jonny/kube-actions/internal/adapter/outbound/persistence"
	"github.com/jonny/kube-actions/internal/adapter/outbound/persistence/sqlite"
	"github.com/jonny/kube-actions/internal/config"
	"github.com/jonny/kube-actions/internal/domain/port/outbound"
	"github.com/jonny/kube-actions/internal/domain/service"
	"github.com/jonny/kube-actions/pkg/health"
	"github.com/jonny/kube-actions/pkg/version"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	printVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *printVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = buildLogger(cfg.Logging)

	checker := health.NewChecker()

	// --- Kubectl ---
	policy := kubernetes.NewPolicy(kubernetes.PolicyConfig{
		AllowedVerbs:      cfg.Kubectl.AllowedVerbs,
		BlockedNamespaces: cfg.Kubectl.BlockedNamespaces,
	})

	var runner outbound.ProcessRunner
	if cfg.Kubectl.DryRun {
		logger.Warn("kubectl dry-run enabled: commands are logged, not executed")
		runner = kubernetes.NewNoopRunner(policy, logger)
	} else {
		runner = kubernetes.NewRunner(policy, kubernetes.RunnerConfig{
			Binary:         cfg.Kubectl.Binary,
			Kubeconfig:     cfg.Kubectl.Kubeconfig,
			DefaultTimeout: cfg.Kubectl.Timeout,
			KillGrace:      cfg.Kubectl.KillGrace,
		}, logger)
	}
	checker.Register("kubectl", runner.HealthCheck)

	if cfg.Kubernetes.HealthCheck {
		clientset, err := kubernetes.NewClientset(cfg.Kubernetes.InCluster, cfg.Kubernetes.Kubeconfig)
		if err != nil {
			logger.Warn("kubernetes clientset unavailable, cluster readiness check disabled", "error", err)
		} else {
			checker.Register("cluster", kubernetes.NewClusterProbe(clientset).HealthCheck)
		}
	}

	// --- Audit store ---
	var executions outbound.ExecutionRepository = persistence.NewNoopExecutionRepo()
	if cfg.Audit.Enabled {
		store, err := sqlite.NewStore(sqlite.Config{
			Path:              cfg.Audit.SQLite.Path,
			MaxOpenConns:      cfg.Audit.SQLite.MaxOpenConns,
			PragmaJournalMode: cfg.Audit.SQLite.PragmaJournalMode,
			PragmaBusyTimeout: cfg.Audit.SQLite.PragmaBusyTimeout,
		})
		if err != nil {
			logger.Error("failed to open sqlite store", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		executions = sqlite.NewExecutionRepo(store)
		checker.Register("database", store.HealthCheck)
	} else {
		logger.Info("audit trail disabled")
	}

	// --- Notifier ---
	var notifier outbound.Notifier = notification.NewNoopNotifier(logger)
	if cfg.Slack.Enabled {
		notifier = slacknotifier.NewNotifier(slacknotifier.Config{
			BotToken:       cfg.Slack.BotToken,
			DefaultChannel: cfg.Slack.DefaultChannel,
			Channels:       cfg.Slack.Channels,
		})
	} else {
		logger.Info("slack notifications disabled")
	}

	// --- Domain services ---
	builder := service.NewCommandBuilder(cfg.Kubectl.Binary, cfg.Kubectl.IdentityLabel)
	orchestrator := service.NewOrchestrator(builder, runner, executions, notifier, logger, service.Config{
		DefaultTimeout: cfg.Kubectl.Timeout,
		WorkspaceDir:   cfg.Kubectl.WorkspaceDir,
	})

	// --- API ---
	apiServer := api.NewServer(apiServerConfig(cfg.Server), api.NewHandler(orchestrator, logger), logger)

	// --- Metrics server ---
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", checker.LivenessHandler())
	metricsMux.HandleFunc("/readyz", checker.ReadinessHandler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: metricsMux,
	}

	// --- Signal handling & startup ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return apiServer.Start(gCtx)
	})

	if cfg.Server.MetricsPort != 0 {
		g.Go(func() error {
			logger.Info("starting metrics server", "port", cfg.Server.MetricsPort)
			errCh := make(chan error, 1)
			go func() {
				if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()
			select {
			case <-gCtx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				return metricsServer.Shutdown(shutdownCtx)
			case err := <-errCh:
				return err
			}
		})
	}

	logger.Info("kube-actions started",
		"version", version.String(),
		"dry_run", cfg.Kubectl.DryRun,
		"audit", cfg.Audit.Enabled,
		"slack", cfg.Slack.Enabled,
	)

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("kube-actions stopped")
}

// buildLogger constructs a slog.Logger based on config.
func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	if cfg.Output == "stderr" {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(out, opts))
	}
	return slog.New(slog.NewJSONHandler(out, opts))
}

func apiServerConfig(c config.ServerConfig) api.ServerConfig {
	var rateLimit *middleware.RateLimitConfig
	if c.RateLimit.Enabled {
		rateLimit = &middleware.RateLimitConfig{
			RequestsPerMinute: c.RateLimit.RequestsPerMinute,
			Burst:             c.RateLimit.Burst,
			TrustProxy:        c.RateLimit.TrustProxy,
		}
	}
	return api.ServerConfig{
		Port:            c.Port,
		BasePath:        c.BasePath,
		ReadTimeout:     c.ReadTimeout,
		WriteTimeout:    c.WriteTimeout,
		ShutdownTimeout: c.ShutdownTimeout,
		AllowedOrigins:  c.AllowedOrigins,
		AuthToken:       c.AuthToken,
		MaxBodyBytes:    c.MaxBodyBytes,
		RateLimit:       rateLimit,
	}
}
