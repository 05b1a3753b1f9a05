package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/fathomlabs/orchestrator/internal/activities"
	"github.com/fathomlabs/orchestrator/internal/config"
	"github.com/fathomlabs/orchestrator/internal/db"
	"github.com/fathomlabs/orchestrator/internal/llm"
	"github.com/fathomlabs/orchestrator/internal/progress"
	"github.com/fathomlabs/orchestrator/internal/search"
	"github.com/fathomlabs/orchestrator/internal/temporal"
	"github.com/fathomlabs/orchestrator/internal/workflows"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	progress.Configure(cfg.Observability.RingCapacity)

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := ":" + strconv.Itoa(cfg.Observability.MetricsPort)
		logger.Info("Metrics HTTP server listening", zap.String("addr", addr))
		srv := &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics HTTP server failed", zap.Error(err))
		}
	}()

	// Optional persistence
	var dbClient *db.Client
	if cfg.Postgres.Host != "" {
		dbClient, err = db.NewClient(&db.Config{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
			SSLMode:  cfg.Postgres.SSLMode,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer dbClient.Close()
	} else {
		logger.Info("No database configured, persistence disabled")
	}

	// Optional progress mirror
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, progress mirror disabled", zap.Error(err))
			redisClient = nil
		}
		cancel()
	}
	mirror := progress.NewMirror(redisClient, logger)

	llmClient := llm.NewHTTPClient(cfg.Services.LLMBaseURL, 120*time.Second, logger)

	searchClient, err := search.NewHTTPClient(cfg.Services.SearchBaseURL, cfg.Services.SearchAPIKey, 60*time.Second, logger)
	if err != nil {
		logger.Fatal("Failed to build search client", zap.Error(err))
	}

	acts := activities.NewActivities(llmClient, searchClient, cfg, logger, progress.Get(), mirror, dbClient)

	tClient := dialTemporal(cfg.Temporal.HostPort, logger)
	defer tClient.Close()

	wk := worker.New(tClient, cfg.Temporal.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     cfg.Research.MaxConcurrentWorkers * 2,
		MaxConcurrentWorkflowTaskExecutionSize: 8,
	})
	wk.RegisterWorkflow(workflows.ResearchWorkflow)
	wk.RegisterActivity(acts.PlanResearch)
	wk.RegisterActivity(acts.ExecuteSubagent)
	wk.RegisterActivity(acts.SynthesizeFindings)
	wk.RegisterActivity(acts.ResolveCitations)
	wk.RegisterActivity(acts.EmitProgress)
	wk.RegisterActivity(acts.PersistResult)

	go func() {
		logger.Info("Temporal worker started",
			zap.String("queue", cfg.Temporal.TaskQueue),
			zap.String("host", cfg.Temporal.HostPort),
		)
		if err := wk.Run(worker.InterruptCh()); err != nil {
			logger.Error("Temporal worker exited with error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutting down", zap.String("signal", fmt.Sprintf("%v", sig)))
	wk.Stop()
}

// dialTemporal retries until the Temporal frontend accepts a connection.
func dialTemporal(hostPort string, logger *zap.Logger) client.Client {
	for attempt := 1; ; attempt++ {
		tClient, err := client.Dial(client.Options{
			HostPort: hostPort,
			Logger:   temporal.NewLogger(logger),
		})
		if err == nil {
			return tClient
		}
		delay := time.Duration(attempt) * time.Second
		if delay > 15*time.Second {
			delay = 15 * time.Second
		}
		logger.Warn("Temporal not ready, retrying",
			zap.Int("attempt", attempt),
			zap.String("host", hostPort),
			zap.Duration("sleep", delay),
			zap.Error(err),
		)
		time.Sleep(delay)
	}
}
