// Foreman — control plane для управления runner'ами.
//
// Один процесс объединяет HTTP API, dispatcher с worker pool,
// reconcile scheduler и (опционально) consumer heartbeat'ов из RabbitMQ.
//
// Конфигурация через переменные окружения:
//
//	API_PORT          порт HTTP API (default: 8080)
//	DB_URL            строка подключения PostgreSQL
//	DB_MAX_CONNS      размер пула соединений (default: 10)
//	MQ_URL            строка подключения RabbitMQ (пустая — без очереди)
//	RECONCILE_CRON    cron-выражение reconcile (default: каждые 5 минут)
//	DISPATCH_WORKERS  размер worker pool (default: 4)
//	LOG_LEVEL         уровень логирования (debug, info, warn, error)
//	LOG_FORMAT        формат логов (text, json)
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shaiso/Foreman/internal/api"
	"github.com/shaiso/Foreman/internal/checks"
	"github.com/shaiso/Foreman/internal/dispatcher"
	"github.com/shaiso/Foreman/internal/executor"
	"github.com/shaiso/Foreman/internal/mq"
	"github.com/shaiso/Foreman/internal/registry"
	"github.com/shaiso/Foreman/internal/repo"
	"github.com/shaiso/Foreman/internal/scheduler"
	"github.com/shaiso/Foreman/internal/telemetry"
)

var startTime = time.Now()

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting foreman")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Подключаемся к базе данных и применяем миграции
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	if err := repo.Migrate(ctx, pool); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Репозитории
	runnerRepo := repo.NewRunnerRepo(pool)
	orderRepo := repo.NewOrderRepo(pool)
	evidenceRepo := repo.NewEvidenceRepo(pool)
	factsRepo := repo.NewFactsRepo(pool)

	// Реестр runner'ов + явный идемпотентный посев
	reg := registry.New(registry.Config{
		Runners: runnerRepo,
		Logger:  logger,
	})
	if err := reg.Bootstrap(ctx); err != nil {
		logger.Error("failed to bootstrap registry", "error", err)
		os.Exit(1)
	}

	// Executor и dispatcher
	exec := executor.New(executor.Config{
		Orders:    orderRepo,
		Evidences: evidenceRepo,
		Facts:     factsRepo,
		Runners:   runnerRepo,
		Checks:    checks.New(checks.Config{}),
		Logger:    logger,
	})

	disp := dispatcher.New(dispatcher.Config{
		Orders:   orderRepo,
		Runners:  runnerRepo,
		Executor: exec,
		Pool: dispatcher.NewPool(dispatcher.PoolConfig{
			Workers: envInt("DISPATCH_WORKERS", 0),
			Logger:  logger,
		}),
		Logger: logger,
	})
	disp.Start(ctx)
	defer disp.Stop()

	// Reconcile scheduler
	sched, err := scheduler.New(scheduler.Config{
		Runners:   reg,
		Submitter: disp,
		CronExpr:  os.Getenv("RECONCILE_CRON"),
		Logger:    logger,
	})
	if err != nil {
		logger.Error("invalid reconcile schedule", "error", err)
		os.Exit(1)
	}
	sched.Start(ctx)
	defer sched.Stop()

	// RabbitMQ — опциональный транспорт heartbeat'ов.
	// Недоступность очереди не мешает работе: heartbeat'ы идут по HTTP.
	if mqURL := os.Getenv("MQ_URL"); mqURL != "" {
		conn, err := mq.NewConnection(mqURL, logger)
		if err != nil {
			logger.Warn("rabbitmq unavailable, heartbeats accepted over http only", "error", err)
		} else {
			defer conn.Close()
			if err := mq.SetupTopology(conn); err != nil {
				logger.Error("failed to setup mq topology", "error", err)
				os.Exit(1)
			}

			consumer := mq.NewHeartbeatConsumer(conn, reg, logger)
			go func() {
				if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("heartbeat consumer error", "error", err)
				}
			}()
			defer consumer.Stop()
		}
	}

	// HTTP API
	handler := api.NewHandler(api.Config{
		Registry:  reg,
		Submitter: disp,
		Orders:    orderRepo,
		Evidences: evidenceRepo,
		Facts:     factsRepo,
		Logger:    logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

// envInt читает целочисленную переменную окружения; пустая или
// некорректная — fallback.
func envInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
