package main

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

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"wires/internal/app"
	"wires/internal/compliance"
	"wires/internal/payment"
	"wires/internal/platform/config"
	"wires/internal/platform/httpserver"
	"wires/internal/platform/kafka/admin"
	"wires/internal/platform/kafka/consumer"
	"wires/internal/platform/kafka/producer"
	"wires/internal/platform/logger"
	"wires/internal/platform/metrics"
	"wires/internal/platform/middleware"
	redisclient "wires/internal/platform/redis"
	"wires/internal/wire/handler"
	"wires/internal/wire/service"
	"wires/internal/wire/store"
)

// main wires the status consumer, the Dodd-Frank scheduler and the ops
// endpoints, and keeps them running until SIGINT or SIGTERM.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("wires consumer stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	zone, err := time.LoadLocation(cfg.DoddFrank.Zone)
	if err != nil {
		return fmt.Errorf("load zone %q: %w", cfg.DoddFrank.Zone, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	wireMetrics := metrics.New(reg)

	messaging, err := app.NewMessaging(cfg.SchemaRegistry, reg, log)
	if err != nil {
		return fmt.Errorf("build deserializer: %w", err)
	}

	wires, db, err := openStore(ctx, cfg.Postgres, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	redis, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redis != nil {
		defer redis.Close()
	}

	kafkaTLS, err := cfg.Kafka.TLS.Build()
	if err != nil {
		return fmt.Errorf("kafka tls: %w", err)
	}

	prod, err := producer.New(cfg.Kafka.Brokers, cfg.Kafka.ClientID, producer.WithTLS(kafkaTLS))
	if err != nil {
		return err
	}
	defer prod.Close()

	if _, err := admin.EnsureTopics(ctx, prod.Client(), admin.TopicSpec{
		Partitions:        cfg.Kafka.Partitions,
		ReplicationFactor: cfg.Kafka.ReplicationFactor,
	}, log, cfg.Kafka.Topics.All()...); err != nil {
		return fmt.Errorf("provision topics: %w", err)
	}

	svc, err := service.New(wires,
		service.WithLocation(zone),
		service.WithLogger(log),
		service.WithMetrics(wireMetrics),
	)
	if err != nil {
		return err
	}

	handlerOpts := []handler.Option{handler.WithLogger(log), handler.WithMetrics(wireMetrics)}
	router := consumer.NewRouter(log, nil)
	router.Register(cfg.Kafka.Topics.PaymentStatus, handler.NewPaymentStatusHandler(messaging.Deserializer, svc, handlerOpts...))
	router.Register(cfg.Kafka.Topics.Signatures, handler.NewSignatureStatusHandler(messaging.Deserializer, svc, handlerOpts...))

	cons, err := consumer.New(consumer.Config{
		Brokers:  cfg.Kafka.Brokers,
		ClientID: cfg.Kafka.ClientID,
		Group:    cfg.Kafka.ConsumerGroup,
		Topics:   router.Topics(),
		TLS:      kafkaTLS,
	}, router, consumer.WithLogger(log))
	if err != nil {
		return err
	}
	defer cons.Close()

	checks := map[string]httpserver.HealthCheck{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if redis != nil {
		checks["redis"] = redis.Health
	}
	srv := httpserver.New(cfg.Server.Addr, httpserver.NewOpsRouter(reg, checks,
		middleware.WithLogger(log),
		middleware.WithQuietPaths("/metrics", "/healthz"),
	))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.InfoContext(gctx, "consuming", "topics", router.Topics(), "group", cfg.Kafka.ConsumerGroup)
		return ignoreCanceled(cons.Run(gctx))
	})

	if cfg.DoddFrank.Enabled {
		dispatcher, err := payment.New(prod, cfg.Kafka.Topics.PaymentRequests,
			payment.WithLogger(log),
			payment.WithMetrics(wireMetrics),
		)
		if err != nil {
			return err
		}
		jobOpts := []compliance.Option{compliance.WithLogger(log), compliance.WithMetrics(wireMetrics)}
		if redis != nil {
			jobOpts = append(jobOpts, compliance.WithLocker(redis.Locker("wires:lock:"), cfg.DoddFrank.LockTTL))
		} else {
			log.Warn("REDIS_URL not set, dodd-frank job runs without a distributed lock")
		}
		job, err := compliance.NewJob(wires, dispatcher, jobOpts...)
		if err != nil {
			return err
		}
		sched, err := compliance.NewScheduler(job, cfg.DoddFrank.Schedule, zone, log)
		if err != nil {
			return err
		}
		g.Go(func() error {
			log.InfoContext(gctx, "dodd-frank scheduler started",
				"schedule", cfg.DoddFrank.Schedule,
				"zone", cfg.DoddFrank.Zone,
				"next", sched.Next(time.Now()),
			)
			return sched.Run(gctx)
		})
	}

	g.Go(func() error {
		log.InfoContext(gctx, "ops server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg config.PostgresConfig, log *slog.Logger) (store.Store, *sql.DB, error) {
	if cfg.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory wire store")
		return store.NewInMemory(), nil, nil
	}
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	pg := store.NewPostgres(db)
	if err := pg.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return pg, db, nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
