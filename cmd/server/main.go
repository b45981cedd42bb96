package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"seacert/internal/audit"
	"seacert/internal/certification"
	"seacert/internal/compliance"
	"seacert/internal/events"
	"seacert/internal/events/kafka"
	"seacert/internal/jwttoken"
	"seacert/internal/lloyds"
	"seacert/internal/platform/config"
	"seacert/internal/platform/httpserver"
	"seacert/internal/platform/logger"
	"seacert/internal/platform/metrics"
	"seacert/internal/platform/redis"
	"seacert/internal/shipment/store"
	httptransport "seacert/internal/transport/http"
	txcontext "seacert/pkg/platform/tx"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal services packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seacert: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	var (
		db         *sql.DB
		auditStore audit.Store
		shipments  store.Store
		transactor txcontext.Transactor
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		if _, err := db.Exec(store.Schema); err != nil {
			return fmt.Errorf("apply shipments schema: %w", err)
		}
		if _, err := db.Exec(audit.Schema); err != nil {
			return fmt.Errorf("apply audit schema: %w", err)
		}
		auditStore = audit.NewPostgresStore(db)
		shipments = store.NewPostgresStore(db)
		transactor = txcontext.NewSQLTransactor(db)
		log.Info("using postgres storage")
	} else {
		auditStore = audit.NewInMemoryStore()
		shipments = store.NewMemoryStore()
		transactor = txcontext.NopTransactor{}
		log.Warn("no database configured, state is held in memory")
	}

	redisClient, err := redis.Connect(context.Background(), cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	var lrCache lloyds.StatusCache = lloyds.NewMemoryCache()
	if redisClient != nil {
		defer redisClient.Close()
		lrCache = lloyds.NewRedisCache(redisClient)
		log.Info("using redis for the LR cache")
	}

	var lrClient lloyds.Client
	if cfg.Lloyds.MockMode() {
		lrClient = &lloyds.MockClient{}
		log.Warn("LR credentials absent, adapter running in mock mode")
	} else {
		lrClient = lloyds.NewHTTPClient(cfg.Lloyds)
	}

	bus := events.NewBus(log)
	var publisher *kafka.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err = kafka.New(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		publisher.Attach(bus)
		log.Info("publishing shipment events to kafka", "topic", cfg.KafkaTopic)
	}

	tokens := jwttoken.NewService(cfg.JWTSigningKey, "seacert")
	recorder := audit.NewRecorder(auditStore, log)

	svc := certification.New(shipments, recorder, bus, lrClient,
		certification.WithLogger(log),
		certification.WithMetrics(m),
		certification.WithTransactor(transactor),
		certification.WithLloydsCache(lrCache),
		certification.WithSigner(tokens),
	)
	reporter := compliance.NewReporter(auditStore)
	ticker := certification.NewTicker(svc)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(fmt.Sprintf("@every %s", cfg.TickInterval), func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.TickInterval)
		defer cancel()
		if err := ticker.Sweep(ctx); err != nil {
			log.Error("deadline sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule deadline sweep: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	health := func(r *http.Request) error {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}

	handler := httptransport.NewHandler(svc, reporter, log)
	router := httptransport.NewRouter(handler, tokens, health)
	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting seacert", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	if publisher != nil {
		if err := publisher.Close(ctx); err != nil {
			log.Error("kafka close failed", "error", err)
		}
	}
	return nil
}
