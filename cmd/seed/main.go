package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"

	"seacert/internal/audit"
	"seacert/internal/certification"
	"seacert/internal/events"
	"seacert/internal/jwttoken"
	"seacert/internal/lloyds"
	"seacert/internal/platform/config"
	"seacert/internal/platform/logger"
	"seacert/internal/seeder"
	"seacert/internal/shipment/store"
	txcontext "seacert/pkg/platform/tx"
)

// Seeds demo shipments into the configured database. Always talks to the LR
// adapter in mock mode so seeding never reaches the live service.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seacert-seed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("SEACERT_DATABASE_URL is required; seeding an in-memory store has no effect")
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
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

	recorder := audit.NewRecorder(audit.NewPostgresStore(db), log)
	tokens := jwttoken.NewService(cfg.JWTSigningKey, "seacert")
	svc := certification.New(store.NewPostgresStore(db), recorder, events.NewBus(log), &lloyds.MockClient{},
		certification.WithLogger(log),
		certification.WithTransactor(txcontext.NewSQLTransactor(db)),
		certification.WithSigner(tokens),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := seeder.New(svc, log).Run(ctx); err != nil {
		return err
	}
	log.Info("seed complete")
	return nil
}
