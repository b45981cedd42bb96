package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"seacert/internal/shipment"
	"seacert/pkg/domain"
	dErrors "seacert/pkg/domain-errors"
	txcontext "seacert/pkg/platform/tx"
	"seacert/pkg/requestcontext"
)

// PostgresStore keeps the aggregate as a JSONB document next to the columns
// that get filtered on. Updates are guarded by the version column; writes
// join the caller's transaction when one is in the context so shipment and
// audit rows commit together.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) queryer {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, sh *shipment.Shipment) error {
	now := requestcontext.Now(ctx)
	sh.Version = 1
	if sh.CreatedAt.IsZero() {
		sh.CreatedAt = now
	}
	sh.UpdatedAt = now

	doc, err := json.Marshal(sh)
	if err != nil {
		return fmt.Errorf("encode shipment: %w", err)
	}

	_, err = s.conn(ctx).ExecContext(ctx, `
		INSERT INTO shipments (
			id, tracking_number, status, risk_level, destination_country,
			version, created_at, updated_at, doc
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sh.ID.String(), sh.TrackingNumber, string(sh.Status),
		string(sh.Security.RiskLevel), sh.Route.DestinationCountry,
		sh.Version, sh.CreatedAt, sh.UpdatedAt, doc,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return dErrors.Newf(dErrors.CodeConflict, "shipment %s already exists", sh.TrackingNumber)
		}
		return fmt.Errorf("insert shipment: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.ShipmentID) (*shipment.Shipment, error) {
	return s.getOne(ctx, "id = $1", id.String())
}

func (s *PostgresStore) GetByTracking(ctx context.Context, trackingNumber string) (*shipment.Shipment, error) {
	return s.getOne(ctx, "tracking_number = $1", trackingNumber)
}

func (s *PostgresStore) getOne(ctx context.Context, where string, arg any) (*shipment.Shipment, error) {
	var (
		doc     []byte
		version int64
	)
	err := s.conn(ctx).QueryRowContext(ctx,
		"SELECT doc, version FROM shipments WHERE "+where, arg,
	).Scan(&doc, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "shipment %v not found", arg)
	}
	if err != nil {
		return nil, fmt.Errorf("select shipment: %w", err)
	}
	return decode(doc, version)
}

func (s *PostgresStore) Update(ctx context.Context, sh *shipment.Shipment) error {
	previousVersion := sh.Version
	sh.Version++
	sh.UpdatedAt = requestcontext.Now(ctx)

	doc, err := json.Marshal(sh)
	if err != nil {
		sh.Version = previousVersion
		return fmt.Errorf("encode shipment: %w", err)
	}

	result, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE shipments SET
			status = $1, risk_level = $2, destination_country = $3,
			version = $4, updated_at = $5, doc = $6
		WHERE id = $7 AND version = $8`,
		string(sh.Status), string(sh.Security.RiskLevel), sh.Route.DestinationCountry,
		sh.Version, sh.UpdatedAt, doc,
		sh.ID.String(), previousVersion,
	)
	if err != nil {
		sh.Version = previousVersion
		return fmt.Errorf("update shipment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		sh.Version = previousVersion
		return fmt.Errorf("update shipment: %w", err)
	}
	if affected == 0 {
		sh.Version = previousVersion
		var exists bool
		checkErr := s.conn(ctx).QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM shipments WHERE id = $1)", sh.ID.String(),
		).Scan(&exists)
		if checkErr == nil && !exists {
			return dErrors.Newf(dErrors.CodeNotFound, "shipment %s not found", sh.ID)
		}
		return dErrors.Newf(dErrors.CodeConflict,
			"shipment %s was modified concurrently (have version %d)", sh.ID, previousVersion)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*shipment.Shipment, error) {
	var query strings.Builder
	query.WriteString("SELECT doc, version FROM shipments WHERE 1=1")
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Status != "" {
		fmt.Fprintf(&query, " AND status = %s", arg(string(filter.Status)))
	}
	if filter.RiskLevel != "" {
		fmt.Fprintf(&query, " AND risk_level = %s", arg(string(filter.RiskLevel)))
	}
	if filter.DestinationCountry != "" {
		fmt.Fprintf(&query, " AND destination_country = %s", arg(filter.DestinationCountry))
	}
	query.WriteString(" ORDER BY created_at, tracking_number")
	if filter.Limit > 0 {
		fmt.Fprintf(&query, " LIMIT %s", arg(filter.Limit))
	}

	rows, err := s.conn(ctx).QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}
	defer rows.Close()

	var out []*shipment.Shipment
	for rows.Next() {
		var (
			doc     []byte
			version int64
		)
		if err := rows.Scan(&doc, &version); err != nil {
			return nil, fmt.Errorf("scan shipment: %w", err)
		}
		sh, err := decode(doc, version)
		if err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func decode(doc []byte, version int64) (*shipment.Shipment, error) {
	var sh shipment.Shipment
	if err := json.Unmarshal(doc, &sh); err != nil {
		return nil, fmt.Errorf("decode shipment: %w", err)
	}
	// The column is authoritative; the document copy can lag inside a tx.
	sh.Version = version
	return &sh, nil
}

// Schema is the DDL for the shipments table.
const Schema = `
CREATE TABLE IF NOT EXISTS shipments (
	id                  UUID PRIMARY KEY,
	tracking_number     TEXT NOT NULL UNIQUE,
	status              TEXT NOT NULL,
	risk_level          TEXT NOT NULL DEFAULT '',
	destination_country TEXT NOT NULL DEFAULT '',
	version             BIGINT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	doc                 JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS shipments_status_idx ON shipments (status);
CREATE INDEX IF NOT EXISTS shipments_destination_idx ON shipments (destination_country);
`
