package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"seacert/pkg/domain"
	dErrors "seacert/pkg/domain-errors"
	txcontext "seacert/pkg/platform/tx"
	"seacert/pkg/requestcontext"
)

// PostgresStore persists the audit log in a table with a unique constraint on
// (shipment_id, seq) and no UPDATE or DELETE grants. Appends join the
// caller's transaction when one is carried in the context, so an entry is
// only visible if the mutation it records committed.
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

func (s *PostgresStore) Append(ctx context.Context, entry Entry) (Entry, error) {
	if entry.ShipmentID.IsNil() {
		return Entry{}, dErrors.New(dErrors.CodeBadRequest, "audit entry requires a shipment id")
	}
	if !entry.ID.IsNil() {
		return Entry{}, dErrors.New(dErrors.CodeImmutableAuditLog,
			"audit entries are immutable once written")
	}
	conn := s.conn(ctx)

	var (
		lastSeq  sql.NullInt64
		lastHash sql.NullString
	)
	err := conn.QueryRowContext(ctx, `
		SELECT seq, hash FROM audit_log
		WHERE shipment_id = $1
		ORDER BY seq DESC LIMIT 1
		FOR UPDATE`, entry.ShipmentID.String(),
	).Scan(&lastSeq, &lastHash)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("read audit chain head: %w", err)
	}

	entry.ID = domain.AuditEntryID(uuid.New())
	entry.Seq = lastSeq.Int64 + 1
	entry.PrevHash = lastHash.String
	entry.Immutable = true
	if entry.Timestamp.IsZero() {
		entry.Timestamp = requestcontext.Now(ctx)
	}
	// TIMESTAMPTZ stores microseconds; hash what will actually be read back
	// or VerifyChain breaks after a reload.
	entry.Timestamp = entry.Timestamp.Truncate(time.Microsecond)
	entry.Hash = ChainHash(entry.PrevHash, entry)

	_, err = conn.ExecContext(ctx, `
		INSERT INTO audit_log (
			id, shipment_id, seq, action, occurred_at,
			actor_id, actor_name, description,
			related_type, related_id, ip_address, user_agent,
			prev_hash, hash
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		entry.ID.String(), entry.ShipmentID.String(), entry.Seq,
		string(entry.Action), entry.Timestamp,
		entry.ActorID, entry.ActorName, entry.Description,
		entry.RelatedType, entry.RelatedID, entry.IPAddress, entry.UserAgent,
		entry.PrevHash, entry.Hash,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return Entry{}, dErrors.New(dErrors.CodeConflict,
				"concurrent append to the same audit chain; retry on a fresh snapshot")
		}
		return Entry{}, fmt.Errorf("append audit entry: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Entry, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT id, shipment_id, seq, action, occurred_at,
		       actor_id, actor_name, description,
		       related_type, related_id, ip_address, user_agent,
		       prev_hash, hash
		FROM audit_log WHERE 1=1`)
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.ShipmentID.IsNil() {
		fmt.Fprintf(&query, " AND shipment_id = %s", arg(filter.ShipmentID.String()))
	}
	if len(filter.Actions) > 0 {
		actions := make([]string, len(filter.Actions))
		for i, a := range filter.Actions {
			actions[i] = string(a)
		}
		fmt.Fprintf(&query, " AND action = ANY(%s)", arg(pq.Array(actions)))
	}
	if !filter.From.IsZero() {
		fmt.Fprintf(&query, " AND occurred_at >= %s", arg(filter.From))
	}
	if !filter.To.IsZero() {
		fmt.Fprintf(&query, " AND occurred_at <= %s", arg(filter.To))
	}
	query.WriteString(" ORDER BY occurred_at, seq")
	if filter.Limit > 0 {
		fmt.Fprintf(&query, " LIMIT %s", arg(filter.Limit))
	}

	rows, err := s.conn(ctx).QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			rawID      string
			rawShipID  string
			rawAction  string
		)
		if err := rows.Scan(
			&rawID, &rawShipID, &e.Seq, &rawAction, &e.Timestamp,
			&e.ActorID, &e.ActorName, &e.Description,
			&e.RelatedType, &e.RelatedID, &e.IPAddress, &e.UserAgent,
			&e.PrevHash, &e.Hash,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entryID, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse audit entry id: %w", err)
		}
		shipID, err := uuid.Parse(rawShipID)
		if err != nil {
			return nil, fmt.Errorf("parse audit shipment id: %w", err)
		}
		e.ID = domain.AuditEntryID(entryID)
		e.ShipmentID = domain.ShipmentID(shipID)
		e.Action = ActionType(rawAction)
		e.Immutable = true
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) VerifyChain(ctx context.Context, shipmentID domain.ShipmentID) error {
	entries, err := s.List(ctx, Filter{ShipmentID: shipmentID})
	if err != nil {
		return err
	}
	prev := ""
	for _, e := range entries {
		if e.PrevHash != prev {
			return dErrors.Newf(dErrors.CodeImmutableAuditLog,
				"audit chain broken at seq %d: prev hash mismatch", e.Seq)
		}
		if ChainHash(prev, e) != e.Hash {
			return dErrors.Newf(dErrors.CodeImmutableAuditLog,
				"audit chain broken at seq %d: entry hash mismatch", e.Seq)
		}
		prev = e.Hash
	}
	return nil
}

// Schema is the DDL for the audit table. The application role receives INSERT
// and SELECT only; immutability is enforced at the grant level as well as in
// code.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id           UUID PRIMARY KEY,
	shipment_id  UUID NOT NULL,
	seq          BIGINT NOT NULL,
	action       TEXT NOT NULL,
	occurred_at  TIMESTAMPTZ NOT NULL,
	actor_id     TEXT NOT NULL DEFAULT '',
	actor_name   TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	related_type TEXT NOT NULL DEFAULT '',
	related_id   TEXT NOT NULL DEFAULT '',
	ip_address   TEXT NOT NULL DEFAULT '',
	user_agent   TEXT NOT NULL DEFAULT '',
	prev_hash    TEXT NOT NULL DEFAULT '',
	hash         TEXT NOT NULL,
	UNIQUE (shipment_id, seq)
);
CREATE INDEX IF NOT EXISTS audit_log_shipment_time ON audit_log (shipment_id, occurred_at);
`
