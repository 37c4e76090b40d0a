// Package reconciliation keeps the record of payments the gateway confirmed
// but the order store never accepted.
//
// The ledger lives in a local SQLite file rather than the order database:
// it has to stay writable exactly when the order backend is unreachable.
package reconciliation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	// pure-Go driver, registered as "sqlite"
	_ "modernc.org/sqlite"

	"canteen/internal/domain"
	"canteen/internal/errors"
)

const timeLayout = time.RFC3339Nano

const schema = `
CREATE TABLE IF NOT EXISTS reconciliations (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id   TEXT NOT NULL,
    gateway_ref  TEXT NOT NULL,
    amount       TEXT NOT NULL,
    customer_id  TEXT,
    items        TEXT NOT NULL DEFAULT '[]',
    cause        TEXT NOT NULL DEFAULT '',
    created_at   TEXT NOT NULL,
    resolved_at  TEXT
);

CREATE INDEX IF NOT EXISTS idx_reconciliations_open ON reconciliations(resolved_at, created_at);
`

const columns = `id, session_id, gateway_ref, amount, customer_id, items, cause, created_at, resolved_at`

type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the ledger database at path and applies the schema.
func Open(path string) (*Ledger, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening ledger %q: %w", path, err)
	}

	// one writer; SQLite serialises writes anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying ledger schema: %w", err)
	}

	return &Ledger{db: db, now: time.Now}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record appends a reconciliation entry and returns its id.
func (l *Ledger) Record(ctx context.Context, rec domain.Reconciliation) (int64, error) {
	items, err := domain.EncodeItems(rec.Items)
	if err != nil {
		return 0, fmt.Errorf("encoding reconciliation items: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = l.now()
	}

	const q = `
		INSERT INTO reconciliations
			(session_id, gateway_ref, amount, customer_id, items, cause, created_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?)`

	result, err := l.db.ExecContext(ctx, q,
		rec.SessionID,
		rec.GatewayRef,
		rec.Amount.StringFixed(2),
		rec.CustomerID,
		string(items),
		rec.Cause,
		createdAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("recording reconciliation for session %s: %w", rec.SessionID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}
	return id, nil
}

// ListUnresolved returns open entries, oldest first.
func (l *Ledger) ListUnresolved(ctx context.Context) ([]domain.Reconciliation, error) {
	q := `SELECT ` + columns + ` FROM reconciliations WHERE resolved_at IS NULL ORDER BY created_at, id`

	rows, err := l.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying reconciliations: %w", err)
	}
	defer rows.Close()

	out := []domain.Reconciliation{}
	for rows.Next() {
		rec, err := scanReconciliation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reconciliations: %w", err)
	}
	return out, nil
}

func (l *Ledger) Get(ctx context.Context, id int64) (*domain.Reconciliation, error) {
	q := `SELECT ` + columns + ` FROM reconciliations WHERE id = ?`

	rec, err := scanReconciliation(l.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewResourceNotFoundError(errors.ResourceReconciliation, fmt.Sprintf("reconciliation %d not found", id))
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Resolve marks an entry as settled. Resolving twice keeps the first
// resolution time.
func (l *Ledger) Resolve(ctx context.Context, id int64) (*domain.Reconciliation, error) {
	const q = `UPDATE reconciliations SET resolved_at = COALESCE(resolved_at, ?) WHERE id = ?`

	result, err := l.db.ExecContext(ctx, q, l.now().UTC().Format(timeLayout), id)
	if err != nil {
		return nil, fmt.Errorf("resolving reconciliation %d: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return nil, errors.NewResourceNotFoundError(errors.ResourceReconciliation, fmt.Sprintf("reconciliation %d not found", id))
	}

	return l.Get(ctx, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReconciliation(row rowScanner) (*domain.Reconciliation, error) {
	var (
		rec        domain.Reconciliation
		amount     string
		customerID sql.NullString
		items      string
		createdAt  string
		resolvedAt sql.NullString
	)

	err := row.Scan(&rec.ID, &rec.SessionID, &rec.GatewayRef, &amount, &customerID,
		&items, &rec.Cause, &createdAt, &resolvedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning reconciliation: %w", err)
	}

	if rec.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parsing amount of reconciliation %d: %w", rec.ID, err)
	}
	if customerID.Valid {
		id := customerID.String
		rec.CustomerID = &id
	}
	if rec.Items, err = domain.DecodeItems([]byte(items)); err != nil {
		return nil, fmt.Errorf("decoding items of reconciliation %d: %w", rec.ID, err)
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		t, err := parseTime(resolvedAt.String)
		if err != nil {
			return nil, err
		}
		rec.ResolvedAt = &t
	}

	return &rec, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing ledger time %q: %w", s, err)
	}
	return t, nil
}
