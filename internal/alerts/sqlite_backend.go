package alerts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	metaNextID = "next_id"
)

var alertColumns = []string{
	"id", "position", "state", "candidate_id",
	"source_title", "candidate_title", "source_link", "candidate_link",
	"similarity", "profit_margin",
	"source_price", "source_currency",
	"candidate_price", "candidate_currency",
	"shipping_cost", "shipping_currency",
	"sold_date", "thumbnail_url",
	"created_at", "updated_at",
}

// SQLiteBackend stores the collection in a SQLite database. Each Save
// replaces the table contents inside one transaction.
type SQLiteBackend struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (and if needed creates) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteBackend{db: db, path: path}, nil
}

// Path returns the database path.
func (b *SQLiteBackend) Path() string { return b.path }

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Load reads every alert in insertion order.
func (b *SQLiteBackend) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := retryOnBusy(ctx, func() error {
		var loadErr error
		snap, loadErr = b.load(ctx)
		return loadErr
	})
	if err != nil {
		return Snapshot{}, err
	}
	return sanitizeSnapshot(snap)
}

func (b *SQLiteBackend) load(ctx context.Context) (Snapshot, error) {
	query, args, err := sq.Select(alertColumns...).From("alerts").OrderBy("position", "id").ToSql()
	if err != nil {
		return Snapshot{}, fmt.Errorf("build select: %w", err)
	}
	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Snapshot{}, fmt.Errorf("select alerts: %w", err)
	}
	defer rows.Close()

	var snap Snapshot
	for rows.Next() {
		item, err := scanAlert(rows)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Alerts = append(snap.Alerts, item)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterate alerts: %w", err)
	}

	metaQuery, metaArgs, err := sq.Select("value").From("store_meta").Where(sq.Eq{"key": metaNextID}).ToSql()
	if err != nil {
		return Snapshot{}, fmt.Errorf("build meta select: %w", err)
	}
	var next sql.NullInt64
	if err := b.db.QueryRowContext(ctx, metaQuery, metaArgs...).Scan(&next); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("read next id: %w", err)
	}
	snap.NextID = next.Int64
	return snap, nil
}

func scanAlert(scanner interface{ Scan(dest ...any) error }) (Alert, error) {
	var (
		item              Alert
		position          int64
		state             string
		candidateID       sql.NullString
		sourceCurrency    sql.NullString
		candidateCurrency sql.NullString
		shippingCurrency  sql.NullString
		soldDate          sql.NullString
		thumbnail         sql.NullString
		createdRaw        string
		updatedRaw        string
	)
	if err := scanner.Scan(
		&item.ID,
		&position,
		&state,
		&candidateID,
		&item.SourceTitle,
		&item.CandidateTitle,
		&item.SourceLink,
		&item.CandidateLink,
		&item.Similarity,
		&item.ProfitMargin,
		&item.SourcePrice.Amount,
		&sourceCurrency,
		&item.CandidatePrice.Amount,
		&candidateCurrency,
		&item.ShippingCost.Amount,
		&shippingCurrency,
		&soldDate,
		&thumbnail,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return Alert{}, fmt.Errorf("scan alert: %w", err)
	}
	item.State = State(state)
	item.CandidateID = candidateID.String
	item.SourcePrice.Currency = sourceCurrency.String
	item.CandidatePrice.Currency = candidateCurrency.String
	item.ShippingCost.Currency = shippingCurrency.String
	item.SoldDate = soldDate.String
	item.ThumbnailURL = thumbnail.String

	var err error
	if item.CreatedAt, err = parseTime(createdRaw); err != nil {
		return Alert{}, fmt.Errorf("alert %d created_at: %w", item.ID, err)
	}
	if item.UpdatedAt, err = parseTime(updatedRaw); err != nil {
		return Alert{}, fmt.Errorf("alert %d updated_at: %w", item.ID, err)
	}
	return item, nil
}

func nullable(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

// Save replaces the stored collection in a single transaction.
func (b *SQLiteBackend) Save(ctx context.Context, snap Snapshot) error {
	return retryOnBusy(ctx, func() error {
		return b.save(ctx, snap)
	})
}

func (b *SQLiteBackend) save(ctx context.Context, snap Snapshot) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM alerts"); err != nil {
		return fmt.Errorf("clear alerts: %w", err)
	}

	for i, item := range snap.Alerts {
		query, args, err := sq.Insert("alerts").Columns(alertColumns...).Values(
			item.ID,
			i,
			string(item.State),
			nullable(item.CandidateID),
			item.SourceTitle,
			item.CandidateTitle,
			item.SourceLink,
			item.CandidateLink,
			item.Similarity,
			item.ProfitMargin,
			item.SourcePrice.Amount,
			nullable(item.SourcePrice.Currency),
			item.CandidatePrice.Amount,
			nullable(item.CandidatePrice.Currency),
			item.ShippingCost.Amount,
			nullable(item.ShippingCost.Currency),
			nullable(item.SoldDate),
			nullable(item.ThumbnailURL),
			formatTime(item.CreatedAt),
			formatTime(item.UpdatedAt),
		).ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert alert %d: %w", item.ID, err)
		}
	}

	metaQuery, metaArgs, err := sq.Insert("store_meta").
		Columns("key", "value").
		Values(metaNextID, snap.NextID).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value").
		ToSql()
	if err != nil {
		return fmt.Errorf("build meta upsert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, metaQuery, metaArgs...); err != nil {
		return fmt.Errorf("write next id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
