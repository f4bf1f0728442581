package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/Dan9191/spending-insights/internal/models"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS transactions (
	id BIGSERIAL PRIMARY KEY,
	date TEXT NOT NULL CHECK (date <> ''),
	description TEXT NOT NULL CHECK (btrim(description) <> ''),
	amount NUMERIC NOT NULL,
	category TEXT NOT NULL CHECK (btrim(category) <> '')
);
CREATE INDEX IF NOT EXISTS idx_transactions_date_id ON transactions (date DESC, id DESC);`

// PostgresStore provides transaction storage in PostgreSQL
type PostgresStore struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// NewPostgresStore connects to the database and creates the schema
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return NewPostgresStoreFromDB(db), nil
}

// NewPostgresStoreFromDB wraps an open database whose schema is already in place
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// InsertBatch inserts the records inside one transaction and rolls back on the first failure
func (s *PostgresStore) InsertBatch(ctx context.Context, records []models.Transaction) (inserted []models.Transaction, err error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (date, description, amount, category)
		VALUES ($1, $2, $3, $4)
		RETURNING id`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted = make([]models.Transaction, 0, len(records))
	for _, rec := range records {
		if err = validate(rec); err != nil {
			return nil, err
		}
		if err = stmt.QueryRowContext(ctx, rec.Date, rec.Description, rec.Amount, rec.Category).Scan(&rec.ID); err != nil {
			return nil, fmt.Errorf("failed to insert transaction: %w", err)
		}
		inserted = append(inserted, rec)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, nil
}

// View runs fn inside a read-only repeatable-read transaction
func (s *PostgresStore) View(ctx context.Context, fn func(Reader) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback()
	return fn(postgresReader{tx: tx})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type postgresReader struct {
	tx *sql.Tx
}

func (r postgresReader) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

func (r postgresReader) Sum(ctx context.Context, sign models.Sign) (decimal.Decimal, error) {
	query := "SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE amount > 0"
	if sign == models.Negative {
		query = "SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE amount < 0"
	}
	var total decimal.Decimal
	if err := r.tx.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return total, nil
}

func (r postgresReader) DateRange(ctx context.Context) (models.DateRange, error) {
	var minDate, maxDate sql.NullString
	err := r.tx.QueryRowContext(ctx, "SELECT MIN(date), MAX(date) FROM transactions").Scan(&minDate, &maxDate)
	if err != nil {
		return models.DateRange{}, fmt.Errorf("failed to read date range: %w", err)
	}
	return dateRange(minDate, maxDate), nil
}

func (r postgresReader) GroupByDescription(ctx context.Context) ([]models.DescriptionTotal, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT description, SUM(amount)
		FROM transactions
		GROUP BY description
		ORDER BY MIN(id)`)
	if err != nil {
		return nil, fmt.Errorf("failed to group by description: %w", err)
	}
	defer rows.Close()

	var out []models.DescriptionTotal
	for rows.Next() {
		var dt models.DescriptionTotal
		if err := rows.Scan(&dt.Description, &dt.Total); err != nil {
			return nil, fmt.Errorf("failed to scan description total: %w", err)
		}
		out = append(out, dt)
	}
	return out, rows.Err()
}

func (r postgresReader) GroupByCategory(ctx context.Context) ([]models.CategoryTotal, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT category,
		       COALESCE(SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0)
		FROM transactions
		GROUP BY category
		ORDER BY MIN(id)`)
	if err != nil {
		return nil, fmt.Errorf("failed to group by category: %w", err)
	}
	defer rows.Close()

	var out []models.CategoryTotal
	for rows.Next() {
		var ct models.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Spending, &ct.Income); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

func (r postgresReader) Query(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	query := "SELECT id, date, description, amount, category FROM transactions"
	var args []interface{}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query += ` WHERE LOWER(description) LIKE $1 ESCAPE '\' OR LOWER(category) LIKE $1 ESCAPE '\'`
		args = append(args, p)
	}
	query += " ORDER BY date DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	out := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.Date, &t.Description, &t.Amount, &t.Category); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r postgresReader) SpendingByCategory(ctx context.Context) (map[string][]models.Spending, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT id, date, description, category, -amount
		FROM transactions
		WHERE amount < 0
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to read spending: %w", err)
	}
	defer rows.Close()

	var out []models.Spending
	for rows.Next() {
		var sp models.Spending
		if err := rows.Scan(&sp.ID, &sp.Date, &sp.Description, &sp.Category, &sp.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan spending: %w", err)
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groupSpending(out), nil
}

// Ensure PostgresStore implements Store interface.
var _ Store = (*PostgresStore)(nil)
