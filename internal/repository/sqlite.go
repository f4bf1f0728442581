package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/Dan9191/spending-insights/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date TEXT NOT NULL CHECK (date <> ''),
	description TEXT NOT NULL CHECK (trim(description) <> ''),
	amount NUMERIC NOT NULL,
	category TEXT NOT NULL CHECK (trim(category) <> '')
);
CREATE INDEX IF NOT EXISTS idx_transactions_date_id ON transactions (date DESC, id DESC);`

// transactionRow is the gorm mapping of the transactions table
type transactionRow struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	Date        string          `gorm:"not null"`
	Description string          `gorm:"not null"`
	Amount      decimal.Decimal `gorm:"type:numeric;not null"`
	Category    string          `gorm:"not null"`
}

func (transactionRow) TableName() string { return "transactions" }

func (r transactionRow) toModel() models.Transaction {
	return models.Transaction{ID: r.ID, Date: r.Date, Description: r.Description, Amount: r.Amount, Category: r.Category}
}

// SQLiteStore keeps transactions in SQLite through gorm.
// An empty DSN opens a private in-memory database that lives as long as the store.
type SQLiteStore struct {
	db      *gorm.DB
	writeMu sync.Mutex
}

// NewSQLiteStore opens the database and creates the schema
func NewSQLiteStore(dsn string, log *logrus.Logger) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = ":memory:"
	}

	dbLogger := logger.New(
		log,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes SQLite access.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := db.Exec(sqliteSchema).Error; err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// InsertBatch inserts the records inside one transaction and rolls back on the first failure
func (s *SQLiteStore) InsertBatch(ctx context.Context, records []models.Transaction) ([]models.Transaction, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	inserted := make([]models.Transaction, 0, len(records))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range records {
			if err := validate(rec); err != nil {
				return err
			}
			row := transactionRow{Date: rec.Date, Description: rec.Description, Amount: rec.Amount, Category: rec.Category}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to insert transaction: %w", err)
			}
			inserted = append(inserted, row.toModel())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

// View runs fn inside a read transaction
func (s *SQLiteStore) View(ctx context.Context, fn func(Reader) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(sqliteReader{tx: tx})
	})
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type sqliteReader struct {
	tx *gorm.DB
}

func (r sqliteReader) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.tx.WithContext(ctx).Model(&transactionRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

func (r sqliteReader) Sum(ctx context.Context, sign models.Sign) (decimal.Decimal, error) {
	query := "SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE amount > 0"
	if sign == models.Negative {
		query = "SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE amount < 0"
	}
	var total decimal.Decimal
	if err := r.tx.WithContext(ctx).Raw(query).Row().Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return total, nil
}

func (r sqliteReader) DateRange(ctx context.Context) (models.DateRange, error) {
	var minDate, maxDate sql.NullString
	err := r.tx.WithContext(ctx).Raw("SELECT MIN(date), MAX(date) FROM transactions").Row().Scan(&minDate, &maxDate)
	if err != nil {
		return models.DateRange{}, fmt.Errorf("failed to read date range: %w", err)
	}
	return dateRange(minDate, maxDate), nil
}

func (r sqliteReader) GroupByDescription(ctx context.Context) ([]models.DescriptionTotal, error) {
	var out []models.DescriptionTotal
	err := r.tx.WithContext(ctx).Raw(`
		SELECT description, SUM(amount) AS total
		FROM transactions
		GROUP BY description
		ORDER BY MIN(id)`).Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group by description: %w", err)
	}
	return out, nil
}

func (r sqliteReader) GroupByCategory(ctx context.Context) ([]models.CategoryTotal, error) {
	var out []models.CategoryTotal
	err := r.tx.WithContext(ctx).Raw(`
		SELECT category,
		       COALESCE(SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END), 0) AS spending,
		       COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0) AS income
		FROM transactions
		GROUP BY category
		ORDER BY MIN(id)`).Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group by category: %w", err)
	}
	return out, nil
}

func (r sqliteReader) Query(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	q := r.tx.WithContext(ctx).Model(&transactionRow{})
	if filter.Search != "" {
		p := likePattern(filter.Search)
		q = q.Where(`LOWER(description) LIKE ? ESCAPE '\' OR LOWER(category) LIKE ? ESCAPE '\'`, p, p)
	}
	q = q.Order("date DESC").Order("id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var rows []transactionRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	out := make([]models.Transaction, len(rows))
	for i, row := range rows {
		out[i] = row.toModel()
	}
	return out, nil
}

func (r sqliteReader) SpendingByCategory(ctx context.Context) (map[string][]models.Spending, error) {
	var rows []models.Spending
	err := r.tx.WithContext(ctx).Raw(`
		SELECT id, date, description, category, -amount AS amount
		FROM transactions
		WHERE amount < 0
		ORDER BY id`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read spending: %w", err)
	}
	return groupSpending(rows), nil
}

func dateRange(minDate, maxDate sql.NullString) models.DateRange {
	var dr models.DateRange
	if minDate.Valid {
		dr.MinDate = &minDate.String
	}
	if maxDate.Valid {
		dr.MaxDate = &maxDate.String
	}
	return dr
}

func groupSpending(rows []models.Spending) map[string][]models.Spending {
	out := make(map[string][]models.Spending)
	for _, row := range rows {
		out[row.Category] = append(out[row.Category], row)
	}
	return out
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
