package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dan9191/spending-insights/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ErrInvalidRecord is returned when a batch contains a record that breaks the stored-record invariants
var ErrInvalidRecord = errors.New("invalid transaction record")

// Store is an append-only collection of transactions
type Store interface {
	// InsertBatch writes all records or none of them and returns them with their assigned ids
	InsertBatch(ctx context.Context, records []models.Transaction) ([]models.Transaction, error)
	// View runs fn against a snapshot that contains only fully committed batches
	View(ctx context.Context, fn func(Reader) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Reader provides read queries over a store snapshot
type Reader interface {
	Count(ctx context.Context) (int64, error)
	Sum(ctx context.Context, sign models.Sign) (decimal.Decimal, error)
	DateRange(ctx context.Context) (models.DateRange, error)
	// GroupByDescription returns signed totals in order of first appearance
	GroupByDescription(ctx context.Context) ([]models.DescriptionTotal, error)
	// GroupByCategory returns totals in order of first appearance
	GroupByCategory(ctx context.Context) ([]models.CategoryTotal, error)
	// Query returns a page ordered by date desc, then id desc
	Query(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error)
	// SpendingByCategory returns debit records as positive magnitudes, grouped by category in id order
	SpendingByCategory(ctx context.Context) (map[string][]models.Spending, error)
}

// Open creates the store selected by driver
func Open(driver, dsn string, log *logrus.Logger) (Store, error) {
	switch strings.ToLower(driver) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(dsn, log)
	case "postgres":
		return NewPostgresStore(dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func validate(rec models.Transaction) error {
	switch {
	case rec.Date == "":
		return fmt.Errorf("%w: missing date", ErrInvalidRecord)
	case strings.TrimSpace(rec.Description) == "":
		return fmt.Errorf("%w: missing description", ErrInvalidRecord)
	case strings.TrimSpace(rec.Category) == "":
		return fmt.Errorf("%w: missing category", ErrInvalidRecord)
	}
	return nil
}

// likePattern escapes LIKE wildcards so search is a plain substring match
func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(search)) + "%"
}
