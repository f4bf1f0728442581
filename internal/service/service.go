package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/Dan9191/spending-insights/internal/models"
	"github.com/Dan9191/spending-insights/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultZThreshold is used when the caller supplies no usable threshold
	DefaultZThreshold = 2.5
	DefaultLimit      = 50
	MaxLimit          = 200
	topMerchants      = 5
	maxAnomalies      = 50
)

// Analytics answers read-only questions about stored transactions
type Analytics struct {
	store repository.Store
	log   *logrus.Logger
}

// NewAnalytics initializes a new analytics engine
func NewAnalytics(store repository.Store, log *logrus.Logger) *Analytics {
	return &Analytics{store: store, log: log}
}

// Summary returns counts, totals and the largest merchants from one snapshot
func (a *Analytics) Summary(ctx context.Context) (*models.Summary, error) {
	summary := &models.Summary{TopMerchants: []models.Merchant{}}
	err := a.store.View(ctx, func(r repository.Reader) error {
		var err error
		if summary.Count, err = r.Count(ctx); err != nil {
			return err
		}
		if summary.DateRange, err = r.DateRange(ctx); err != nil {
			return err
		}

		income, err := r.Sum(ctx, models.Positive)
		if err != nil {
			return err
		}
		spend, err := r.Sum(ctx, models.Negative)
		if err != nil {
			return err
		}
		summary.Totals = models.Totals{
			Income:   round2(income),
			Spending: round2(spend.Abs()),
			Net:      round2(income.Add(spend)),
		}

		byDesc, err := r.GroupByDescription(ctx)
		if err != nil {
			return err
		}
		summary.TopMerchants = rankMerchants(byDesc, topMerchants)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build summary: %w", err)
	}
	return summary, nil
}

// Categories returns spending and income per category, largest spending first
func (a *Analytics) Categories(ctx context.Context) ([]models.CategoryBreakdown, error) {
	var totals []models.CategoryTotal
	err := a.store.View(ctx, func(r repository.Reader) error {
		var err error
		totals, err = r.GroupByCategory(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build categories: %w", err)
	}

	out := make([]models.CategoryBreakdown, len(totals))
	for i, ct := range totals {
		out[i] = models.CategoryBreakdown{
			Category: ct.Category,
			Spending: round2(ct.Spending),
			Income:   round2(ct.Income),
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Spending > out[j].Spending })
	return out, nil
}

// Anomalies returns spending records whose z-score within their category reaches threshold
func (a *Analytics) Anomalies(ctx context.Context, threshold float64) ([]models.Anomaly, error) {
	var spending map[string][]models.Spending
	err := a.store.View(ctx, func(r repository.Reader) error {
		var err error
		spending, err = r.SpendingByCategory(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load spending: %w", err)
	}
	anomalies := detectAnomalies(spending, threshold, maxAnomalies)
	a.log.WithFields(logrus.Fields{"threshold": threshold, "found": len(anomalies)}).Debug("Anomalies computed")
	return anomalies, nil
}

// Transactions returns one page of transactions, newest first
func (a *Analytics) Transactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	filter = ClampFilter(filter)
	var items []models.Transaction
	err := a.store.View(ctx, func(r repository.Reader) error {
		var err error
		items, err = r.Query(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	if items == nil {
		items = []models.Transaction{}
	}
	return items, nil
}

// Export returns up to max transactions matching search in listing order, read from one snapshot
func (a *Analytics) Export(ctx context.Context, search string, max int) ([]models.Transaction, error) {
	var items []models.Transaction
	err := a.store.View(ctx, func(r repository.Reader) error {
		var err error
		items, err = r.Query(ctx, models.TransactionFilter{Search: search, Limit: max})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to export transactions: %w", err)
	}
	return items, nil
}

// ClampFilter bounds limit to [1, MaxLimit] and offset to >= 0
func ClampFilter(f models.TransactionFilter) models.TransactionFilter {
	if f.Limit < 1 {
		f.Limit = 1
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// rankMerchants orders descriptions by absolute rounded total, keeping store order on ties
func rankMerchants(totals []models.DescriptionTotal, n int) []models.Merchant {
	merchants := make([]models.Merchant, len(totals))
	for i, dt := range totals {
		merchants[i] = models.Merchant{Description: dt.Description, Total: round2(dt.Total)}
	}
	sort.SliceStable(merchants, func(i, j int) bool { return math.Abs(merchants[i].Total) > math.Abs(merchants[j].Total) })
	if len(merchants) > n {
		merchants = merchants[:n]
	}
	return merchants
}

// round2 rounds half away from zero at the second decimal
func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
