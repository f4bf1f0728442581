package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Dan9191/spending-insights/internal/models"
	"github.com/shopspring/decimal"
)

// MemoryStore keeps transactions in process memory.
// Committed records are never mutated, so readers share the slice without copying.
type MemoryStore struct {
	mu      sync.RWMutex
	writeMu sync.Mutex
	records []models.Transaction
	nextID  int64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// InsertBatch validates the whole batch before publishing any of it
func (m *MemoryStore) InsertBatch(ctx context.Context, records []models.Transaction) ([]models.Transaction, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	id := m.nextID
	current := m.records
	m.mu.RUnlock()

	inserted := make([]models.Transaction, len(records))
	for i, rec := range records {
		if err := validate(rec); err != nil {
			return nil, err
		}
		rec.ID = id
		id++
		inserted[i] = rec
	}

	next := make([]models.Transaction, 0, len(current)+len(inserted))
	next = append(next, current...)
	next = append(next, inserted...)

	m.mu.Lock()
	m.records = next
	m.nextID = id
	m.mu.Unlock()

	return inserted, nil
}

// View runs fn over the records committed at call time
func (m *MemoryStore) View(ctx context.Context, fn func(Reader) error) error {
	m.mu.RLock()
	snapshot := m.records
	m.mu.RUnlock()
	return fn(memoryReader{records: snapshot})
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

type memoryReader struct {
	records []models.Transaction
}

func (r memoryReader) Count(ctx context.Context) (int64, error) {
	return int64(len(r.records)), nil
}

func (r memoryReader) Sum(ctx context.Context, sign models.Sign) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, rec := range r.records {
		if (sign == models.Positive && rec.Amount.IsPositive()) || (sign == models.Negative && rec.Amount.IsNegative()) {
			total = total.Add(rec.Amount)
		}
	}
	return total, nil
}

func (r memoryReader) DateRange(ctx context.Context) (models.DateRange, error) {
	var dr models.DateRange
	if len(r.records) == 0 {
		return dr, nil
	}
	minDate, maxDate := r.records[0].Date, r.records[0].Date
	for _, rec := range r.records[1:] {
		if rec.Date < minDate {
			minDate = rec.Date
		}
		if rec.Date > maxDate {
			maxDate = rec.Date
		}
	}
	dr.MinDate, dr.MaxDate = &minDate, &maxDate
	return dr, nil
}

func (r memoryReader) GroupByDescription(ctx context.Context) ([]models.DescriptionTotal, error) {
	index := make(map[string]int)
	var out []models.DescriptionTotal
	for _, rec := range r.records {
		i, ok := index[rec.Description]
		if !ok {
			i = len(out)
			index[rec.Description] = i
			out = append(out, models.DescriptionTotal{Description: rec.Description})
		}
		out[i].Total = out[i].Total.Add(rec.Amount)
	}
	return out, nil
}

func (r memoryReader) GroupByCategory(ctx context.Context) ([]models.CategoryTotal, error) {
	index := make(map[string]int)
	var out []models.CategoryTotal
	for _, rec := range r.records {
		i, ok := index[rec.Category]
		if !ok {
			i = len(out)
			index[rec.Category] = i
			out = append(out, models.CategoryTotal{Category: rec.Category})
		}
		switch {
		case rec.Amount.IsNegative():
			out[i].Spending = out[i].Spending.Add(rec.Amount.Neg())
		case rec.Amount.IsPositive():
			out[i].Income = out[i].Income.Add(rec.Amount)
		}
	}
	return out, nil
}

func (r memoryReader) Query(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	search := strings.ToLower(filter.Search)
	var matched []models.Transaction
	for _, rec := range r.records {
		if search != "" &&
			!strings.Contains(strings.ToLower(rec.Description), search) &&
			!strings.Contains(strings.ToLower(rec.Category), search) {
			continue
		}
		matched = append(matched, rec)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Date != matched[j].Date {
			return matched[i].Date > matched[j].Date
		}
		return matched[i].ID > matched[j].ID
	})

	offset := max(filter.Offset, 0)
	if offset >= len(matched) {
		return []models.Transaction{}, nil
	}
	matched = matched[offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r memoryReader) SpendingByCategory(ctx context.Context) (map[string][]models.Spending, error) {
	out := make(map[string][]models.Spending)
	for _, rec := range r.records {
		if !rec.Amount.IsNegative() {
			continue
		}
		out[rec.Category] = append(out[rec.Category], models.Spending{
			ID:          rec.ID,
			Date:        rec.Date,
			Description: rec.Description,
			Category:    rec.Category,
			Amount:      rec.Amount.Neg(),
		})
	}
	return out, nil
}

// Ensure MemoryStore implements Store interface.
var _ Store = (*MemoryStore)(nil)
