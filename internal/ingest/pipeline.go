// Package ingest turns uploaded CSV files into stored transactions.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Dan9191/spending-insights/internal/models"
	"github.com/Dan9191/spending-insights/internal/normalize"
	"github.com/sirupsen/logrus"
)

// maxSampleRejects caps the rejected rows echoed back to the caller
const maxSampleRejects = 10

// ErrStoreWrite is returned when the accepted batch could not be written
var ErrStoreWrite = errors.New("failed to store transactions")

// descriptionKeys are tried in order; the first non-empty value wins
var descriptionKeys = []string{"description", "merchant", "name"}

// BatchWriter persists a batch of transactions atomically
type BatchWriter interface {
	InsertBatch(ctx context.Context, records []models.Transaction) ([]models.Transaction, error)
}

// Classifier derives a category from a description
type Classifier interface {
	Classify(description string) string
}

// Pipeline normalizes, classifies and stores CSV rows
type Pipeline struct {
	store      BatchWriter
	classifier Classifier
	log        *logrus.Logger
	mu         sync.Mutex
}

// NewPipeline initializes a new ingestion pipeline
func NewPipeline(store BatchWriter, classifier Classifier, log *logrus.Logger) *Pipeline {
	return &Pipeline{store: store, classifier: classifier, log: log}
}

// Ingest parses data and stores every valid row in a single batch.
// A *ParseError means nothing was processed. Rejected rows never fail the call.
func (p *Pipeline) Ingest(ctx context.Context, data []byte) (models.IngestResult, error) {
	result := models.IngestResult{SampleRejects: []models.Reject{}}

	rows, err := parseCSV(data)
	if err != nil {
		return result, err
	}

	accepted := make([]models.Transaction, 0, len(rows))
	for _, row := range rows {
		txn, reason := p.normalizeRow(row)
		if reason != "" {
			result.Rejected++
			if len(result.SampleRejects) < maxSampleRejects {
				result.SampleRejects = append(result.SampleRejects, models.Reject{Row: row.raw, Reason: reason})
			}
			continue
		}
		accepted = append(accepted, txn)
	}

	if len(accepted) > 0 {
		p.mu.Lock()
		_, err := p.store.InsertBatch(ctx, accepted)
		p.mu.Unlock()
		if err != nil {
			p.log.WithError(err).WithField("rows", len(accepted)).Error("Batch insert rolled back")
			return models.IngestResult{}, fmt.Errorf("%w: %w", ErrStoreWrite, err)
		}
	}
	result.Inserted = len(accepted)

	p.log.WithFields(logrus.Fields{
		"inserted": result.Inserted,
		"rejected": result.Rejected,
	}).Info("CSV ingested")
	return result, nil
}

// normalizeRow returns the transaction for row, or a non-empty rejection reason
func (p *Pipeline) normalizeRow(row record) (models.Transaction, string) {
	var invalid []string

	date, err := normalize.Date(row.fields["date"])
	if err != nil {
		invalid = append(invalid, "date")
	}

	var description string
	for _, k := range descriptionKeys {
		if description = normalize.Text(row.fields[k]); description != "" {
			break
		}
	}
	if description == "" {
		invalid = append(invalid, "description")
	}

	amount, err := normalize.Amount(row.fields["amount"])
	if err != nil {
		invalid = append(invalid, "amount")
	}

	if len(invalid) > 0 {
		return models.Transaction{}, "Invalid " + strings.Join(invalid, "/")
	}

	category := normalize.Text(row.fields["category"])
	if category == "" {
		category = p.classifier.Classify(description)
	}

	return models.Transaction{
		Date:        date,
		Description: description,
		Amount:      amount,
		Category:    category,
	}, ""
}
