package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/spending-insights/internal/models"
	"github.com/sirupsen/logrus"
)

const subject = "Spending anomalies"

// AnomalySource computes anomalies at a threshold
type AnomalySource interface {
	Anomalies(ctx context.Context, threshold float64) ([]models.Anomaly, error)
}

// Mailer delivers a plain-text message
type Mailer interface {
	Send(subject, body string) error
}

// Job reports current spending anomalies. With a nil mailer the digest is only logged.
type Job struct {
	source    AnomalySource
	mailer    Mailer
	threshold float64
	timeout   time.Duration
	log       *logrus.Logger
}

func NewJob(source AnomalySource, mailer Mailer, threshold float64, log *logrus.Logger) *Job {
	return &Job{source: source, mailer: mailer, threshold: threshold, timeout: time.Minute, log: log}
}

// Run is the scheduler entry point
func (j *Job) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	if _, err := j.Send(ctx); err != nil {
		j.log.WithError(err).Error("Anomaly digest failed")
	}
}

// Send builds and delivers the digest, returning how many anomalies it reported
func (j *Job) Send(ctx context.Context) (int, error) {
	anomalies, err := j.source.Anomalies(ctx, j.threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to compute anomalies: %w", err)
	}
	if len(anomalies) == 0 {
		j.log.WithField("threshold", j.threshold).Info("No anomalies, digest skipped")
		return 0, nil
	}

	body := Format(anomalies, j.threshold)
	if j.mailer == nil {
		j.log.WithFields(logrus.Fields{
			"threshold": j.threshold,
			"anomalies": len(anomalies),
		}).Info("Anomaly digest\n" + body)
		return len(anomalies), nil
	}
	if err := j.mailer.Send(subject, body); err != nil {
		return 0, err
	}
	return len(anomalies), nil
}

// Format renders anomalies as one line each, in the order given
func Format(anomalies []models.Anomaly, threshold float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d transaction(s) at or above z = %.2f:\n\n", len(anomalies), threshold)
	for _, a := range anomalies {
		fmt.Fprintf(&b, "%s  %-30s %-15s %10.2f  z=%.2f\n", a.Date, a.Description, a.Category, a.Spending, a.ZScore)
	}
	return b.String()
}
