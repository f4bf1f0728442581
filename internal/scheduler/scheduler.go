package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs background jobs on cron specs.
type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Logger
}

// New creates a scheduler that evaluates specs in loc. Specs use the standard
// five-field format and also accept descriptors such as @daily or @every 1h.
func New(loc *time.Location, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		log: log,
	}
}

// Schedule registers job under name. A panicking job is logged and the schedule keeps running.
func (s *Scheduler) Schedule(name, spec string, job func()) (cron.EntryID, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, fmt.Errorf("empty schedule for job %s", name)
	}
	id, err := s.cron.AddFunc(spec, func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.WithFields(logrus.Fields{"job": name, "panic": r}).Error("Scheduled job panicked")
			}
		}()
		start := time.Now()
		job()
		s.log.WithFields(logrus.Fields{"job": name, "duration": time.Since(start).String()}).Debug("Scheduled job finished")
	})
	if err != nil {
		return 0, fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}
	s.log.WithFields(logrus.Fields{"job": name, "schedule": spec}).Info("Job scheduled")
	return id, nil
}

// Next reports when the entry runs next. The zero time means it is not scheduled.
func (s *Scheduler) Next(id cron.EntryID) time.Time {
	return s.cron.Entry(id).Next
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
