package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// OrphanDeleter removes unreferenced pending payments older than before.
type OrphanDeleter func(ctx context.Context, before time.Time) (int64, error)

// OrphansIn deletes orphans from db.
func OrphansIn(db *sqlx.DB) OrphanDeleter {
	return func(ctx context.Context, before time.Time) (int64, error) {
		return DeleteOrphans(ctx, db, before)
	}
}

// Sweeper periodically clears pending payments left behind when an
// enrollment request insert failed after its payment was stored.
type Sweeper struct {
	cron *cron.Cron
	log  logrus.FieldLogger
	age  time.Duration
	del  OrphanDeleter
	now  func() time.Time
}

func NewSweeper(log logrus.FieldLogger, schedule string, age time.Duration, del OrphanDeleter) (*Sweeper, error) {
	s := &Sweeper{
		cron: cron.New(),
		log:  log.WithField("job", "orphan-payment-sweep"),
		age:  age,
		del:  del,
		now:  time.Now,
	}

	if _, err := s.cron.AddFunc(schedule, func() { s.Sweep(context.Background()) }); err != nil {
		return nil, fmt.Errorf("scheduling orphan sweep %q: %w", schedule, err)
	}
	return s, nil
}

// Sweep runs one pass and returns the number of payments removed.
func (s *Sweeper) Sweep(ctx context.Context) int64 {
	before := s.now().UTC().Add(-s.age)

	n, err := s.del(ctx, before)
	if err != nil {
		s.log.WithError(err).Error("sweeping orphan payments")
		return 0
	}

	if n > 0 {
		s.log.WithFields(logrus.Fields{"deleted": n, "before": before}).Warn("removed orphan payments")
	}
	return n
}

func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for a running sweep, or ctx, to finish.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
