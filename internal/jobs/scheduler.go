// Package jobs runs the service's periodic maintenance tasks.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// maxBackfillRounds caps how many batches one run processes.
const maxBackfillRounds = 50

type ReferralCodeBackfiller interface {
	BackfillReferralCodes(ctx context.Context, batch int) (int, error)
}

type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
}

func NewScheduler() *Scheduler {
	logger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelInfo))
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		timeout: 30 * time.Minute,
	}
}

// AddReferralBackfill schedules the referral-code backfill. spec uses the
// six-field format with seconds.
func (s *Scheduler) AddReferralBackfill(spec string, batch int, b ReferralCodeBackfiller) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		RunReferralBackfill(ctx, b, batch)
	})
	if err != nil {
		return fmt.Errorf("schedule referral backfill %q: %w", spec, err)
	}
	slog.Info("referral backfill scheduled", "schedule", spec, "batch", batch)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		slog.Warn("scheduler stop timed out")
	}
}

// RunReferralBackfill assigns codes batch by batch until a batch comes back
// short. It returns the total assigned.
func RunReferralBackfill(ctx context.Context, b ReferralCodeBackfiller, batch int) int {
	if batch < 1 {
		batch = 100
	}
	start := time.Now()
	total := 0
	for round := 0; round < maxBackfillRounds; round++ {
		n, err := b.BackfillReferralCodes(ctx, batch)
		total += n
		if err != nil {
			slog.ErrorContext(ctx, "referral backfill failed", "assigned", total, "error", err)
			return total
		}
		if n < batch {
			break
		}
	}
	slog.InfoContext(ctx, "referral backfill completed", "assigned", total, "took", time.Since(start).String())
	return total
}
