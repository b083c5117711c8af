package approval

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/wavefleet/wavefleet/internal/audit"
	"github.com/wavefleet/wavefleet/internal/observability/logger"
)

// Sweeper periodically rejects PENDING approval requests older than the TTL.
// A request nobody acted on within the window is treated as declined rather
// than left in limbo forever.
type Sweeper struct {
	repo        Repository
	auditLogger audit.Logger
	ttl         time.Duration
	cron        *cron.Cron
}

// NewSweeper creates an approval expiry sweeper.
func NewSweeper(repo Repository, auditLogger audit.Logger, ttl time.Duration) *Sweeper {
	return &Sweeper{
		repo:        repo,
		auditLogger: auditLogger,
		ttl:         ttl,
		cron:        cron.New(),
	}
}

// Start schedules the sweep. The schedule is a cron expression, e.g.
// "@every 15m".
func (s *Sweeper) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.SweepOnce(context.Background()); err != nil {
			slog.Error("approval expiry sweep failed",
				logger.Component("approval"),
				logger.Error(err),
			)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	slog.Info("approval expiry sweeper started",
		logger.Component("approval"),
		slog.Duration("ttl", s.ttl),
		slog.String("schedule", schedule),
	)
	return nil
}

// Stop halts the sweep schedule.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}

// SweepOnce rejects every PENDING request older than the TTL. Only PENDING
// rows are touched; resolved requests are terminal.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-s.ttl)
	expired, err := s.repo.ExpireOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if expired > 0 {
		slog.InfoContext(ctx, "expired stale approval requests",
			logger.Component("approval"),
			logger.RowsAffected(expired),
		)
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeApprovalExpired,
			Metadata: map[string]any{"expired": expired, "cutoff": cutoff},
		})
	}
	return nil
}
