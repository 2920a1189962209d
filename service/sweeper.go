package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/emptyinbox/emptyinbox/ports"
)

// DefaultSweepInterval is how often expired rows are purged when no
// interval is configured.
const DefaultSweepInterval = 10 * time.Minute

// Sweeper periodically removes expired challenges and sessions. Expiry is
// already enforced at read time; sweeping only keeps the tables from
// accumulating dead rows.
type Sweeper struct {
	store    ports.Store
	logger   *slog.Logger
	interval time.Duration
}

// NewSweeper creates a sweeper with the given interval.
func NewSweeper(store ports.Store, logger *slog.Logger, interval time.Duration) *Sweeper {
	if interval == 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		store:    store,
		logger:   logger.With("component", "sweeper"),
		interval: interval,
	}
}

// Sweep removes all expired rows in one transaction and logs what it
// removed.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := time.Now()
	var challenges, passkeys, sessions int64
	err := s.store.WithinTx(ctx, func(tx ports.Tx) error {
		var err error
		if challenges, err = tx.DeleteExpiredChallenges(ctx, now); err != nil {
			return err
		}
		if passkeys, err = tx.DeleteExpiredPasskeyChallenges(ctx, now); err != nil {
			return err
		}
		sessions, err = tx.DeleteExpiredSessions(ctx, now)
		return err
	})
	if err != nil {
		return err
	}

	if challenges+passkeys+sessions > 0 {
		s.logger.Info("swept expired rows",
			"challenges", challenges, "passkey_challenges", passkeys, "sessions", sessions)
	}
	return nil
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("sweep failed", "error", err)
			}
		}
	}
}
