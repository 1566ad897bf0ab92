package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/loomsite/loomsite/internal/clock"
	"github.com/loomsite/loomsite/internal/tenantdomain/domain"
	"github.com/loomsite/loomsite/internal/tenantdomain/registrar"
	"github.com/loomsite/loomsite/internal/tenantdomain/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const sweepLockKey = "domains:sweep"

type Config struct {
	Interval time.Duration
	LockTTL  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 10 * time.Minute
	}
	return c
}

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	Repo      domain.Repository
	Registrar registrar.Registrar
	Lease     *service.VerifyLease `optional:"true"`
	Config    Config               `optional:"true"`
}

// Scheduler periodically re-checks verified domains against the registrar and
// flags the ones whose attachment has drifted, so a deleted DNS record or a
// revoked certificate surfaces without waiting for a tenant-initiated verify.
type Scheduler struct {
	log       *zap.Logger
	cfg       Config
	clock     clock.Clock
	repo      domain.Repository
	registrar registrar.Registrar
	lease     *service.VerifyLease
}

func New(p Params) *Scheduler {
	return &Scheduler{
		log:       p.Log.Named("scheduler"),
		cfg:       p.Config.withDefaults(),
		clock:     p.Clock,
		repo:      p.Repo,
		registrar: p.Registrar,
		lease:     p.Lease,
	}
}

// SweepOnce runs one pass over ready domains. Returns how many were flagged.
func (s *Scheduler) SweepOnce(ctx context.Context) (int, error) {
	token, acquired, err := s.lease.TryAcquire(ctx, sweepLockKey, s.cfg.LockTTL)
	if err != nil {
		s.log.Warn("sweep lock unavailable, running unserialized", zap.Error(err))
	} else if !acquired {
		return 0, nil
	}
	defer func() {
		_ = s.lease.Release(ctx, sweepLockKey, token)
	}()

	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	flagged := 0
	for _, record := range records {
		if record.Status != domain.StatusReady {
			continue
		}

		status, err := s.registrar.Status(ctx, record.Domain)
		switch {
		case errors.Is(err, registrar.ErrRateLimited):
			// Back off for the rest of this pass.
			s.log.Info("registrar rate limited during sweep, stopping early",
				zap.String("domain", record.Domain))
			return flagged, nil
		case errors.Is(err, registrar.ErrNotAttached):
			// fallthrough to flagging below
		case err != nil:
			s.log.Warn("registrar status check failed during sweep",
				zap.String("domain", record.Domain), zap.Error(err))
			continue
		case status.Configured:
			continue
		}

		if err := s.repo.UpdateStatus(ctx, record.TenantID, record.Domain, domain.StatusFailed); err != nil {
			s.log.Error("failed to flag drifted domain",
				zap.String("domain", record.Domain), zap.Error(err))
			continue
		}
		flagged++
		s.log.Warn("domain attachment drifted, flagged failed",
			zap.String("tenant_id", record.TenantID.String()),
			zap.String("domain", record.Domain),
		)
	}
	return flagged, nil
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.log.Error("domain sweep failed", zap.Error(err))
			}
		}
	}
}
