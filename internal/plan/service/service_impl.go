package service

import (
	"context"
	"strings"
	"time"

	"github.com/loomsite/loomsite/internal/cache"
	"github.com/loomsite/loomsite/internal/plan/domain"
	"go.uber.org/zap"
)

const (
	defaultPlanTTL  = 5 * time.Minute
	planCacheBounds = 128
)

// Entitlements resolves plan feature flags with a bounded TTL cache in front
// of the catalog table.
type Entitlements struct {
	log   *zap.Logger
	repo  domain.Repository
	plans *cache.TTLCache[string, *domain.Plan]
	ttl   time.Duration
}

func NewEntitlements(log *zap.Logger, repo domain.Repository) domain.Entitlements {
	return &Entitlements{
		log:   log.Named("plan.entitlements"),
		repo:  repo,
		plans: cache.NewTTLCache[string, *domain.Plan](planCacheBounds),
		ttl:   defaultPlanTTL,
	}
}

func (e *Entitlements) Get(ctx context.Context, planKey string) (*domain.Plan, error) {
	key := strings.ToLower(strings.TrimSpace(planKey))
	if key == "" {
		return nil, domain.ErrPlanNotFound
	}

	if plan, ok := e.plans.Get(key); ok {
		return plan, nil
	}

	plan, err := e.repo.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	e.plans.Set(key, plan, e.ttl)
	return plan, nil
}

func (e *Entitlements) HasFeature(ctx context.Context, planKey, feature string) (bool, error) {
	plan, err := e.Get(ctx, planKey)
	if err != nil {
		return false, err
	}
	return plan.HasFeature(feature), nil
}

func (e *Entitlements) InvalidatePlan(planKey string) {
	e.plans.Invalidate(strings.ToLower(strings.TrimSpace(planKey)))
}
