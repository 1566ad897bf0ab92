package service

import (
	"context"
	"testing"

	"github.com/loomsite/loomsite/internal/plan/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type countingRepo struct {
	plans map[string]*domain.Plan
	finds int
}

func (r *countingRepo) FindByKey(ctx context.Context, key string) (*domain.Plan, error) {
	r.finds++
	plan, ok := r.plans[key]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	copied := *plan
	return &copied, nil
}

func (r *countingRepo) List(ctx context.Context) ([]domain.Plan, error) { return nil, nil }

func (r *countingRepo) Upsert(ctx context.Context, plan *domain.Plan) error {
	r.plans[plan.Key] = plan
	return nil
}

func newEntitlements(t *testing.T) (domain.Entitlements, *countingRepo) {
	t.Helper()
	repo := &countingRepo{plans: map[string]*domain.Plan{
		"free": {Key: "free", Features: datatypes.JSONMap{domain.FeatureCustomDomain: false}},
		"pro":  {Key: "pro", Features: datatypes.JSONMap{domain.FeatureCustomDomain: true, domain.FeatureFileSharingGB: float64(50)}},
	}}
	return NewEntitlements(zap.NewNop(), repo), repo
}

func TestGetCachesLookups(t *testing.T) {
	ent, repo := newEntitlements(t)

	for i := 0; i < 5; i++ {
		plan, err := ent.Get(context.Background(), "pro")
		require.NoError(t, err)
		assert.Equal(t, "pro", plan.Key)
	}
	assert.Equal(t, 1, repo.finds)
}

func TestGetNormalizesKey(t *testing.T) {
	ent, repo := newEntitlements(t)

	_, err := ent.Get(context.Background(), "  PRO ")
	require.NoError(t, err)
	_, err = ent.Get(context.Background(), "pro")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.finds)
}

func TestGetUnknownPlan(t *testing.T) {
	ent, _ := newEntitlements(t)

	_, err := ent.Get(context.Background(), "enterprise")
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)

	_, err = ent.Get(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)
}

func TestHasFeature(t *testing.T) {
	ent, _ := newEntitlements(t)

	enabled, err := ent.HasFeature(context.Background(), "pro", domain.FeatureCustomDomain)
	require.NoError(t, err)
	assert.True(t, enabled)

	enabled, err = ent.HasFeature(context.Background(), "free", domain.FeatureCustomDomain)
	require.NoError(t, err)
	assert.False(t, enabled)

	// Non-boolean feature values never count as enabled.
	enabled, err = ent.HasFeature(context.Background(), "pro", domain.FeatureFileSharingGB)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestInvalidatePlanForcesRefetch(t *testing.T) {
	ent, repo := newEntitlements(t)

	_, err := ent.Get(context.Background(), "pro")
	require.NoError(t, err)

	repo.plans["pro"].Features[domain.FeatureCustomDomain] = false
	ent.InvalidatePlan("PRO")

	enabled, err := ent.HasFeature(context.Background(), "pro", domain.FeatureCustomDomain)
	require.NoError(t, err)
	assert.False(t, enabled)
	assert.Equal(t, 2, repo.finds)
}
