// Package domain contains the plan catalog models.
package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
)

// Feature keys understood by the entitlement layer.
const (
	FeatureCustomDomain  = "custom_domain"
	FeatureEmbeds        = "embeds"
	FeatureFileSharingGB = "file_sharing_gb"
)

var ErrPlanNotFound = errors.New("plan_not_found")

// Plan is one row of the plan catalog, keyed by a stable plan key.
type Plan struct {
	Key        string            `gorm:"primaryKey;type:text" json:"key"`
	Name       string            `gorm:"type:text;not null" json:"name"`
	PriceCents int64             `gorm:"column:price_cents;not null;default:0" json:"price_cents"`
	Features   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"features"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "plans" }

// HasFeature reports whether the plan enables a boolean feature.
func (p *Plan) HasFeature(key string) bool {
	if p == nil || p.Features == nil {
		return false
	}
	enabled, ok := p.Features[key].(bool)
	return ok && enabled
}

// Entitlements resolves plan keys to feature sets. Implementations cache
// lookups; InvalidatePlan must be called when a plan's features change.
type Entitlements interface {
	Get(ctx context.Context, planKey string) (*Plan, error)
	HasFeature(ctx context.Context, planKey, feature string) (bool, error)
	InvalidatePlan(planKey string)
}

type Repository interface {
	FindByKey(ctx context.Context, key string) (*Plan, error)
	List(ctx context.Context) ([]Plan, error)
	Upsert(ctx context.Context, plan *Plan) error
}
