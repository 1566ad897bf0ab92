package seed

import (
	"context"
	"errors"
	"time"

	plandomain "github.com/loomsite/loomsite/internal/plan/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnsurePlanCatalog upserts the built-in plan tiers at startup. Feature maps
// are authoritative here; editing a plan row by hand gets reverted on boot.
func EnsurePlanCatalog(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	now := time.Now().UTC()
	plans := []plandomain.Plan{
		{
			Key:        "free",
			Name:       "Free",
			PriceCents: 0,
			Features: datatypes.JSONMap{
				plandomain.FeatureCustomDomain:  false,
				plandomain.FeatureEmbeds:        false,
				plandomain.FeatureFileSharingGB: float64(1),
			},
		},
		{
			Key:        "pro",
			Name:       "Pro",
			PriceCents: 1900,
			Features: datatypes.JSONMap{
				plandomain.FeatureCustomDomain:  true,
				plandomain.FeatureEmbeds:        true,
				plandomain.FeatureFileSharingGB: float64(50),
			},
		},
		{
			Key:        "business",
			Name:       "Business",
			PriceCents: 4900,
			Features: datatypes.JSONMap{
				plandomain.FeatureCustomDomain:  true,
				plandomain.FeatureEmbeds:        true,
				plandomain.FeatureFileSharingGB: float64(500),
			},
		},
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range plans {
			plans[i].CreatedAt = now
			plans[i].UpdatedAt = now
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"name", "price_cents", "features", "updated_at",
				}),
			}).Create(&plans[i]).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
