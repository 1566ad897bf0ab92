package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/loomsite/loomsite/internal/plan/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) FindByKey(ctx context.Context, key string) (*domain.Plan, error) {
	var plan domain.Plan
	err := r.db.WithContext(ctx).Where("key = ?", strings.ToLower(strings.TrimSpace(key))).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repo) List(ctx context.Context) ([]domain.Plan, error) {
	var plans []domain.Plan
	if err := r.db.WithContext(ctx).Order("price_cents").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repo) Upsert(ctx context.Context, plan *domain.Plan) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "price_cents", "features", "updated_at"}),
	}).Create(plan).Error
}
