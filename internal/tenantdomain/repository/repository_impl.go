package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/loomsite/loomsite/internal/tenantdomain/domain"
	"github.com/loomsite/loomsite/pkg/db"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(conn *gorm.DB) domain.Repository {
	return &repo{db: conn}
}

func (r *repo) Create(ctx context.Context, record *domain.TenantDomain) error {
	err := r.db.WithContext(ctx).Create(record).Error
	if err != nil && db.IsDuplicateKeyErr(err) {
		return domain.ErrDomainTaken
	}
	return err
}

func (r *repo) Find(ctx context.Context, tenantID snowflake.ID, host string) (*domain.TenantDomain, error) {
	var record domain.TenantDomain
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND domain = ?", tenantID, host).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) ListByTenant(ctx context.Context, tenantID snowflake.ID) ([]domain.TenantDomain, error) {
	var records []domain.TenantDomain
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) ListAll(ctx context.Context) ([]domain.TenantDomain, error) {
	var records []domain.TenantDomain
	if err := r.db.WithContext(ctx).Order("created_at").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) CountByTenant(ctx context.Context, tenantID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.TenantDomain{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error
	return count, err
}

func (r *repo) UpdateStatus(ctx context.Context, tenantID snowflake.ID, host string, status domain.DomainStatus) error {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE tenant_domains
		 SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE tenant_id = ? AND domain = ?`,
		status,
		tenantID,
		host,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) MarkVerified(ctx context.Context, tenantID snowflake.ID, host string, verifiedAt time.Time) error {
	// COALESCE keeps the first verified_at through later re-verifications.
	res := r.db.WithContext(ctx).Exec(
		`UPDATE tenant_domains
		 SET status = ?, verified_at = COALESCE(verified_at, ?), updated_at = CURRENT_TIMESTAMP
		 WHERE tenant_id = ? AND domain = ?`,
		domain.StatusReady,
		verifiedAt,
		tenantID,
		host,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, tenantID snowflake.ID, host string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("tenant_id = ? AND domain = ?", tenantID, host).
		Delete(&domain.TenantDomain{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
