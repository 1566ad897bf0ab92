package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/loomsite/loomsite/internal/tenant/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, tenant *domain.Tenant) error {
	return r.db.WithContext(ctx).Create(tenant).Error
}

func (r *repo) AddMember(ctx context.Context, member *domain.TenantMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

func (r *repo) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.ListItem, error) {
	var items []domain.ListItem
	err := r.db.WithContext(ctx).Raw(
		`SELECT t.id, t.name, t.slug, t.plan_key, m.role, t.created_at
		 FROM tenants t
		 JOIN tenant_members m ON m.tenant_id = t.id
		 WHERE m.user_id = ?
		 ORDER BY t.created_at`,
		userID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MemberRole(ctx context.Context, tenantID, userID snowflake.ID) (string, error) {
	var member domain.TenantMember
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.ErrNoMembership
		}
		return "", err
	}
	return member.Role, nil
}

func (r *repo) UpdatePlan(ctx context.Context, tenantID snowflake.ID, planKey string) error {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE tenants SET plan_key = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		planKey,
		tenantID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) ListAll(ctx context.Context) ([]domain.Tenant, error) {
	var tenants []domain.Tenant
	if err := r.db.WithContext(ctx).Order("created_at").Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}
