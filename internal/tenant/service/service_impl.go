package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/loomsite/loomsite/internal/tenant/domain"
	"github.com/loomsite/loomsite/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const slugRetryLimit = 3

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("tenant.service"),
		repo:  p.Repo,
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := time.Now().UTC()
	tenant := &domain.Tenant{
		ID:        s.genID.Generate(),
		Name:      name,
		PlanKey:   "free",
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Slug collisions get a short numeric suffix before giving up.
	base := slug.Make(name)
	var lastErr error
	for attempt := 0; attempt < slugRetryLimit; attempt++ {
		tenant.Slug = base
		if attempt > 0 {
			tenant.Slug = fmt.Sprintf("%s-%d", base, attempt+1)
		}
		lastErr = s.createWithOwner(ctx, tenant, userID)
		if lastErr == nil {
			break
		}
		if !db.IsDuplicateKeyErr(lastErr) {
			return nil, lastErr
		}
	}
	if lastErr != nil {
		return nil, domain.ErrSlugTaken
	}

	resp := toResponse(tenant, domain.RoleOwner)
	return &resp, nil
}

func (s *Service) createWithOwner(ctx context.Context, tenant *domain.Tenant, userID snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tenant).Error; err != nil {
			return err
		}
		member := &domain.TenantMember{
			ID:        s.genID.Generate(),
			TenantID:  tenant.ID,
			UserID:    userID,
			Role:      domain.RoleOwner,
			CreatedAt: tenant.CreatedAt,
		}
		return tx.Create(member).Error
	})
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Response, error) {
	tenant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(tenant, "")
	return &resp, nil
}

func (s *Service) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.Response, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, domain.Response{
			ID:        item.ID.String(),
			Name:      item.Name,
			Slug:      item.Slug,
			PlanKey:   item.PlanKey,
			Role:      item.Role,
			CreatedAt: item.CreatedAt,
		})
	}
	return resp, nil
}

func (s *Service) MemberRole(ctx context.Context, tenantID, userID snowflake.ID) (string, error) {
	if tenantID == 0 || userID == 0 {
		return "", domain.ErrInvalidTenant
	}
	return s.repo.MemberRole(ctx, tenantID, userID)
}

func (s *Service) ChangePlan(ctx context.Context, tenantID snowflake.ID, planKey string) error {
	planKey = strings.ToLower(strings.TrimSpace(planKey))
	if planKey == "" {
		return domain.ErrInvalidPlan
	}
	if err := s.repo.UpdatePlan(ctx, tenantID, planKey); err != nil {
		return err
	}
	s.log.Info("tenant plan changed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("plan_key", planKey),
	)
	return nil
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Response, error) {
	tenants, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.Response, 0, len(tenants))
	for _, t := range tenants {
		resp = append(resp, toResponse(&t, ""))
	}
	return resp, nil
}

func toResponse(t *domain.Tenant, role string) domain.Response {
	return domain.Response{
		ID:        t.ID.String(),
		Name:      t.Name,
		Slug:      t.Slug,
		PlanKey:   t.PlanKey,
		Role:      role,
		CreatedAt: t.CreatedAt,
	}
}
