package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/loomsite/loomsite/internal/audit/domain"
	billingdomain "github.com/loomsite/loomsite/internal/billing/domain"
	"github.com/loomsite/loomsite/internal/clock"
	plandomain "github.com/loomsite/loomsite/internal/plan/domain"
	tenantmodel "github.com/loomsite/loomsite/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Provider     billingdomain.Provider
	Repo         billingdomain.Repository
	Tenants      tenantmodel.Service
	Entitlements plandomain.Entitlements
	Audit        auditdomain.Service
}

type Service struct {
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	provider     billingdomain.Provider
	repo         billingdomain.Repository
	tenants      tenantmodel.Service
	entitlements plandomain.Entitlements
	audit        auditdomain.Service
}

func New(p Params) billingdomain.Service {
	return &Service{
		log:          p.Log.Named("billing.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		provider:     p.Provider,
		repo:         p.Repo,
		tenants:      p.Tenants,
		entitlements: p.Entitlements,
		audit:        p.Audit,
	}
}

func (s *Service) Checkout(ctx context.Context, tenantID snowflake.ID, planKey string) (*billingdomain.CheckoutResponse, error) {
	plan, err := s.entitlements.Get(ctx, planKey)
	if err != nil {
		if errors.Is(err, plandomain.ErrPlanNotFound) {
			return nil, billingdomain.ErrUnknownPlan
		}
		return nil, err
	}
	if plan.PriceCents == 0 {
		// Downgrades to the free tier are applied directly, not via checkout.
		return nil, billingdomain.ErrFreePlanCheckout
	}

	session, err := s.provider.CreateCheckout(ctx, tenantID, plan.Key, plan.PriceCents)
	if err != nil {
		return nil, err
	}

	s.log.Info("checkout session created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("plan_key", plan.Key),
		zap.String("session_id", session.SessionID),
	)
	return session, nil
}

func (s *Service) HandleWebhook(ctx context.Context, payload []byte, headers http.Header) error {
	if err := s.provider.VerifyWebhook(payload, headers); err != nil {
		return err
	}

	event, err := s.provider.ParseWebhook(payload)
	if err != nil {
		if errors.Is(err, billingdomain.ErrEventIgnored) {
			return nil
		}
		return err
	}

	if _, err := s.entitlements.Get(ctx, event.PlanKey); err != nil {
		if errors.Is(err, plandomain.ErrPlanNotFound) {
			return billingdomain.ErrUnknownPlan
		}
		return err
	}

	record := &billingdomain.BillingEvent{
		ID:              s.genID.Generate(),
		TenantID:        event.TenantID,
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		PlanKey:         event.PlanKey,
		Payload:         datatypes.JSON(event.RawPayload),
		ReceivedAt:      s.clock.Now(),
	}
	if err := s.repo.InsertEvent(ctx, record); err != nil {
		if errors.Is(err, billingdomain.ErrDuplicateEvent) {
			// Providers redeliver; the first delivery already applied the change.
			s.log.Info("webhook event replayed, acknowledging",
				zap.String("provider_event_id", event.ProviderEventID))
			return nil
		}
		return err
	}

	if err := s.tenants.ChangePlan(ctx, event.TenantID, event.PlanKey); err != nil {
		return err
	}
	s.entitlements.InvalidatePlan(event.PlanKey)

	tenantID := event.TenantID
	targetID := event.ProviderEventID
	if err := s.audit.Record(ctx, &tenantID, "billing.plan_changed", "tenant", &targetID, map[string]any{
		"plan_key": event.PlanKey,
		"provider": event.Provider,
	}); err != nil {
		s.log.Warn("audit write failed for plan change", zap.Error(err))
	}

	s.log.Info("tenant plan changed via webhook",
		zap.String("tenant_id", event.TenantID.String()),
		zap.String("plan_key", event.PlanKey),
	)
	return nil
}
