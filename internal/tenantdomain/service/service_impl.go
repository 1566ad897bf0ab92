package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/loomsite/loomsite/internal/clock"
	"github.com/loomsite/loomsite/internal/config"
	"github.com/loomsite/loomsite/internal/observability/metrics"
	plandomain "github.com/loomsite/loomsite/internal/plan/domain"
	"github.com/loomsite/loomsite/internal/providers/slack"
	"github.com/loomsite/loomsite/internal/tenantdomain/dns"
	"github.com/loomsite/loomsite/internal/tenantdomain/domain"
	"github.com/loomsite/loomsite/internal/tenantdomain/registrar"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const verificationTokenBytes = 32

// TenantPlans resolves a tenant to its current plan key.
type TenantPlans interface {
	PlanKey(ctx context.Context, tenantID snowflake.ID) (string, error)
}

type Params struct {
	fx.In

	Log          *zap.Logger
	GenID        *snowflake.Node
	Repo         domain.Repository
	Resolver     dns.Resolver
	Registrar    registrar.Registrar
	Plans        TenantPlans
	Entitlements plandomain.Entitlements
	Cfg          *config.DomainsConfigHolder
	Clock        clock.Clock
	Lease        *VerifyLease `optional:"true"`
	Metrics      *metrics.DomainMetrics
	Notifier     slack.Provider
}

type Service struct {
	log          *zap.Logger
	genID        *snowflake.Node
	repo         domain.Repository
	resolver     dns.Resolver
	registrar    registrar.Registrar
	plans        TenantPlans
	entitlements plandomain.Entitlements
	cfg          *config.DomainsConfigHolder
	clock        clock.Clock
	lease        *VerifyLease
	metrics      *metrics.DomainMetrics
	notifier     slack.Provider
	sleep        func(time.Duration)
}

func New(p Params) domain.Service {
	return &Service{
		log:          p.Log.Named("tenantdomain.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		resolver:     p.Resolver,
		registrar:    p.Registrar,
		plans:        p.Plans,
		entitlements: p.Entitlements,
		cfg:          p.Cfg,
		clock:        p.Clock,
		lease:        p.Lease,
		metrics:      p.Metrics,
		notifier:     p.Notifier,
		sleep:        time.Sleep,
	}
}

func (s *Service) Create(ctx context.Context, tenantID snowflake.ID, rawDomain string) (*domain.CreateResponse, error) {
	host := domain.NormalizeHostname(rawDomain)
	if err := domain.ValidateHostname(host); err != nil {
		return nil, err
	}

	if err := s.checkEntitlement(ctx, tenantID); err != nil {
		return nil, err
	}

	cfg := s.cfg.Get()
	count, err := s.repo.CountByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if count >= int64(cfg.MaxDomainsPerTenant) {
		return nil, domain.ErrTooManyDomains
	}

	token, err := newVerificationToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	record := &domain.TenantDomain{
		ID:                s.genID.Generate(),
		TenantID:          tenantID,
		Domain:            host,
		Type:              domain.ClassifyHostname(host),
		VerificationToken: token,
		Status:            domain.StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	// The store enforces the one-claim-per-hostname invariant atomically.
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	s.log.Info("custom domain registered",
		zap.String("tenant_id", tenantID.String()),
		zap.String("domain", host),
		zap.String("type", string(record.Type)),
	)

	return &domain.CreateResponse{
		ID:     record.ID.String(),
		Domain: host,
		Type:   record.Type,
		Status: record.Status,
		TxtRecord: domain.TXTRecord{
			RecordName:  dns.VerificationName(cfg.TxtPrefix, host),
			RecordType:  "TXT",
			RecordValue: token,
		},
		CreatedAt: record.CreatedAt,
	}, nil
}

func (s *Service) List(ctx context.Context, tenantID snowflake.ID) ([]domain.Response, error) {
	records, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return toResponses(records), nil
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Response, error) {
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return toResponses(records), nil
}

// Verify runs one full verification pass: TXT proof, registrar attachment and
// bounded status polling. A disconnecting caller does not interrupt the final
// status write, so the row never sticks in a stale state.
func (s *Service) Verify(ctx context.Context, tenantID snowflake.ID, rawDomain string) (*domain.VerifyResult, error) {
	host := domain.NormalizeHostname(rawDomain)
	cfg := s.cfg.Get()

	leaseKey := "domains:verify:" + tenantID.String() + ":" + host
	leaseToken, acquired, err := s.lease.TryAcquire(ctx, leaseKey, cfg.VerifyLease())
	if err != nil {
		s.log.Warn("verify lease unavailable, proceeding unserialized", zap.Error(err))
	} else if !acquired {
		return nil, domain.ErrVerifyInProgress
	}
	persistCtx := context.WithoutCancel(ctx)
	defer func() {
		if releaseErr := s.lease.Release(persistCtx, leaseKey, leaseToken); releaseErr != nil {
			s.log.Warn("verify lease release failed", zap.Error(releaseErr))
		}
	}()

	record, err := s.repo.Find(ctx, tenantID, host)
	if err != nil {
		return nil, err
	}

	// Entitlement is re-checked at verify time; a lapsed plan blocks
	// verification even for rows created under an older plan.
	if err := s.checkEntitlement(ctx, tenantID); err != nil {
		return nil, err
	}

	values, err := s.resolver.LookupVerificationTXT(ctx, cfg.TxtPrefix, host)
	if err != nil {
		// Infrastructure failure, not proof absence; no state change.
		s.metrics.RecordVerify("resolver_unavailable", 0)
		return nil, err
	}
	if !containsToken(values, record.VerificationToken) {
		// Leave status untouched so the tenant can publish DNS and retry.
		s.metrics.RecordVerify(domain.ReasonTxtMismatch, 0)
		return nil, domain.ErrTxtMismatch
	}

	if err := s.registrar.Attach(ctx, host); err != nil {
		if errors.Is(err, registrar.ErrRateLimited) {
			// The domain may already be attached; let polling decide.
			s.log.Info("registrar attach rate limited", zap.String("domain", host))
		} else {
			s.failStatus(persistCtx, tenantID, host)
			s.metrics.RecordVerify(domain.ReasonRegistrarError, 0)
			return nil, domain.ErrRegistrarFailure
		}
	}

	polls := 0
	onlyRateLimited := true
	for attempt := 0; attempt < cfg.PollAttempts; attempt++ {
		s.sleep(cfg.PollBaseDelay() + time.Duration(attempt)*cfg.PollStep())
		polls++

		status, err := s.registrar.Status(ctx, host)
		switch {
		case errors.Is(err, registrar.ErrRateLimited):
			continue
		case errors.Is(err, registrar.ErrNotAttached):
			// Attachment has not propagated yet; keep polling.
			onlyRateLimited = false
			continue
		case err != nil:
			s.failStatus(persistCtx, tenantID, host)
			s.metrics.RecordVerify(domain.ReasonRegistrarError, polls)
			return nil, domain.ErrRegistrarFailure
		}

		onlyRateLimited = false
		if status.Configured && status.SSL == "ready" {
			return s.succeed(persistCtx, record, polls)
		}
	}

	s.failStatus(persistCtx, tenantID, host)
	if onlyRateLimited {
		s.metrics.RecordVerify(domain.ReasonRateLimited, polls)
		return nil, domain.ErrRateLimited
	}
	s.metrics.RecordVerify(domain.ReasonAttachmentTimeout, polls)
	return nil, domain.ErrAttachmentTimeout
}

func (s *Service) Delete(ctx context.Context, tenantID snowflake.ID, rawDomain string) error {
	host := domain.NormalizeHostname(rawDomain)

	// Best effort: registrar detachment must never block local deletion.
	if err := s.registrar.Detach(ctx, host); err != nil {
		s.log.Warn("registrar detach failed, deleting record anyway",
			zap.String("tenant_id", tenantID.String()),
			zap.String("domain", host),
			zap.Error(err),
		)
	}

	deleted, err := s.repo.Delete(ctx, tenantID, host)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) succeed(ctx context.Context, record *domain.TenantDomain, polls int) (*domain.VerifyResult, error) {
	firstVerification := record.VerifiedAt == nil
	if err := s.repo.MarkVerified(ctx, record.TenantID, record.Domain, s.clock.Now()); err != nil {
		return nil, err
	}
	s.metrics.RecordVerify(domain.ReasonReady, polls)
	s.log.Info("custom domain verified",
		zap.String("tenant_id", record.TenantID.String()),
		zap.String("domain", record.Domain),
		zap.Int("polls", polls),
	)
	if firstVerification {
		if err := s.notifier.PostMessage(ctx, "Custom domain verified: "+record.Domain); err != nil {
			s.log.Warn("domain notification failed", zap.Error(err))
		}
	}
	return &domain.VerifyResult{Verified: true, SSL: "ready", Reason: domain.ReasonReady}, nil
}

func (s *Service) failStatus(ctx context.Context, tenantID snowflake.ID, host string) {
	if err := s.repo.UpdateStatus(ctx, tenantID, host, domain.StatusFailed); err != nil {
		s.log.Error("status update failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("domain", host),
			zap.Error(err),
		)
	}
}

func (s *Service) checkEntitlement(ctx context.Context, tenantID snowflake.ID) error {
	planKey, err := s.plans.PlanKey(ctx, tenantID)
	if err != nil {
		return err
	}
	enabled, err := s.entitlements.HasFeature(ctx, planKey, plandomain.FeatureCustomDomain)
	if err != nil {
		return err
	}
	if !enabled {
		return domain.ErrForbidden
	}
	return nil
}

func containsToken(values []string, token string) bool {
	for _, v := range values {
		if v == token {
			return true
		}
	}
	return false
}

func newVerificationToken() (string, error) {
	buf := make([]byte, verificationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func toResponses(records []domain.TenantDomain) []domain.Response {
	resp := make([]domain.Response, 0, len(records))
	for _, record := range records {
		resp = append(resp, domain.Response{
			ID:         record.ID.String(),
			TenantID:   record.TenantID.String(),
			Domain:     record.Domain,
			Type:       record.Type,
			Status:     record.Status,
			VerifiedAt: record.VerifiedAt,
			CreatedAt:  record.CreatedAt,
		})
	}
	return resp
}
