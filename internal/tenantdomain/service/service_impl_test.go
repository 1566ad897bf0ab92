package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/loomsite/loomsite/internal/clock"
	"github.com/loomsite/loomsite/internal/config"
	plandomain "github.com/loomsite/loomsite/internal/plan/domain"
	"github.com/loomsite/loomsite/internal/tenantdomain/domain"
	"github.com/loomsite/loomsite/internal/tenantdomain/registrar"
	"github.com/loomsite/loomsite/internal/tenantdomain/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fakeResolver struct {
	values []string
	err    error
	calls  int
}

func (r *fakeResolver) LookupVerificationTXT(ctx context.Context, prefix, host string) ([]string, error) {
	r.calls++
	return r.values, r.err
}

type statusReply struct {
	status registrar.AttachmentStatus
	err    error
}

type fakeRegistrar struct {
	attachErr   error
	attachCalls int
	statuses    []statusReply
	statusCalls int
	detachErr   error
	detachCalls int
}

func (r *fakeRegistrar) Attach(ctx context.Context, host string) error {
	r.attachCalls++
	return r.attachErr
}

func (r *fakeRegistrar) Status(ctx context.Context, host string) (registrar.AttachmentStatus, error) {
	idx := r.statusCalls
	if idx >= len(r.statuses) {
		idx = len(r.statuses) - 1
	}
	r.statusCalls++
	reply := r.statuses[idx]
	return reply.status, reply.err
}

func (r *fakeRegistrar) Detach(ctx context.Context, host string) error {
	r.detachCalls++
	return r.detachErr
}

type fakePlans struct {
	planKey string
}

func (p *fakePlans) PlanKey(ctx context.Context, tenantID snowflake.ID) (string, error) {
	return p.planKey, nil
}

type fakeEntitlements struct {
	customDomain bool
}

func (e *fakeEntitlements) Get(ctx context.Context, planKey string) (*plandomain.Plan, error) {
	return &plandomain.Plan{
		Key:      planKey,
		Features: datatypes.JSONMap{plandomain.FeatureCustomDomain: e.customDomain},
	}, nil
}

func (e *fakeEntitlements) HasFeature(ctx context.Context, planKey, feature string) (bool, error) {
	return e.customDomain, nil
}

func (e *fakeEntitlements) InvalidatePlan(planKey string) {}

type fakeNotifier struct {
	messages []string
}

func (n *fakeNotifier) PostMessage(ctx context.Context, message string) error {
	n.messages = append(n.messages, message)
	return nil
}

type testEnv struct {
	svc       *Service
	db        *gorm.DB
	repo      domain.Repository
	resolver  *fakeResolver
	registrar *fakeRegistrar
	plans     *fakePlans
	ent       *fakeEntitlements
	notifier  *fakeNotifier
	clock     *clock.FakeClock
	delays    *[]time.Duration
}

func newTestEnv(t *testing.T, cfg config.DomainsConfig) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.TenantDomain{}))

	genID, err := snowflake.NewNode(1)
	require.NoError(t, err)

	env := &testEnv{
		db:        db,
		repo:      repository.Provide(db),
		resolver:  &fakeResolver{},
		registrar: &fakeRegistrar{statuses: []statusReply{{err: registrar.ErrNotAttached}}},
		plans:     &fakePlans{planKey: "pro"},
		ent:       &fakeEntitlements{customDomain: true},
		notifier:  &fakeNotifier{},
		clock:     clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
	}

	svc := New(Params{
		Log:          zap.NewNop(),
		GenID:        genID,
		Repo:         env.repo,
		Resolver:     env.resolver,
		Registrar:    env.registrar,
		Plans:        env.plans,
		Entitlements: env.ent,
		Cfg:          config.NewStaticDomainsConfigHolder(cfg),
		Clock:        env.clock,
		Lease:        nil,
		Metrics:      nil,
		Notifier:     env.notifier,
	}).(*Service)

	env.delays = new([]time.Duration)
	svc.sleep = func(d time.Duration) {
		*env.delays = append(*env.delays, d)
	}
	env.svc = svc
	return env
}

func defaultDomainsConfig() config.DomainsConfig {
	return config.DefaultDomainsConfig()
}

func mustCreate(t *testing.T, env *testEnv, tenantID snowflake.ID, host string) *domain.CreateResponse {
	t.Helper()
	resp, err := env.svc.Create(context.Background(), tenantID, host)
	require.NoError(t, err)
	return resp
}

func findRow(t *testing.T, env *testEnv, tenantID snowflake.ID, host string) *domain.TenantDomain {
	t.Helper()
	record, err := env.repo.Find(context.Background(), tenantID, host)
	require.NoError(t, err)
	return record
}

func TestCreateReturnsTxtInstruction(t *testing.T) {
	env := newTestEnv(t, defaultDomainsConfig())
	tenantID := snowflake.ID(101)

	resp := mustCreate(t, env, tenantID, "App.Example.COM.")

	assert.Equal(t, "app.example.com", resp.Domain)
	assert.Equal(t, domain.TypeSub, resp.Type)
	assert.Equal(t, domain.StatusPending, resp.Status)
	assert.Equal(t, "_loomsite.app.example.com", resp.TxtRecord.RecordName)
	assert.Equal(t, "TXT", resp.TxtRecord.RecordType)
	assert.GreaterOrEqual(t, len(resp.TxtRecord.RecordValue), 32)

	row := findRow(t, env, tenantID, "app.example.com")
	assert.Equal(t, resp.TxtRecord.RecordValue, row.VerificationToken)
	assert.Nil(t, row.VerifiedAt)
}

func TestCreateClassifiesApexAndSub(t *testing.T) {
	env := newTestEnv(t, defaultDomainsConfig())

	apex := mustCreate(t, env, 1, "example.com")
	sub := mustCreate(t, env, 1, "deep.app.example.com")

	assert.Equal(t, domain.TypeApex, apex.Type)
	assert.Equal(t, domain.TypeSub, sub.Type)
}

func TestCreateRejectsInvalidHostnames(t *testing.T) {
	env := newTestEnv(t, defaultDomainsConfig())

	for _, host := range []string{
		"",
		"nodots",
		"-bad.example.com",
		"bad-.example.com",
		"exa mple.com",
		"example.c",
		"*.example.com",
	} {
		_, err := env.svc.Create(context.Background(), 1, host)
		assert.ErrorIs(t, err, domain.ErrInvalidDomain, "host %q", host)
	}
}

func TestCreateConflictAcrossTenants(t *testing.T) {
	env := newTestEnv(t, defaultDomainsConfig())

	mustCreate(t, env, 1, "claimed.example.com")

	_, err := env.svc.Create(context.Background(), 2, "claimed.example.com")
	assert.ErrorIs(t, err, domain.ErrDomainTaken)

	_, err = env.svc.Create(context.Background(), 1, "claimed.example.com")
	assert.ErrorIs(t, err, domain.ErrDomainTaken)
}

func TestCreateRequiresEntitlement(t *testing.T) {
	env := newTestEnv(t, defaultDomainsConfig())
	env.ent.customDomain = false

	_, err := env.svc.Create(context.Background(), 1, "app.example.com")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCreateEnforcesTenantCap(t *testing.T) {
	cfg := defaultDomainsConfig()
	cfg.MaxDomainsPerTenant = 1
	env := newTestEnv(t, cfg)

	mustCreate(t, env, 1, "one.example.com")

	_, err := env.svc.Create(context.Background(), 1, "two.example.com")
	assert.ErrorIs(t, err, domain.ErrTooManyDomains)

	// The cap is per tenant, not global.
	mustCreate(t, env, 2, "two.example.com")
}

func TestListNeverDisclosesTokens(t *testing.T) {
	env := newTestEnv(t, defaultDomainsConfig())
	mustCreate(t, env, 1, "a.example.com")
	mustCreate(t, env, 1, "b.example.com")

	listed, err := env.svc.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, listed, 2)

	all, err := env.svc.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestVerifyTxtMismatchLeavesStateUntouched(t *testing.T) {
	env := newTestEnv(t, defaultDomainsConfig())
	mustCreate(t, env, 1, "app.example.com")
	env.resolver.values = []string{"some-other-token"}

	_, err := env.svc.Verify(context.Background(), 1, "app.example.com")
	assert.ErrorIs(t, err, domain.ErrTxtMismatch)

	row := findRow(t, env, 1, "app.example.com")
	assert.Equal(t, domain.StatusPending, row.Status)
	assert.Nil(t, row.VerifiedAt)
	assert.Zero(t, env.registrar.attachCalls)
}

func TestVerifyResolverOutageIsNotAFailure(t *testing.T) {
	env := newTestEnv(t, defaultDomainsConfig())
	mustCreate(t, env, 1, "app.example.com")
	env.resolver.err = domain.ErrResolverUnavailable

	_, err := env.svc.Verify(context.Background(), 1, "app.example.com")
	assert.ErrorIs(t, err, domain.ErrResolverUnavailable)

	row := findRow(t, env, 1, "app.example.com")
	assert.Equal(t, domain.StatusPending, row.Status)
}

func TestVerifySucceedsAfterPolling(t *testing.T) {
	env := newTestEnv(t, defaultDomainsConfig())
	created := mustCreate(t, env, 1, "app.example.com")
	env.resolver.values = []string{"unrelated", created.TxtRecord.RecordValue}
	env.registrar.statuses = []statusReply{
		{err: registrar.ErrNotAttached},
		{status: registrar.AttachmentStatus{Configured: true, SSL: "pending"}},
		{status: registrar.AttachmentStatus{Configured: true, SSL: "ready"}},
	}

	result, err := env.svc.Verify(context.Background(), 1, "app.example.com")
	require.NoError(t, err)
	assert.True(t, result.Verified)
	assert.Equal(t, "ready", result.SSL)
	assert.Equal(t, domain.ReasonReady, result.Reason)

	row := findRow(t, env, 1, "app.example.com")
	assert.Equal(t, domain.StatusReady, row.Status)
	require.NotNil(t, row.VerifiedAt)
	assert.True(t, row.VerifiedAt.Equal(env.clock.Now()))

	// Linear backoff: 500ms, then +150ms per attempt.
	require.Len(t, *env.delays, 3)
	assert.Equal(t, 500*time.Millisecond, (*env.delays)[0])
	assert.Equal(t, 650*time.Millisecond, (*env.delays)[1])
	assert.Equal(t, 800*time.Millisecond, (*env.delays)[2])

	require.Len(t, env.notifier.messages, 1)
}

func TestVerifyExhaustsBudgetOnRateLimit(t *testing.T) {
	env := newTestEnv(t, defaultDomainsConfig())
	created := mustCreate(t, env, 1, "app.example.com")
	env.resolver.values = []string{created.TxtRecord.RecordValue}
	env.registrar.statuses = []statusReply{{err: registrar.ErrRateLimited}}

	_, err := env.svc.Verify(context.Background(), 1, "app.example.com")
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	assert.Equal(t, 12, env.registrar.statusCalls)
	require.Len(t, *env.delays, 12)
	assert.Equal(t, 500*time.Millisecond, (*env.delays)[0])
	assert.Equal(t, 2150*time.Millisecond, (*env.delays)[11])

	row := findRow(t, env, 1, "app.example.com")
	assert.Equal(t, domain.StatusFailed, row.Status)
}

func TestVerifyTimesOutWhenNeverConfigured(t *testing.T) {
	env := newTestEnv(t, defaultDomainsConfig())
	created := mustCreate(t, env, 1, "app.example.com")
	env.resolver.values = []string{created.TxtRecord.RecordValue}
	env.registrar.statuses = []statusReply{
		{status: registrar.AttachmentStatus{Configured: false, SSL: "pending"}},
	}

	_, err := env.svc.Verify(context.Background(), 1, "app.example.com")
	assert.ErrorIs(t, err, domain.ErrAttachmentTimeout)

	row := findRow(t, env, 1, "app.example.com")
	assert.Equal(t, domain.StatusFailed, row.Status)
}

func TestVerifyHardFailureDuringPolling(t *testing.T) {
	env := newTestEnv(t, defaultDomainsConfig())
	created := mustCreate(t, env, 1, "app.example.com")
	env.resolver.values = []string{created.TxtRecord.RecordValue}
	env.registrar.statuses = []statusReply{
		{err: registrar.ErrNotAttached},
		{err: registrar.ErrHardFailure},
	}

	_, err := env.svc.Verify(context.Background(), 1, "app.example.com")
	assert.ErrorIs(t, err, domain.ErrRegistrarFailure)

	row := findRow(t, env, 1, "app.example.com")
	assert.Equal(t, domain.StatusFailed, row.Status)
}

func TestVerifyAttachHardFailureSkipsPolling(t *testing.T) {
	env := newTestEnv(t, defaultDomainsConfig())
	created := mustCreate(t, env, 1, "app.example.com")
	env.resolver.values = []string{created.TxtRecord.RecordValue}
	env.registrar.attachErr = registrar.ErrHardFailure

	_, err := env.svc.Verify(context.Background(), 1, "app.example.com")
	assert.ErrorIs(t, err, domain.ErrRegistrarFailure)
	assert.Zero(t, env.registrar.statusCalls)
}

func TestVerifyAttachRateLimitStillPolls(t *testing.T) {
	env := newTestEnv(t, defaultDomainsConfig())
	created := mustCreate(t, env, 1, "app.example.com")
	env.resolver.values = []string{created.TxtRecord.RecordValue}
	env.registrar.attachErr = registrar.ErrRateLimited
	env.registrar.statuses = []statusReply{
		{status: registrar.AttachmentStatus{Configured: true, SSL: "ready"}},
	}

	result, err := env.svc.Verify(context.Background(), 1, "app.example.com")
	require.NoError(t, err)
	assert.True(t, result.Verified)
}

func TestVerifiedAtSurvivesReverification(t *testing.T) {
	env := newTestEnv(t, defaultDomainsConfig())
	created := mustCreate(t, env, 1, "app.example.com")
	env.resolver.values = []string{created.TxtRecord.RecordValue}
	env.registrar.statuses = []statusReply{
		{status: registrar.AttachmentStatus{Configured: true, SSL: "ready"}},
	}

	_, err := env.svc.Verify(context.Background(), 1, "app.example.com")
	require.NoError(t, err)
	first := findRow(t, env, 1, "app.example.com").VerifiedAt
	require.NotNil(t, first)

	env.clock.Advance(48 * time.Hour)
	_, err = env.svc.Verify(context.Background(), 1, "app.example.com")
	require.NoError(t, err)

	again := findRow(t, env, 1, "app.example.com").VerifiedAt
	require.NotNil(t, again)
	assert.True(t, again.Equal(*first))

	// The re-verification is not a first-time event; no second notification.
	assert.Len(t, env.notifier.messages, 1)
}

func TestVerifyRequiresEntitlementAtVerifyTime(t *testing.T) {
	env := newTestEnv(t, defaultDomainsConfig())
	created := mustCreate(t, env, 1, "app.example.com")
	env.resolver.values = []string{created.TxtRecord.RecordValue}

	// Simulates a plan downgrade between create and verify.
	env.ent.customDomain = false

	_, err := env.svc.Verify(context.Background(), 1, "app.example.com")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Zero(t, env.resolver.calls)
}

func TestVerifyUnknownDomain(t *testing.T) {
	env := newTestEnv(t, defaultDomainsConfig())

	_, err := env.svc.Verify(context.Background(), 1, "ghost.example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVerifyIsTenantScoped(t *testing.T) {
	env := newTestEnv(t, defaultDomainsConfig())
	mustCreate(t, env, 1, "app.example.com")

	_, err := env.svc.Verify(context.Background(), 2, "app.example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteToleratesDetachFailure(t *testing.T) {
	env := newTestEnv(t, defaultDomainsConfig())
	mustCreate(t, env, 1, "app.example.com")
	env.registrar.detachErr = errors.New("provider exploded")

	err := env.svc.Delete(context.Background(), 1, "app.example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, env.registrar.detachCalls)

	_, err = env.repo.Find(context.Background(), 1, "app.example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteUnknownDomain(t *testing.T) {
	env := newTestEnv(t, defaultDomainsConfig())

	err := env.svc.Delete(context.Background(), 1, "ghost.example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteFreesHostnameForReclaim(t *testing.T) {
	env := newTestEnv(t, defaultDomainsConfig())
	mustCreate(t, env, 1, "app.example.com")

	require.NoError(t, env.svc.Delete(context.Background(), 1, "app.example.com"))

	// Another tenant can claim the hostname once it is released.
	mustCreate(t, env, 2, "app.example.com")
}
