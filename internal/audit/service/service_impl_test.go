package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/loomsite/loomsite/internal/audit/domain"
	"github.com/loomsite/loomsite/internal/audit/repository"
	"github.com/loomsite/loomsite/internal/clock"
	obscontext "github.com/loomsite/loomsite/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newAuditService(t *testing.T) auditdomain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&auditdomain.AuditLog{}))

	genID, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(Params{
		Log:   zap.NewNop(),
		GenID: genID,
		Clock: clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(db),
	})
}

func TestRecordAndList(t *testing.T) {
	svc := newAuditService(t)
	tenantID := snowflake.ID(5)
	target := "app.example.com"

	ctx := obscontext.WithActor(context.Background(), "user", "77")
	ctx = obscontext.WithRequestID(ctx, "req-123")

	require.NoError(t, svc.Record(ctx, &tenantID, "domain.created", "domain", &target, map[string]any{
		"plan_key": "pro",
	}))

	entries, err := svc.List(context.Background(), auditdomain.ListFilter{TenantID: tenantID})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "domain.created", entry.Action)
	assert.Equal(t, "domain", entry.TargetType)
	require.NotNil(t, entry.TargetID)
	assert.Equal(t, target, *entry.TargetID)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, snowflake.ID(77), *entry.ActorID)
	assert.Equal(t, "pro", entry.Details["plan_key"])
	assert.Equal(t, "req-123", entry.Details["request_id"])
}

func TestRecordRejectsEmptyAction(t *testing.T) {
	svc := newAuditService(t)
	tenantID := snowflake.ID(5)

	err := svc.Record(context.Background(), &tenantID, "  ", "domain", nil, nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestRecordWithoutActorOrTarget(t *testing.T) {
	svc := newAuditService(t)
	tenantID := snowflake.ID(5)
	blank := "  "

	require.NoError(t, svc.Record(context.Background(), &tenantID, "tenant.created", "", &blank, nil))

	entries, err := svc.List(context.Background(), auditdomain.ListFilter{TenantID: tenantID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "unknown", entries[0].TargetType)
	assert.Nil(t, entries[0].TargetID)
	assert.Nil(t, entries[0].ActorID)
}

func TestListFilters(t *testing.T) {
	svc := newAuditService(t)
	tenantID := snowflake.ID(5)
	otherTenant := snowflake.ID(6)

	require.NoError(t, svc.Record(context.Background(), &tenantID, "domain.created", "domain", nil, nil))
	require.NoError(t, svc.Record(context.Background(), &tenantID, "domain.deleted", "domain", nil, nil))
	require.NoError(t, svc.Record(context.Background(), &otherTenant, "domain.created", "domain", nil, nil))

	created, err := svc.List(context.Background(), auditdomain.ListFilter{
		TenantID: tenantID,
		Action:   "domain.created",
	})
	require.NoError(t, err)
	require.Len(t, created, 1)

	all, err := svc.List(context.Background(), auditdomain.ListFilter{TenantID: tenantID})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListRequiresTenant(t *testing.T) {
	svc := newAuditService(t)

	_, err := svc.List(context.Background(), auditdomain.ListFilter{})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTenant)
}
