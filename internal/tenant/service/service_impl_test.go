package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/loomsite/loomsite/internal/tenant/domain"
	"github.com/loomsite/loomsite/internal/tenant/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTenantService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Tenant{}, &domain.TenantMember{}))

	genID, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: genID,
		Repo:  repository.Provide(db),
	})
	return svc, db
}

func TestCreateTenantWithOwnerMembership(t *testing.T) {
	svc, _ := newTenantService(t)
	userID := snowflake.ID(7)

	resp, err := svc.Create(context.Background(), userID, domain.CreateRequest{Name: "Acme Studios"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Studios", resp.Name)
	assert.Equal(t, "acme-studios", resp.Slug)
	assert.Equal(t, "free", resp.PlanKey)
	assert.Equal(t, domain.RoleOwner, resp.Role)

	tenantID, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)
	role, err := svc.MemberRole(context.Background(), tenantID, userID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, role)
}

func TestCreateTenantRejectsEmptyName(t *testing.T) {
	svc, _ := newTenantService(t)

	_, err := svc.Create(context.Background(), 7, domain.CreateRequest{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestCreateTenantSlugCollisionGetsSuffix(t *testing.T) {
	svc, _ := newTenantService(t)

	first, err := svc.Create(context.Background(), 7, domain.CreateRequest{Name: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "acme", first.Slug)

	second, err := svc.Create(context.Background(), 8, domain.CreateRequest{Name: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "acme-2", second.Slug)

	third, err := svc.Create(context.Background(), 9, domain.CreateRequest{Name: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "acme-3", third.Slug)
}

func TestCreateTenantSlugExhaustion(t *testing.T) {
	svc, _ := newTenantService(t)

	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), snowflake.ID(10+i), domain.CreateRequest{Name: "Acme"})
		require.NoError(t, err)
	}

	_, err := svc.Create(context.Background(), 20, domain.CreateRequest{Name: "Acme"})
	assert.ErrorIs(t, err, domain.ErrSlugTaken)
}

func TestMemberRoleForNonMember(t *testing.T) {
	svc, _ := newTenantService(t)

	resp, err := svc.Create(context.Background(), 7, domain.CreateRequest{Name: "Acme"})
	require.NoError(t, err)
	tenantID, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)

	_, err = svc.MemberRole(context.Background(), tenantID, 99)
	assert.ErrorIs(t, err, domain.ErrNoMembership)
}

func TestListByUserOnlyReturnsMemberships(t *testing.T) {
	svc, _ := newTenantService(t)

	_, err := svc.Create(context.Background(), 7, domain.CreateRequest{Name: "Mine"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 8, domain.CreateRequest{Name: "Theirs"})
	require.NoError(t, err)

	mine, err := svc.ListByUser(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Mine", mine[0].Name)
	assert.Equal(t, domain.RoleOwner, mine[0].Role)
}

func TestChangePlan(t *testing.T) {
	svc, _ := newTenantService(t)

	resp, err := svc.Create(context.Background(), 7, domain.CreateRequest{Name: "Acme"})
	require.NoError(t, err)
	tenantID, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)

	require.NoError(t, svc.ChangePlan(context.Background(), tenantID, " PRO "))

	got, err := svc.GetByID(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, "pro", got.PlanKey)

	assert.ErrorIs(t, svc.ChangePlan(context.Background(), tenantID, "  "), domain.ErrInvalidPlan)
}
