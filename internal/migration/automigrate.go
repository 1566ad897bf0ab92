package migration

import (
	auditdomain "github.com/loomsite/loomsite/internal/audit/domain"
	authdomain "github.com/loomsite/loomsite/internal/auth/domain"
	billingdomain "github.com/loomsite/loomsite/internal/billing/domain"
	plandomain "github.com/loomsite/loomsite/internal/plan/domain"
	tenantmodel "github.com/loomsite/loomsite/internal/tenant/domain"
	tddomain "github.com/loomsite/loomsite/internal/tenantdomain/domain"
	"gorm.io/gorm"
)

// AutoMigrate builds the schema from the gorm models for non-postgres
// development databases.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&authdomain.User{},
		&authdomain.Session{},
		&plandomain.Plan{},
		&tenantmodel.Tenant{},
		&tenantmodel.TenantMember{},
		&tddomain.TenantDomain{},
		&billingdomain.BillingEvent{},
		&auditdomain.AuditLog{},
	)
}
