package tenantdomain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/loomsite/loomsite/internal/config"
	tenantmodel "github.com/loomsite/loomsite/internal/tenant/domain"
	"github.com/loomsite/loomsite/internal/tenantdomain/dns"
	"github.com/loomsite/loomsite/internal/tenantdomain/registrar"
	"github.com/loomsite/loomsite/internal/tenantdomain/repository"
	"github.com/loomsite/loomsite/internal/tenantdomain/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("tenantdomain.service",
	fx.Provide(repository.Provide),
	fx.Provide(dns.NewResolver),
	fx.Provide(NewRegistrar),
	fx.Provide(NewRedisClient),
	fx.Provide(service.NewVerifyLease),
	fx.Provide(NewTenantPlans),
	fx.Provide(service.New),
)

func NewRegistrar(cfg config.Config, log *zap.Logger) registrar.Registrar {
	return registrar.NewVercelClient(cfg, log)
}

// NewRedisClient builds the shared redis client, or nil when no address is
// configured. The verify lease degrades to unserialized mode on nil.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Info("redis not configured, verify leases disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}

type tenantPlans struct {
	tenants tenantmodel.Repository
}

func NewTenantPlans(tenants tenantmodel.Repository) service.TenantPlans {
	return &tenantPlans{tenants: tenants}
}

func (p *tenantPlans) PlanKey(ctx context.Context, tenantID snowflake.ID) (string, error) {
	tenant, err := p.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return "", err
	}
	return tenant.PlanKey, nil
}
