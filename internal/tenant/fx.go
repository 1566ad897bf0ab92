package tenant

import (
	"github.com/loomsite/loomsite/internal/tenant/repository"
	"github.com/loomsite/loomsite/internal/tenant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tenant.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
