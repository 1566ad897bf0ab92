package plan

import (
	"github.com/loomsite/loomsite/internal/plan/repository"
	"github.com/loomsite/loomsite/internal/plan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewEntitlements),
)
