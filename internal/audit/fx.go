package audit

import (
	"github.com/loomsite/loomsite/internal/audit/repository"
	"github.com/loomsite/loomsite/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
