package auth

import (
	"github.com/loomsite/loomsite/internal/auth/repository"
	"github.com/loomsite/loomsite/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
