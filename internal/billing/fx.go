package billing

import (
	"github.com/loomsite/loomsite/internal/billing/repository"
	"github.com/loomsite/loomsite/internal/billing/service"
	"github.com/loomsite/loomsite/internal/billing/stripe"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(stripe.NewClient),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
