package wallet

import (
	"github.com/platefulhq/plateful/internal/wallet/repository"
	"github.com/platefulhq/plateful/internal/wallet/service"
	"go.uber.org/fx"
)

var Module = fx.Module("wallet.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
