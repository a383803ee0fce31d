package account

import (
	"github.com/platefulhq/plateful/internal/account/repository"
	"github.com/platefulhq/plateful/internal/account/service"
	"go.uber.org/fx"
)

var Module = fx.Module("account.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
