package menu

import (
	"github.com/platefulhq/plateful/internal/menu/repository"
	"github.com/platefulhq/plateful/internal/menu/service"
	"go.uber.org/fx"
)

var Module = fx.Module("menu.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
