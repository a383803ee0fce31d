package order

import (
	"github.com/platefulhq/plateful/internal/config"
	"github.com/platefulhq/plateful/internal/order/livefeed"
	"github.com/platefulhq/plateful/internal/order/repository"
	"github.com/platefulhq/plateful/internal/order/service"
	"go.uber.org/fx"
)

func newHub(rewards *config.RewardsConfigHolder) *livefeed.Hub {
	return livefeed.New(rewards.Get().LiveFeedCapacity)
}

var Module = fx.Module("order.service",
	fx.Provide(repository.Provide),
	fx.Provide(newHub),
	fx.Provide(service.New),
)
