package referral

import (
	"context"

	orderdomain "github.com/platefulhq/plateful/internal/order/domain"
	"go.uber.org/fx"
)

func asEnqueuer(w *Worker) orderdomain.RewardEnqueuer { return w }

func registerWorker(lc fx.Lifecycle, worker *Worker) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			worker.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return worker.Stop(ctx)
		},
	})
}

var Module = fx.Module("referral.service",
	fx.Provide(NewProcessor),
	fx.Provide(NewWorker),
	fx.Provide(asEnqueuer),
	fx.Invoke(registerWorker),
)
