package referral

import (
	"context"
	"sync"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

const queueSize = 256

// Worker drains a queue of completed order IDs through the processor on
// a single background goroutine. Enqueue never blocks the caller: when
// the queue is full the order is dropped and logged, and the reward is
// picked up again when the user's next completed order is evaluated.
type Worker struct {
	log       *zap.Logger
	processor *Processor

	queue chan snowflake.ID
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

func NewWorker(log *zap.Logger, processor *Processor) *Worker {
	return &Worker{
		log:       log.Named("referral.worker"),
		processor: processor,
		queue:     make(chan snowflake.ID, queueSize),
		done:      make(chan struct{}),
	}
}

// Enqueue schedules a completed order for reward evaluation. After Stop
// it is a logged no-op.
func (w *Worker) Enqueue(orderID snowflake.ID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.log.Warn("referral worker stopped, dropping order",
			zap.String("order_id", orderID.String()),
		)
		return
	}
	select {
	case w.queue <- orderID:
	default:
		w.log.Warn("referral queue full, dropping order",
			zap.String("order_id", orderID.String()),
		)
	}
}

// Start launches the drain loop. Stop closes the queue and waits for
// the in-flight items to finish.
func (w *Worker) Start() {
	go func() {
		defer close(w.done)
		for orderID := range w.queue {
			if err := w.processor.ProcessReward(context.Background(), orderID); err != nil {
				w.log.Error("referral reward processing failed",
					zap.String("order_id", orderID.String()),
					zap.Error(err),
				)
			}
		}
	}()
}

func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
