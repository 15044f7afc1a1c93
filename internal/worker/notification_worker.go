package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/deptforge/agent-departments/internal/events"
	"github.com/deptforge/agent-departments/internal/service"
)

const defaultQueueSize = 256

// NotificationWorker moves notification handling off the request path.
// Events published while the queue is full are dropped and logged.
type NotificationWorker struct {
	svc    *service.NotificationService
	logger *zap.Logger
	queue  chan events.Event
	wg     sync.WaitGroup
}

// StartNotificationWorker subscribes the notification service to dispatcher
// through a buffered queue and starts draining it. The worker stops once ctx
// is done and the queue is empty; Wait blocks until then.
func StartNotificationWorker(ctx context.Context, dispatcher events.Dispatcher, svc *service.NotificationService, logger *zap.Logger) *NotificationWorker {
	if dispatcher == nil || svc == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &NotificationWorker{
		svc:    svc,
		logger: logger.Named("notification_worker"),
		queue:  make(chan events.Event, defaultQueueSize),
	}
	for _, t := range svc.EventTypes() {
		dispatcher.Subscribe(t, w.enqueue)
	}

	w.wg.Add(1)
	go w.run(ctx)
	return w
}

func (w *NotificationWorker) enqueue(_ context.Context, event events.Event) error {
	select {
	case w.queue <- event:
	default:
		w.logger.Warn("notification queue full; dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID))
	}
	return nil
}

func (w *NotificationWorker) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case event := <-w.queue:
			w.handle(event)
		case <-ctx.Done():
			for {
				select {
				case event := <-w.queue:
					w.handle(event)
				default:
					return
				}
			}
		}
	}
}

func (w *NotificationWorker) handle(event events.Event) {
	if err := w.svc.Handle(context.Background(), event); err != nil {
		w.logger.Warn("notification failed", zap.String("event_id", event.ID), zap.Error(err))
	}
}

// Wait blocks until the worker has drained and stopped.
func (w *NotificationWorker) Wait() {
	if w == nil {
		return
	}
	w.wg.Wait()
}
