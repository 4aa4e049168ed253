package pulse

import (
	"context"

	"github.com/HerbHall/uptimewatch/internal/event"
	"go.uber.org/zap"
)

// NotificationDispatcher forwards target transitions from the bus to every
// configured notifier.
type NotificationDispatcher struct {
	notifiers []Notifier
	logger    *zap.Logger
}

// NewNotificationDispatcher creates a dispatcher over notifiers.
func NewNotificationDispatcher(notifiers []Notifier, logger *zap.Logger) *NotificationDispatcher {
	return &NotificationDispatcher{
		notifiers: notifiers,
		logger:    logger,
	}
}

// Subscribe registers the dispatcher for both transition topics. The
// returned function removes the subscriptions.
func (d *NotificationDispatcher) Subscribe(bus *event.Bus) (unsubscribe func()) {
	down := bus.Subscribe(TopicTargetDown, d.HandleEvent)
	recovered := bus.Subscribe(TopicTargetRecovered, d.HandleEvent)
	return func() {
		down()
		recovered()
	}
}

// HandleEvent delivers one transition event. Delivery failures are logged
// and never retried.
func (d *NotificationDispatcher) HandleEvent(ctx context.Context, e event.Event) {
	ev, ok := e.Payload.(TransitionEvent)
	if !ok {
		d.logger.Warn("unexpected payload type for transition event",
			zap.String("topic", e.Topic),
		)
		return
	}

	eventType := EventDown
	if e.Topic == TopicTargetRecovered {
		eventType = EventRecovered
	}

	for _, n := range d.notifiers {
		if err := n.Notify(ctx, ev, eventType); err != nil {
			d.logger.Warn("notification delivery failed",
				zap.String("notifier", n.Type()),
				zap.String("target", ev.Alias),
				zap.Error(err),
			)
			continue
		}
		d.logger.Debug("notification delivered",
			zap.String("notifier", n.Type()),
			zap.String("target", ev.Alias),
			zap.String("event_type", eventType),
		)
	}
}
