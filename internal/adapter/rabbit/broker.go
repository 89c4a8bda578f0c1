package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	"github.com/Temutjin2k/taxi-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/taxi-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/taxi-dispatch/pkg/metrics"
	"github.com/Temutjin2k/taxi-dispatch/pkg/rabbit"
)

const (
	DefaultExchange = "taxi_events"

	tripKeyPrefix = "trip."
	KeyLocation   = "location.update"

	bindTrips     = "trip.*"
	bindLocations = "location.*"

	metricsService = "dispatch"

	publishAttempts = 3
	publishBackoff  = 500 * time.Millisecond
	reconnectPause  = 2 * time.Second
)

// LocalNotifier delivers events to the realtime subscribers of this instance.
type LocalNotifier interface {
	NotifyTrip(ctx context.Context, event types.EventType, trip *models.Trip) error
	NotifyLocation(ctx context.Context, fix *models.Fix) error
}

// Event is the broker message body.
type Event struct {
	Type types.EventType `json:"type"`
	Trip *models.Trip    `json:"trip,omitempty"`
	Fix  *models.Fix     `json:"fix,omitempty"`
}

// EventBroker fans trip and location events out to every instance through a
// topic exchange. Each instance consumes from its own exclusive queue and hands
// the events to its LocalNotifier in publish order.
type EventBroker struct {
	client   *rabbit.RabbitMQ
	exchange string
	local    LocalNotifier

	l logger.Logger
}

func NewEventBroker(ctx context.Context, client *rabbit.RabbitMQ, exchange string, local LocalNotifier, l logger.Logger) (*EventBroker, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	b := &EventBroker{
		client:   client,
		exchange: exchange,
		local:    local,
		l:        l,
	}

	if err := b.declareExchange(ctx); err != nil {
		return nil, err
	}

	return b, nil
}

// NotifyTrip publishes a trip event. When the broker is unreachable the event
// is delivered to local subscribers only.
func (b *EventBroker) NotifyTrip(ctx context.Context, event types.EventType, trip *models.Trip) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_publish_trip_event")

	err := b.publish(ctx, tripKeyPrefix+string(event), Event{Type: event, Trip: trip})
	if err != nil {
		b.l.Error(wrap.ErrorCtx(ctx, err), "publish failed, delivering locally", err, "event", event)
		return b.local.NotifyTrip(ctx, event, trip)
	}
	return nil
}

// NotifyLocation publishes a location update, falling back to local delivery.
func (b *EventBroker) NotifyLocation(ctx context.Context, fix *models.Fix) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_publish_location")

	err := b.publish(ctx, KeyLocation, Event{Type: types.EventLocationUpdate, Fix: fix})
	if err != nil {
		b.l.Error(wrap.ErrorCtx(ctx, err), "publish failed, delivering locally", err)
		return b.local.NotifyLocation(ctx, fix)
	}
	return nil
}

func (b *EventBroker) publish(ctx context.Context, key string, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: wrap.FromContext(ctx).RequestID,
		Body:          body,
		Timestamp:     time.Now().UTC(),
	}

	err = retry(ctx, publishAttempts, publishBackoff, func() error {
		if err := b.client.EnsureConnection(ctx); err != nil {
			return err
		}
		ch, err := b.client.CurrentChannel()
		if err != nil {
			return err
		}
		return ch.PublishWithContext(ctx, b.exchange, key, false, false, pub)
	})
	metrics.RecordRabbitMQPublish(metricsService, key, err)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%w: %s: %v", types.ErrPublishFailed, key, err))
	}

	return nil
}

// Consume delivers broker events to the local notifier until ctx is done. The
// connection is re-established when it drops.
func (b *EventBroker) Consume(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_consume_events")

	for {
		if ctx.Err() != nil {
			b.l.Debug(ctx, "event consumer stopped by context")
			return nil
		}

		if err := b.client.EnsureConnection(ctx); err != nil {
			b.l.Error(ctx, "ensure connection failed", err)
			pause(ctx, reconnectPause)
			continue
		}

		msgs, err := b.subscribe(ctx)
		if err != nil {
			b.l.Error(ctx, "subscribe failed", err)
			pause(ctx, reconnectPause)
			continue
		}

		b.l.Info(ctx, "start consuming events", "exchange", b.exchange)

	consumeLoop:
		for {
			select {
			case <-ctx.Done():
				b.l.Info(ctx, "event consumer shutting down")
				return nil

			case msg, ok := <-msgs:
				if !ok {
					b.l.Warn(ctx, "message channel closed, reconnecting...")
					pause(ctx, reconnectPause)
					break consumeLoop
				}

				// sequential on purpose: events of one trip must reach peers in order
				b.handle(ctx, msg)
			}
		}
	}
}

func (b *EventBroker) subscribe(ctx context.Context) (<-chan amqp.Delivery, error) {
	const op = "EventBroker.subscribe"

	ch, err := b.client.CurrentChannel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// server named, removed with the connection
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: declare queue failed: %w", op, err))
	}

	for _, key := range []string{bindTrips, bindLocations} {
		if err := ch.QueueBind(q.Name, key, b.exchange, false, nil); err != nil {
			return nil, wrap.Error(ctx, fmt.Errorf("%s: bind %s failed: %w", op, key, err))
		}
	}

	msgs, err := ch.ConsumeWithContext(ctx, q.Name, "", false, true, false, false, nil)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: consume failed: %w", op, err))
	}

	return msgs, nil
}

func (b *EventBroker) handle(ctx context.Context, msg amqp.Delivery) {
	ctx = wrap.WithRequestID(ctx, msg.CorrelationId)

	err := b.deliver(ctx, msg.Body)
	metrics.RecordRabbitMQConsume(metricsService, msg.RoutingKey, err)

	if err != nil {
		b.l.Error(wrap.ErrorCtx(ctx, err), "failed to handle event", err, "routing_key", msg.RoutingKey)
		// realtime delivery is not retried
		_ = msg.Nack(false, false)
		return
	}

	if err := msg.Ack(false); err != nil {
		b.l.Warn(ctx, "ack failed", "error", err.Error())
	}
}

func (b *EventBroker) deliver(ctx context.Context, body []byte) error {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}

	switch {
	case event.Type == types.EventLocationUpdate && event.Fix != nil:
		ctx = wrap.WithVehicleID(ctx, strconv.FormatInt(event.Fix.VehicleID, 10))
		return b.local.NotifyLocation(ctx, event.Fix)
	case event.Trip != nil:
		ctx = wrap.WithTripID(ctx, strconv.FormatInt(event.Trip.ID, 10))
		return b.local.NotifyTrip(ctx, event.Type, event.Trip)
	default:
		return fmt.Errorf("malformed %q event", event.Type)
	}
}

func (b *EventBroker) declareExchange(ctx context.Context) error {
	const op = "EventBroker.declareExchange"

	ch, err := b.client.CurrentChannel()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := ch.ExchangeDeclare(b.exchange, "topic", true, false, false, false, nil); err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}
