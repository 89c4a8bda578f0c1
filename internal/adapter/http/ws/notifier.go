package wshandler

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	"github.com/Temutjin2k/taxi-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/taxi-dispatch/pkg/logger/wrapper"
	ws "github.com/Temutjin2k/taxi-dispatch/pkg/wsHub"
)

// Notifier routes domain events to the realtime subscribers of this process.
type Notifier struct {
	hub *ws.Hub
	l   logger.Logger
}

func NewNotifier(hub *ws.Hub, l logger.Logger) *Notifier {
	return &Notifier{
		hub: hub,
		l:   l,
	}
}

// NotifyTrip pushes event to everyone interested in trip.
//
// new_trip goes to every connected driver. trip_accepted goes to the trip
// audience and is followed by trip_taken to all other drivers. Any other event
// goes to the trip audience only.
func (n *Notifier) NotifyTrip(ctx context.Context, event types.EventType, trip *models.Trip) error {
	ctx = wrap.WithAction(ctx, types.ActionNotify)
	ctx = wrap.WithTripID(ctx, strconv.FormatInt(trip.ID, 10))

	msg, err := encode(models.Message{Type: event, Trip: trip})
	if err != nil {
		return wrap.Error(ctx, err)
	}

	if event == types.EventNewTrip {
		delivered := n.hub.BroadcastDrivers(ctx, msg)
		n.l.Debug(ctx, "new trip broadcast", "event", event, "delivered", delivered)
		return nil
	}

	n.sendTripAudience(ctx, trip, msg)

	if event == types.EventTripAccepted {
		taken, err := encode(models.Message{Type: types.EventTripTaken, Trip: trip})
		if err != nil {
			return wrap.Error(ctx, err)
		}

		var exclude []int64
		if trip.DriverID != nil {
			exclude = append(exclude, *trip.DriverID)
		}
		delivered := n.hub.BroadcastDrivers(ctx, taken, exclude...)
		n.l.Debug(ctx, "trip taken broadcast", "delivered", delivered)
	}

	return nil
}

// NotifyLocation pushes fix to the tracking feed and to the subscribers of its vehicle.
func (n *Notifier) NotifyLocation(ctx context.Context, fix *models.Fix) error {
	ctx = wrap.WithAction(ctx, types.ActionNotify)
	ctx = wrap.WithVehicleID(ctx, strconv.FormatInt(fix.VehicleID, 10))

	msg, err := encode(models.Message{Type: types.EventLocationUpdate, Data: fix})
	if err != nil {
		return wrap.Error(ctx, err)
	}

	n.hub.BroadcastTracking(ctx, msg)
	n.hub.SendVehicle(ctx, fix.VehicleID, msg)
	return nil
}

// sendTripAudience delivers msg to the watchers, the customer and the driver of trip.
// Delivery failures have already evicted the peer and are only logged.
func (n *Notifier) sendTripAudience(ctx context.Context, trip *models.Trip, msg []byte) {
	n.hub.BroadcastTrip(ctx, trip.ID, msg)

	if trip.CustomerID != nil {
		if err := n.hub.SendCustomer(ctx, *trip.CustomerID, msg); err != nil {
			n.l.Debug(ctx, "customer notification dropped", "customer_id", *trip.CustomerID, "error", err.Error())
		}
	}
	if trip.DriverID != nil {
		if err := n.hub.SendDriver(ctx, *trip.DriverID, msg); err != nil {
			n.l.Debug(ctx, "driver notification dropped", "driver_id", *trip.DriverID, "error", err.Error())
		}
	}
}

func encode(m models.Message) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", m.Type, err)
	}
	return b, nil
}
