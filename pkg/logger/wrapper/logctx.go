package wrap

import (
	"context"
	"log/slog"
)

type (
	// LogCtx holds the request and domain identifiers attached to every log record.
	LogCtx struct {
		Action    string
		UserID    string
		RequestID string
		TripID    string
		DriverID  string
		VehicleID string
	}

	logCtxKeyStruct struct{}
)

// LogCtxKey is the key for log context values
var LogCtxKey = &logCtxKeyStruct{}

// FromContext returns the LogCtx stored in ctx, or an empty one.
func FromContext(ctx context.Context) LogCtx {
	if lc, ok := ctx.Value(LogCtxKey).(LogCtx); ok {
		return lc
	}
	return LogCtx{}
}

// Attrs returns the non-empty fields as slog attributes.
func (c LogCtx) Attrs() []slog.Attr {
	fields := [...]struct{ key, val string }{
		{"action", c.Action},
		{"user_id", c.UserID},
		{"request_id", c.RequestID},
		{"trip_id", c.TripID},
		{"driver_id", c.DriverID},
		{"vehicle_id", c.VehicleID},
	}

	attrs := make([]slog.Attr, 0, len(fields))
	for _, f := range fields {
		if f.val != "" {
			attrs = append(attrs, slog.String(f.key, f.val))
		}
	}
	return attrs
}

// merge returns base with every non-empty field of over applied on top.
func merge(base, over LogCtx) LogCtx {
	pick := func(b, o string) string {
		if o != "" {
			return o
		}
		return b
	}

	return LogCtx{
		Action:    pick(base.Action, over.Action),
		UserID:    pick(base.UserID, over.UserID),
		RequestID: pick(base.RequestID, over.RequestID),
		TripID:    pick(base.TripID, over.TripID),
		DriverID:  pick(base.DriverID, over.DriverID),
		VehicleID: pick(base.VehicleID, over.VehicleID),
	}
}

// WithLogCtx returns a context whose LogCtx is lc merged over the one in ctx.
func WithLogCtx(ctx context.Context, lc LogCtx) context.Context {
	return context.WithValue(ctx, LogCtxKey, merge(FromContext(ctx), lc))
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return WithLogCtx(ctx, LogCtx{UserID: userID})
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return WithLogCtx(ctx, LogCtx{RequestID: requestID})
}

func WithTripID(ctx context.Context, tripID string) context.Context {
	return WithLogCtx(ctx, LogCtx{TripID: tripID})
}

func WithDriverID(ctx context.Context, driverID string) context.Context {
	return WithLogCtx(ctx, LogCtx{DriverID: driverID})
}

func WithVehicleID(ctx context.Context, vehicleID string) context.Context {
	return WithLogCtx(ctx, LogCtx{VehicleID: vehicleID})
}

// WithAction sets the operation name reported as "action".
func WithAction(ctx context.Context, action string) context.Context {
	return WithLogCtx(ctx, LogCtx{Action: action})
}
