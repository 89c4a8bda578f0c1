package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	"github.com/Temutjin2k/taxi-dispatch/pkg/logger"
	"github.com/Temutjin2k/taxi-dispatch/pkg/rabbit"
)

type recorder struct {
	mu     sync.Mutex
	events []types.EventType
	fixes  []int64
}

func (r *recorder) NotifyTrip(_ context.Context, event types.EventType, _ *models.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) NotifyLocation(_ context.Context, fix *models.Fix) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fixes = append(r.fixes, fix.VehicleID)
	return nil
}

func (r *recorder) snapshot() ([]types.EventType, []int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.EventType(nil), r.events...), append([]int64(nil), r.fixes...)
}

func testLogger() logger.Logger {
	return logger.New(io.Discard, "test", logger.LevelError)
}

func TestDeliver(t *testing.T) {
	local := &recorder{}
	b := &EventBroker{local: local, l: testLogger()}
	ctx := context.Background()

	body, err := json.Marshal(Event{Type: types.EventTripAccepted, Trip: &models.Trip{ID: 5}})
	require.NoError(t, err)
	require.NoError(t, b.deliver(ctx, body))

	body, err = json.Marshal(Event{Type: types.EventLocationUpdate, Fix: &models.Fix{VehicleID: 9}})
	require.NoError(t, err)
	require.NoError(t, b.deliver(ctx, body))

	events, fixes := local.snapshot()
	assert.Equal(t, []types.EventType{types.EventTripAccepted}, events)
	assert.Equal(t, []int64{9}, fixes)

	assert.Error(t, b.deliver(ctx, []byte("{")))
	assert.Error(t, b.deliver(ctx, []byte(`{"type":"trip_started"}`)))
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := retry(ctx, 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = retry(ctx, 3, time.Millisecond, func() error {
		calls++
		return errors.New("down")
	})
	assert.EqualError(t, err, "down")
	assert.Equal(t, 3, calls)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	calls = 0
	err = retry(cancelled, 3, time.Hour, func() error {
		calls++
		return errors.New("down")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestEventBrokerRoundTrip(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "rabbitmq:3.13-alpine",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer func() { _ = container.Terminate(context.Background()) }()

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672")
	require.NoError(t, err)

	client, err := rabbit.New(ctx, fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port()), testLogger())
	require.NoError(t, err)
	defer func() { _ = client.Close(context.Background()) }()

	local := &recorder{}
	broker, err := NewEventBroker(ctx, client, "test_events", local, testLogger())
	require.NoError(t, err)

	consumeCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- broker.Consume(consumeCtx) }()

	// the queue is bound asynchronously, keep publishing until the first event arrives
	trip := &models.Trip{ID: 1, Status: types.TripRequested}
	require.Eventually(t, func() bool {
		_ = broker.NotifyTrip(ctx, types.EventNewTrip, trip)
		events, _ := local.snapshot()
		return len(events) > 0
	}, 30*time.Second, 200*time.Millisecond)

	sequence := []types.EventType{
		types.EventTripAccepted,
		types.EventDriverArrived,
		types.EventTripStarted,
		types.EventTripCompleted,
	}
	for _, e := range sequence {
		require.NoError(t, broker.NotifyTrip(ctx, e, trip))
	}
	require.NoError(t, broker.NotifyLocation(ctx, &models.Fix{VehicleID: 3}))

	// warm-up publishes may still be in flight, so only lifecycle events are compared
	lifecycle := func() []types.EventType {
		events, _ := local.snapshot()
		var out []types.EventType
		for _, e := range events {
			if e != types.EventNewTrip {
				out = append(out, e)
			}
		}
		return out
	}

	require.Eventually(t, func() bool {
		_, fixes := local.snapshot()
		return len(lifecycle()) == len(sequence) && len(fixes) == 1
	}, 10*time.Second, 50*time.Millisecond)

	assert.Equal(t, sequence, lifecycle())

	stop()
	assert.NoError(t, <-done)
}
