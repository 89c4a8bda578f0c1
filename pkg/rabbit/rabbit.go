package rabbit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	"github.com/Temutjin2k/taxi-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/taxi-dispatch/pkg/logger/wrapper"
)

const (
	heartbeat         = 10 * time.Second
	reconnectAttempts = 5
	reconnectBackoff  = 2 * time.Second
)

var ErrClosed = errors.New("rabbitmq connection is closed")

// RabbitMQ owns one AMQP connection and channel. When either drops the client
// is marked closed and EnsureConnection dials again.
type RabbitMQ struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  bool
	// gen increases with every dial so a watcher of an old connection cannot
	// mark a newer one closed.
	gen      uint64
	shutdown bool

	dsn string
	log logger.Logger
}

// New dials dsn and opens a channel.
func New(ctx context.Context, dsn string, log logger.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{dsn: dsn, log: log}

	conn, ch, err := dial(dsn)
	if err != nil {
		return nil, err
	}
	r.attach(conn, ch)

	log.Info(wrap.WithAction(ctx, types.ActionRabbitMQConnected), "connected to rabbitMQ")
	return r, nil
}

func dial(dsn string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(dsn, amqp.Config{Heartbeat: heartbeat})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	return conn, ch, nil
}

// attach installs conn and ch and starts watching them. r.mu must not be held.
func (r *RabbitMQ) attach(conn *amqp.Connection, ch *amqp.Channel) {
	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

	r.mu.Lock()
	r.conn, r.channel, r.closed = conn, ch, false
	r.gen++
	gen := r.gen
	r.mu.Unlock()

	go r.watch(gen, connClosed, chClosed)
}

func (r *RabbitMQ) watch(gen uint64, connClosed, chClosed <-chan *amqp.Error) {
	var (
		cause *amqp.Error
		what  string
	)
	select {
	case cause = <-connClosed:
		what = "connection"
	case cause = <-chClosed:
		what = "channel"
	}

	r.mu.Lock()
	if r.gen == gen {
		r.closed = true
	}
	r.mu.Unlock()

	ctx := wrap.WithAction(context.Background(), types.ActionRabbitConnectionClosed)
	if cause != nil {
		r.log.Error(ctx, "RabbitMQ "+what+" closed", cause)
		return
	}
	r.log.Debug(ctx, "RabbitMQ "+what+" closed gracefully")
}

// IsConnectionClosed reports whether the connection or channel is gone.
func (r *RabbitMQ) IsConnectionClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.channel == nil {
		return true
	}
	return r.closed || r.conn.IsClosed() || r.channel.IsClosed()
}

// CurrentChannel returns the channel of the live connection. It changes after a reconnect.
func (r *RabbitMQ) CurrentChannel() (*amqp.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.channel == nil || r.channel.IsClosed() {
		return nil, ErrClosed
	}
	return r.channel, nil
}

// EnsureConnection dials again when the connection is down. Attempts back off
// linearly and stop when ctx is done.
func (r *RabbitMQ) EnsureConnection(ctx context.Context) error {
	if !r.IsConnectionClosed() {
		return nil
	}

	r.mu.Lock()
	shutdown := r.shutdown
	r.mu.Unlock()
	if shutdown {
		return ErrClosed
	}

	r.log.Warn(ctx, "rabbit connection closed, reconnecting")

	var err error
	for i := range reconnectAttempts {
		var (
			conn *amqp.Connection
			ch   *amqp.Channel
		)
		if conn, ch, err = dial(r.dsn); err == nil {
			r.attach(conn, ch)
			r.log.Info(wrap.WithAction(ctx, types.ActionRabbitReconnected), "RabbitMQ reconnected successfully")
			return nil
		}

		wait := time.Duration(i+1) * reconnectBackoff
		r.log.Debug(ctx, "reconnect attempt failed", "attempt", i+1, "retry_in", wait.String(), "error", err.Error())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return fmt.Errorf("failed to reconnect to RabbitMQ: %w", err)
}

// Close closes the channel and the connection. It gives up waiting when ctx is done.
func (r *RabbitMQ) Close(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, types.ActionRabbitConnectionClosing)

	r.mu.Lock()
	if r.shutdown {
		r.mu.Unlock()
		return nil
	}
	r.shutdown, r.closed = true, true
	ch, conn := r.channel, r.conn
	r.channel, r.conn = nil, nil
	r.mu.Unlock()

	if ch != nil {
		if err := withContext(ctx, ch.Close); err != nil && ctx.Err() == nil {
			r.log.Warn(ctx, "error closing channel", "error", err.Error())
		}
	}

	if conn != nil {
		if err := withContext(ctx, conn.Close); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}

	r.log.Info(wrap.WithAction(ctx, types.ActionRabbitConnectionClosed), "rabbitMQ closed")
	return nil
}

// withContext runs fn and returns early with ctx.Err() when ctx is done first.
func withContext(ctx context.Context, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
