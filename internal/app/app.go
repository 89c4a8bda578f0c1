package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Temutjin2k/taxi-dispatch/config"
	"github.com/Temutjin2k/taxi-dispatch/internal/app/microservices"
	"github.com/Temutjin2k/taxi-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/taxi-dispatch/pkg/logger/wrapper"
)

var ErrServiceNotInitialized = errors.New("service not initialized")

// Service is a runnable unit that blocks in Start until it is shut down.
type Service interface {
	Start(ctx context.Context) error
}

type App struct {
	service Service
	log     logger.Logger
}

// NewApplication wires every dependency of the dispatch service.
func NewApplication(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	service, err := microservices.NewDispatch(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init dispatch service: %w", err)
	}

	return &App{service: service, log: log}, nil
}

// Run blocks until the service stops or a shutdown signal arrives.
func (a *App) Run(ctx context.Context) error {
	if a.service == nil {
		return ErrServiceNotInitialized
	}

	ctx = wrap.WithAction(ctx, "app_run")
	if err := a.service.Start(ctx); err != nil {
		return fmt.Errorf("dispatch service stopped: %w", err)
	}

	a.log.Info(ctx, "application stopped")
	return nil
}
