package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/taxi-dispatch/pkg/logger/wrapper"
)

// TripEventRepo is the append-only audit log of trip status changes.
type TripEventRepo struct {
	db *pgxpool.Pool
}

func NewTripEventRepo(db *pgxpool.Pool) *TripEventRepo {
	return &TripEventRepo{db: db}
}

func (r *TripEventRepo) Append(ctx context.Context, event *models.TripEvent) (err error) {
	const op = "TripEventRepo.Append"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		INSERT INTO trip_events (trip_id, from_status, to_status, driver_id, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5)
		RETURNING id;`

	err = TxorDB(ctx, r.db).QueryRow(ctx, query,
		event.TripID,
		string(event.From),
		event.To,
		event.DriverID,
		event.CreatedAt,
	).Scan(&event.ID)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return nil
}
