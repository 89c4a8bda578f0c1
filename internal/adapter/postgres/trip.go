package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/taxi-dispatch/pkg/logger/wrapper"
	pg "github.com/Temutjin2k/taxi-dispatch/pkg/postgres"
)

const tripColumns = `
	id, customer_id, vehicle_id, driver_id, pickup_location, destination, status,
	estimated_fare, fare, distance, duration, start_time, end_time, created_at, updated_at`

type TripRepo struct {
	db *pgxpool.Pool
}

func NewTripRepo(db *pgxpool.Pool) *TripRepo {
	return &TripRepo{db: db}
}

func (r *TripRepo) Create(ctx context.Context, trip *models.Trip) (err error) {
	const op = "TripRepo.Create"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		INSERT INTO trips (customer_id, vehicle_id, driver_id, pickup_location, destination, status,
		                   estimated_fare, distance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id;`

	err = TxorDB(ctx, r.db).QueryRow(ctx, query,
		trip.CustomerID,
		trip.VehicleID,
		trip.DriverID,
		trip.Pickup,
		trip.Destination,
		trip.Status,
		trip.EstimatedFare,
		trip.DistanceKm,
		trip.CreatedAt,
		trip.UpdatedAt,
	).Scan(&trip.ID)
	if err != nil {
		if pg.IsForeignKeyViolation(err) {
			return fmt.Errorf("%s: %w", op, types.ErrInvalidInput)
		}
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return nil
}

func (r *TripRepo) Get(ctx context.Context, tripID int64) (_ *models.Trip, err error) {
	const op = "TripRepo.Get"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1;`

	trip, err := scanTrip(TxorDB(ctx, r.db).QueryRow(ctx, query, tripID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrTripNotFound
		}
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return trip, nil
}

// UpdateStatus writes the mutable fields of trip if the stored status still
// equals from. Otherwise nothing is written and ErrInvalidState is returned.
func (r *TripRepo) UpdateStatus(ctx context.Context, trip *models.Trip, from types.TripStatus) (err error) {
	const op = "TripRepo.UpdateStatus"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		UPDATE trips
		SET
			status = $3,
			driver_id = $4,
			vehicle_id = $5,
			fare = $6,
			duration = $7,
			start_time = $8,
			end_time = $9,
			updated_at = $10
		WHERE id = $1 AND status = $2;`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query,
		trip.ID,
		from,
		trip.Status,
		trip.DriverID,
		trip.VehicleID,
		trip.FinalFare,
		trip.DurationMin,
		trip.StartedAt,
		trip.EndedAt,
		trip.UpdatedAt,
	)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: status is no longer %s: %w", op, from, types.ErrInvalidState)
	}

	return nil
}

// List returns trips matching filter, newest first.
func (r *TripRepo) List(ctx context.Context, filter models.TripFilter) (_ []*models.Trip, err error) {
	const op = "TripRepo.List"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.CustomerID != nil {
		add("customer_id = $%d", *filter.CustomerID)
	}
	if filter.DriverID != nil {
		add("driver_id = $%d", *filter.DriverID)
	}
	if filter.VehicleID != nil {
		add("vehicle_id = $%d", *filter.VehicleID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}

	query := `SELECT ` + tripColumns + ` FROM trips`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, filter.Limit)
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	defer rows.Close()

	trips := make([]*models.Trip, 0, filter.Limit)
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return trips, nil
}

func scanTrip(row pgx.Row) (*models.Trip, error) {
	var t models.Trip
	err := row.Scan(
		&t.ID, &t.CustomerID, &t.VehicleID, &t.DriverID, &t.Pickup, &t.Destination, &t.Status,
		&t.EstimatedFare, &t.FinalFare, &t.DistanceKm, &t.DurationMin, &t.StartedAt, &t.EndedAt,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
