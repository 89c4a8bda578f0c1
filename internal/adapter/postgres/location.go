package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/taxi-dispatch/pkg/logger/wrapper"
	pg "github.com/Temutjin2k/taxi-dispatch/pkg/postgres"
)

const fixColumns = `id, vehicle_id, latitude, longitude, speed, heading, accuracy, altitude, COALESCE(device_id, ''), timestamp`

// LocationRepo stores GPS fixes. Rows are never updated.
type LocationRepo struct {
	db *pgxpool.Pool
}

func NewLocationRepo(db *pgxpool.Pool) *LocationRepo {
	return &LocationRepo{db: db}
}

func (r *LocationRepo) Save(ctx context.Context, fix *models.Fix) (err error) {
	const op = "LocationRepo.Save"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		INSERT INTO gps_locations (vehicle_id, latitude, longitude, speed, heading, accuracy, altitude, device_id, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)
		RETURNING id;`

	err = TxorDB(ctx, r.db).QueryRow(ctx, query,
		fix.VehicleID,
		fix.Lat,
		fix.Lng,
		fix.Speed,
		fix.Heading,
		fix.Accuracy,
		fix.Altitude,
		fix.DeviceID,
		fix.Timestamp,
	).Scan(&fix.ID)
	if err != nil {
		if pg.IsForeignKeyViolation(err) {
			return types.ErrVehicleNotFound
		}
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return nil
}

// LatestFix returns the newest fix of vehicleID or ErrNotFound.
func (r *LocationRepo) LatestFix(ctx context.Context, vehicleID int64) (_ *models.Fix, err error) {
	const op = "LocationRepo.LatestFix"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		SELECT ` + fixColumns + `
		FROM gps_locations
		WHERE vehicle_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT 1;`

	fix, err := scanFix(TxorDB(ctx, r.db).QueryRow(ctx, query, vehicleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return fix, nil
}

// LatestSince returns the newest fix of every vehicle whose newest fix is not older than since.
func (r *LocationRepo) LatestSince(ctx context.Context, since time.Time) (_ []*models.Fix, err error) {
	const op = "LocationRepo.LatestSince"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		SELECT * FROM (
			SELECT DISTINCT ON (vehicle_id) ` + fixColumns + `
			FROM gps_locations
			WHERE timestamp >= $1
			ORDER BY vehicle_id, timestamp DESC, id DESC
		) latest
		ORDER BY timestamp DESC;`

	return r.queryFixes(ctx, op, query, since)
}

// History returns up to limit fixes of vehicleID not older than since, newest first.
func (r *LocationRepo) History(ctx context.Context, vehicleID int64, since time.Time, limit int) (_ []*models.Fix, err error) {
	const op = "LocationRepo.History"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		SELECT ` + fixColumns + `
		FROM gps_locations
		WHERE vehicle_id = $1 AND timestamp >= $2
		ORDER BY timestamp DESC, id DESC
		LIMIT $3;`

	return r.queryFixes(ctx, op, query, vehicleID, since, limit)
}

func (r *LocationRepo) queryFixes(ctx context.Context, op, query string, args ...any) ([]*models.Fix, error) {
	rows, err := TxorDB(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	defer rows.Close()

	fixes := make([]*models.Fix, 0)
	for rows.Next() {
		fix, err := scanFix(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		fixes = append(fixes, fix)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return fixes, nil
}

func scanFix(row pgx.Row) (*models.Fix, error) {
	var f models.Fix
	err := row.Scan(
		&f.ID, &f.VehicleID, &f.Lat, &f.Lng, &f.Speed, &f.Heading, &f.Accuracy, &f.Altitude,
		&f.DeviceID, &f.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	f.Timestamp = f.Timestamp.UTC()
	return &f, nil
}
