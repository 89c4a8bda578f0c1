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

type DriverRepo struct {
	db *pgxpool.Pool
}

func NewDriverRepo(db *pgxpool.Pool) *DriverRepo {
	return &DriverRepo{
		db: db,
	}
}

// OnDuty returns every ON_DUTY driver with the vehicle currently assigned to them, if any.
func (r *DriverRepo) OnDuty(ctx context.Context) (_ []models.DriverSnapshot, err error) {
	const op = "DriverRepo.OnDuty"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		SELECT DISTINCT ON (d.id) d.id, d.status, v.id
		FROM drivers d
		LEFT JOIN vehicles v ON v.current_driver_id = d.id AND v.status = 'ACTIVE'
		WHERE d.status = $1
		ORDER BY d.id, v.id;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, types.DriverOnDuty)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	defer rows.Close()

	var drivers []models.DriverSnapshot
	for rows.Next() {
		var d models.DriverSnapshot
		if err := rows.Scan(&d.DriverID, &d.Status, &d.VehicleID); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		drivers = append(drivers, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return drivers, nil
}
