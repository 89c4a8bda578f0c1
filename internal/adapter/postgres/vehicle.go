package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type VehicleRepo struct {
	db *pgxpool.Pool
}

func NewVehicleRepo(db *pgxpool.Pool) *VehicleRepo {
	return &VehicleRepo{db: db}
}

func (r *VehicleRepo) Exists(ctx context.Context, vehicleID int64) (_ bool, err error) {
	const op = "VehicleRepo.Exists"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `SELECT EXISTS(SELECT 1 FROM vehicles WHERE id = $1);`

	var exists bool
	if err = TxorDB(ctx, r.db).QueryRow(ctx, query, vehicleID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}
