package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/taxi-dispatch/config"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	"github.com/Temutjin2k/taxi-dispatch/internal/service/auth"
	"github.com/Temutjin2k/taxi-dispatch/migrations"
	"github.com/Temutjin2k/taxi-dispatch/pkg/logger"
	"github.com/Temutjin2k/taxi-dispatch/pkg/postgres"
)

var (
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
	tokenTTL   = flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the printed access tokens")
)

// seed creates demo drivers with vehicles and prints access tokens for local testing.
func main() {
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	if err := postgres.Migrate(cfg.Database.MigrateDSN(), migrations.FS); err != nil {
		log.Fatal(err)
	}

	client, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	drivers, err := seedDrivers(client.Pool)
	if err != nil {
		log.Fatal(err)
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, logger.New(io.Discard, "seed", logger.LevelError))

	users := []*models.User{
		{ID: 1, Role: types.RoleAdmin},
		{ID: 1000, Role: types.RoleCustomer},
	}
	for i, d := range drivers {
		users = append(users, &models.User{ID: int64(2000 + i), Role: types.RoleDriver, DriverID: &d.driverID})
	}

	for _, u := range users {
		token, err := tokens.Sign(u, *tokenTTL)
		if err != nil {
			log.Fatal(err)
		}

		label := fmt.Sprintf("%s user=%d", u.Role, u.ID)
		if u.DriverID != nil {
			label += fmt.Sprintf(" driver=%d", *u.DriverID)
		}
		fmt.Printf("%s\n  %s\n", label, token)
	}

	for _, d := range drivers {
		fmt.Printf("vehicle %d (%s) is driven by driver %d\n", d.vehicleID, d.plate, d.driverID)
	}
}

type seeded struct {
	driverID  int64
	vehicleID int64
	plate     string
}

func seedDrivers(db *pgxpool.Pool) ([]seeded, error) {
	// short timeout for seeding operations
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	demo := []struct {
		userID  int64
		license string
		plate   string
		make    string
		model   string
	}{
		{2000, "DRV-0001", "777AAA02", "Toyota", "Camry"},
		{2001, "DRV-0002", "123KZA02", "Hyundai", "Sonata"},
		{2002, "DRV-0003", "555BBB02", "Kia", "K5"},
	}

	out := make([]seeded, 0, len(demo))
	for _, d := range demo {
		var s seeded
		s.plate = d.plate

		err := db.QueryRow(ctx, `
			INSERT INTO drivers (user_id, license_number, status)
			VALUES ($1, $2, 'ON_DUTY')
			ON CONFLICT (user_id) DO UPDATE SET status = 'ON_DUTY', updated_at = now()
			RETURNING id`,
			d.userID, d.license,
		).Scan(&s.driverID)
		if err != nil {
			return nil, fmt.Errorf("seed driver %s: %w", d.license, err)
		}

		err = db.QueryRow(ctx, `
			INSERT INTO vehicles (license_plate, make, model, current_driver_id)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (license_plate) DO UPDATE SET current_driver_id = EXCLUDED.current_driver_id, status = 'ACTIVE'
			RETURNING id`,
			d.plate, d.make, d.model, s.driverID,
		).Scan(&s.vehicleID)
		if err != nil {
			return nil, fmt.Errorf("seed vehicle %s: %w", d.plate, err)
		}

		out = append(out, s)
	}

	return out, nil
}
