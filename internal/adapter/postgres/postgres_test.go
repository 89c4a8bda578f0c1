package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	"github.com/Temutjin2k/taxi-dispatch/migrations"
	pg "github.com/Temutjin2k/taxi-dispatch/pkg/postgres"
	"github.com/Temutjin2k/taxi-dispatch/pkg/trm"
)

// startPostgres runs a disposable database with the schema applied.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}

	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "taxi",
				"POSTGRES_PASSWORD": "taxi",
				"POSTGRES_DB":       "taxi",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://taxi:taxi@%s:%s/taxi?sslmode=disable", host, port.Port())
	require.NoError(t, pg.Migrate(dsn, migrations.FS))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

// seedDriver inserts a driver with an assigned active vehicle and returns both ids.
func seedDriver(t *testing.T, pool *pgxpool.Pool, status types.DriverStatus, plate string) (driverID, vehicleID int64) {
	t.Helper()
	ctx := context.Background()

	err := pool.QueryRow(ctx,
		`INSERT INTO drivers (user_id, license_number, status) VALUES ($1, $2, $3) RETURNING id`,
		time.Now().UnixNano(), "LIC-"+plate, status,
	).Scan(&driverID)
	require.NoError(t, err)

	err = pool.QueryRow(ctx,
		`INSERT INTO vehicles (license_plate, make, model, current_driver_id) VALUES ($1, 'Toyota', 'Camry', $2) RETURNING id`,
		plate, driverID,
	).Scan(&vehicleID)
	require.NoError(t, err)

	return driverID, vehicleID
}

func TestRepositories(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()

	trips := NewTripRepo(pool)
	events := NewTripEventRepo(pool)
	drivers := NewDriverRepo(pool)
	vehicles := NewVehicleRepo(pool)
	locations := NewLocationRepo(pool)

	onDutyID, vehicleID := seedDriver(t, pool, types.DriverOnDuty, "A001")
	_, _ = seedDriver(t, pool, types.DriverOffDuty, "A002")

	t.Run("drivers on duty", func(t *testing.T) {
		list, err := drivers.OnDuty(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, onDutyID, list[0].DriverID)
		require.NotNil(t, list[0].VehicleID)
		assert.Equal(t, vehicleID, *list[0].VehicleID)
	})

	t.Run("vehicle exists", func(t *testing.T) {
		ok, err := vehicles.Exists(ctx, vehicleID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = vehicles.Exists(ctx, -1)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("trip lifecycle", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Microsecond)
		customerID := int64(500)
		trip := &models.Trip{
			CustomerID:    &customerID,
			DriverID:      &onDutyID,
			VehicleID:     &vehicleID,
			Pickup:        models.Point{Lat: 43.2, Lng: 76.9, Address: "Abay Ave 1"},
			Destination:   models.Point{Lat: 43.25, Lng: 76.95},
			Status:        types.TripRequested,
			EstimatedFare: 9.51,
			DistanceKm:    5,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		require.NoError(t, trips.Create(ctx, trip))
		require.NotZero(t, trip.ID)
		require.NoError(t, events.Append(ctx, &models.TripEvent{TripID: trip.ID, To: types.TripRequested, CreatedAt: now}))

		got, err := trips.Get(ctx, trip.ID)
		require.NoError(t, err)
		assert.Equal(t, trip.Pickup, got.Pickup)
		assert.Equal(t, 9.51, got.EstimatedFare)
		assert.Nil(t, got.FinalFare)

		got.Status = types.TripAccepted
		require.NoError(t, trips.UpdateStatus(ctx, got, types.TripRequested))

		// the stored status is ACCEPTED now, so a second writer expecting REQUESTED loses
		got.Status = types.TripCancelled
		err = trips.UpdateStatus(ctx, got, types.TripRequested)
		assert.ErrorIs(t, err, types.ErrInvalidState)

		stored, err := trips.Get(ctx, trip.ID)
		require.NoError(t, err)
		assert.Equal(t, types.TripAccepted, stored.Status)

		list, err := trips.List(ctx, models.TripFilter{CustomerID: &customerID, Status: types.TripAccepted, Limit: 10})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, trip.ID, list[0].ID)

		_, err = trips.Get(ctx, -1)
		assert.ErrorIs(t, err, types.ErrTripNotFound)
	})

	t.Run("transaction rollback", func(t *testing.T) {
		tx := trm.New(pool)
		boom := errors.New("boom")
		var id int64

		err := tx.Do(ctx, func(ctx context.Context) error {
			trip := &models.Trip{Status: types.TripRequested, CreatedAt: time.Now(), UpdatedAt: time.Now()}
			if err := trips.Create(ctx, trip); err != nil {
				return err
			}
			id = trip.ID
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = trips.Get(ctx, id)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("locations", func(t *testing.T) {
		base := time.Now().UTC().Truncate(time.Millisecond)
		speed := 30.0

		for i := range 3 {
			fix := &models.Fix{
				VehicleID: vehicleID,
				Lat:       43.2 + float64(i)*0.001,
				Lng:       76.9,
				Speed:     &speed,
				DeviceID:  "esp32-1",
				Timestamp: base.Add(time.Duration(i) * time.Minute),
			}
			require.NoError(t, locations.Save(ctx, fix))
			require.NotZero(t, fix.ID)
		}

		latest, err := locations.LatestFix(ctx, vehicleID)
		require.NoError(t, err)
		assert.True(t, latest.Timestamp.Equal(base.Add(2*time.Minute)))
		assert.Equal(t, "esp32-1", latest.DeviceID)

		live, err := locations.LatestSince(ctx, base.Add(time.Minute))
		require.NoError(t, err)
		require.Len(t, live, 1)
		assert.Equal(t, latest.ID, live[0].ID)

		history, err := locations.History(ctx, vehicleID, base, 2)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.True(t, history[0].Timestamp.After(history[1].Timestamp))

		_, err = locations.LatestFix(ctx, -1)
		assert.ErrorIs(t, err, types.ErrNotFound)

		err = locations.Save(ctx, &models.Fix{VehicleID: -1, Timestamp: base})
		assert.ErrorIs(t, err, types.ErrVehicleNotFound)
	})
}
