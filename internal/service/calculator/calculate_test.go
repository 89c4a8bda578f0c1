package calculator

import (
	"testing"
	"time"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	almaty := models.Point{Lat: 43.2389, Lng: 76.8897}
	astana := models.Point{Lat: 51.1605, Lng: 71.4704}

	t.Run("same point is zero", func(t *testing.T) {
		assert.Zero(t, DistanceKm(almaty, almaty))
	})

	t.Run("symmetric", func(t *testing.T) {
		assert.Equal(t, DistanceKm(almaty, astana), DistanceKm(astana, almaty))
	})

	t.Run("known distance", func(t *testing.T) {
		assert.InDelta(t, 970, DistanceKm(almaty, astana), 10)
	})

	t.Run("small offset on equator", func(t *testing.T) {
		d := DistanceKm(models.Point{}, models.Point{Lat: 0, Lng: 0.045})
		assert.InDelta(t, 5.0, d, 0.01)
	})

	t.Run("antipodal", func(t *testing.T) {
		d := DistanceKm(models.Point{Lat: 0, Lng: 0}, models.Point{Lat: 0, Lng: 180})
		assert.InDelta(t, 20015.1, d, 0.1)
	})
}

func TestEstimateFare(t *testing.T) {
	assert.InDelta(t, 2.00, EstimateFare(0), 1e-9)
	assert.InDelta(t, 9.50, EstimateFare(5), 1e-9)

	c := New(Tariff{Base: 3, PerKm: 2})
	assert.InDelta(t, 13.0, c.EstimateFare(5), 1e-9)
}

func TestEstimateFareMonotonic(t *testing.T) {
	prev := EstimateFare(0)
	for km := 0.5; km < 50; km += 0.5 {
		cur := EstimateFare(km)
		assert.Greater(t, cur, prev)
		prev = cur
	}
}

func TestDurationMinutes(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DurationMinutes(start, start))
	assert.Equal(t, 0, DurationMinutes(start, start.Add(59*time.Second)))
	assert.Equal(t, 12, DurationMinutes(start, start.Add(12*time.Minute+30*time.Second)))
	assert.Equal(t, 0, DurationMinutes(start, start.Add(-time.Minute)))
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 9.5, RoundMoney(9.4999999))
	assert.Equal(t, 1.01, RoundMoney(1.005000001))
	assert.Equal(t, 2.0, RoundMoney(2))
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(90, -180))
	assert.False(t, ValidCoordinates(90.1, 0))
	assert.False(t, ValidCoordinates(0, 180.5))
}
