package calculator

import (
	"math"
	"time"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
)

const earthRadiusKm = 6371 // радиус Земли в км

// Tariff is a flat distance based fare.
type Tariff struct {
	Base  float64 // начальная ставка
	PerKm float64 // стоимость за километр
}

// DefaultTariff is used when no tariff is configured.
var DefaultTariff = Tariff{Base: 2.00, PerKm: 1.50}

// Calculator computes distances and fares for trips.
type Calculator struct {
	tariff Tariff
}

func New(tariff Tariff) *Calculator {
	return &Calculator{tariff: tariff}
}

// DistanceKm returns the great circle distance between a and b.
func (c *Calculator) DistanceKm(a, b models.Point) float64 {
	return DistanceKm(a, b)
}

// EstimateFare returns base + distanceKm * perKm.
func (c *Calculator) EstimateFare(distanceKm float64) float64 {
	return c.tariff.Base + distanceKm*c.tariff.PerKm
}

// DistanceKm вычисляет расстояние между двумя координатами по формуле гаверсинусов.
// Coordinates are not validated.
func DistanceKm(a, b models.Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Pow(math.Sin(dLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLng/2), 2)
	angle := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * angle
}

// EstimateFare applies DefaultTariff.
func EstimateFare(distanceKm float64) float64 {
	return DefaultTariff.Base + distanceKm*DefaultTariff.PerKm
}

// DurationMinutes returns whole minutes elapsed between start and end, never negative.
func DurationMinutes(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	return int(end.Sub(start) / time.Minute)
}

// RoundMoney rounds to two decimals, half away from zero.
func RoundMoney(x float64) float64 {
	return math.Round(x*100) / 100
}

// ValidCoordinates reports whether lat and lng are inside the WGS84 ranges.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
