package locator

import (
	"math"

	"github.com/pauljones0/grocery-deals/internal/models"
)

// SearchMargin is the half-width in degrees of the box searched around the user.
const SearchMargin = 0.15

const earthRadiusKm = 6371.0

// BoundingBox is a lat/lng rectangle.
type BoundingBox struct {
	West, North, East, South float64
}

// BoxAround returns the square of side 2*margin degrees centered on c.
func BoxAround(c models.Coordinate, margin float64) BoundingBox {
	return BoundingBox{
		West:  c.Lng - margin,
		North: c.Lat + margin,
		East:  c.Lng + margin,
		South: c.Lat - margin,
	}
}

func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.South && lat <= b.North && lng >= b.West && lng <= b.East
}

// haversineKm is the great-circle distance between two points.
func haversineKm(a, b models.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
