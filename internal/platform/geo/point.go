// Package geo holds the GeoJSON point used for hospital and pharmacy
// locations.
package geo

import (
	"errors"
	"math"
)

const TypePoint = "Point"

// Point is a GeoJSON point. Coordinates are [longitude, latitude].
type Point struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

var (
	ErrLatitude  = errors.New("latitude must be between -90 and 90")
	ErrLongitude = errors.New("longitude must be between -180 and 180")
)

// NewPoint validates the pair and returns it in GeoJSON order.
func NewPoint(lat, lng float64) (Point, error) {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return Point{}, ErrLatitude
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return Point{}, ErrLongitude
	}
	return Point{Type: TypePoint, Coordinates: []float64{lng, lat}}, nil
}

// Origin is the placeholder location of accounts that gave none.
func Origin() Point {
	return Point{Type: TypePoint, Coordinates: []float64{0, 0}}
}

func (p Point) Lng() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[0]
}

func (p Point) Lat() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}
