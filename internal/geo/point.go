package geo

import "errors"

// Point is a geographic coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Coordinate validation errors.
var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
)

// Validate checks that the point is a real coordinate.
func (p Point) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return ErrInvalidLatitude
	}
	if p.Lng < -180 || p.Lng > 180 {
		return ErrInvalidLongitude
	}
	return nil
}
