package latlon

import (
	"fmt"
	"math"
)

const π = math.Pi
const R = 6371e3

type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks the coordinate is a real position on the globe
func (l LatLon) Validate() error {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lon) {
		return fmt.Errorf("coordinate (%f,%f) is not a number", l.Lat, l.Lon)
	}
	if l.Lat < -90 || l.Lat > 90 {
		return fmt.Errorf("latitude %f out of range", l.Lat)
	}
	if l.Lon < -180 || l.Lon > 180 {
		return fmt.Errorf("longitude %f out of range", l.Lon)
	}
	return nil
}

func (l LatLon) String() string {
	return fmt.Sprintf("(%.6f,%.6f)", l.Lat, l.Lon)
}

func toRadians(a float64) float64 {
	return a * π / 180.0
}

func toDegrees(a float64) float64 {
	return a * 180.0 / π
}

func wrap360(d float64) float64 {
	if 0.0 <= d && d < 360.0 {
		return d
	}
	d1 := d + 360.0
	d2 := d1 - float64(int(d1/360.0)*360)
	return d2
}
