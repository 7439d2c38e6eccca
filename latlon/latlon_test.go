package latlon

import (
	"math"
	"testing"
)

func TestWrap360(t *testing.T) {
	a := wrap360(-1.0)
	if a != 359.0 {
		t.Errorf("wrap360(-1) = %f; want 359.0", a)
	}
	b := wrap360(361.0)
	if b != 1.0 {
		t.Errorf("wrap360(361.0) = %f; want 1.0", b)
	}
}

func TestDistanceTo(t *testing.T) {
	p1 := LatLon{Lat: 39.9522, Lon: -75.1932}
	p2 := LatLon{Lat: 39.9496, Lon: -75.1914}
	d := LatLonHaversine{}.DistanceTo(p1, p2)
	if math.Round(d) != 327 {
		t.Errorf("{%f,%f}.distanceTo({%f,%f}) = %f; want 327", p1.Lat, p1.Lon, p2.Lat, p2.Lon, d)
	}

	d = LatLonHaversine{}.DistanceTo(p1, p1)
	if d != 0 {
		t.Errorf("{%f,%f}.distanceTo(itself) = %f; want 0", p1.Lat, p1.Lon, d)
	}
}

func TestBearingTo(t *testing.T) {
	p1 := LatLon{Lat: 0, Lon: 0}
	p2 := LatLon{Lat: 1, Lon: 0}
	b := LatLonHaversine{}.BearingTo(p1, p2)
	if math.Round(b) != 0 {
		t.Errorf("{%f,%f}.bearingTo({%f,%f}) = %f; want 0", p1.Lat, p1.Lon, p2.Lat, p2.Lon, b)
	}

	p2 = LatLon{Lat: 0, Lon: -1}
	b = LatLonHaversine{}.BearingTo(p1, p2)
	if math.Round(b) != 270 {
		t.Errorf("{%f,%f}.bearingTo({%f,%f}) = %f; want 270", p1.Lat, p1.Lon, p2.Lat, p2.Lon, b)
	}
}

func TestValidate(t *testing.T) {
	if err := (LatLon{Lat: 39.95, Lon: -75.19}).Validate(); err != nil {
		t.Errorf("Validate() = %v; want nil", err)
	}
	for _, l := range []LatLon{{Lat: 91}, {Lat: -90.5}, {Lon: 180.1}, {Lat: math.NaN()}} {
		if err := l.Validate(); err == nil {
			t.Errorf("%s.Validate() = nil; want error", l)
		}
	}
}
