// Package geo converts the Earth-fixed positions carried by events into
// geodetic coordinates and exports frames as GeoJSON.
package geo

import (
	"math"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/comms-inspector/core"
)

const (
	metresPerKm        = 1000.0
	wgs84PolarRadius   = 6356752.3142
	polarAxisTolerance = 1e-3
)

// LLA is a geodetic position: degrees of latitude and longitude and metres
// of altitude above the ellipsoid.
type LLA struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Altitude  float64 `json:"alt"`
}

// Coordinates returns the position in GeoJSON axis order.
func (p LLA) Coordinates() []float64 {
	return []float64{p.Longitude, p.Latitude, p.Altitude}
}

// ToGeodetic converts an ECEF position in metres. Event positions are
// already Earth-fixed, so the conversion runs with a zero sidereal angle.
// The origin has no geodetic equivalent and reports false.
func ToGeodetic(v core.Vec3) (LLA, bool) {
	if v.Norm() == 0 {
		return LLA{}, false
	}
	if math.Hypot(v.X, v.Y) < polarAxisTolerance {
		// The iterative solution divides by cos(latitude) on the polar axis.
		return LLA{Latitude: math.Copysign(90, v.Z), Altitude: math.Abs(v.Z) - wgs84PolarRadius}, true
	}
	km := satellite.Vector3{X: v.X / metresPerKm, Y: v.Y / metresPerKm, Z: v.Z / metresPerKm}
	alt, _, ll := satellite.ECIToLLA(km, 0)

	return LLA{
		Latitude:  ll.Latitude * 180 / math.Pi,
		Longitude: normalizeLongitude(ll.Longitude * 180 / math.Pi),
		Altitude:  alt * metresPerKm,
	}, true
}

func normalizeLongitude(deg float64) float64 {
	deg = math.Mod(deg+180, 360)
	if deg < 0 {
		deg += 360
	}
	return deg - 180
}
