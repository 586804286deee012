package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/globe-visualizer/model"
)

// NormalizeLonLat wraps longitude into [-180, 180) and folds latitudes
// beyond the poles back onto the sphere, shifting longitude by 180°.
// Non-finite inputs become 0.
func NormalizeLonLat(lon, lat float64) (float64, float64) {
	if !finite(lon) {
		lon = 0
	}
	if !finite(lat) {
		lat = 0
	}

	if lat < -90 || lat > 90 {
		lat = math.Mod(lat+180, 360)
		if lat < 0 {
			lat += 360
		}
		lat -= 180
		switch {
		case lat > 90:
			lat = 180 - lat
			lon += 180
		case lat < -90:
			lat = -180 - lat
			lon += 180
		}
	}

	if lon < -180 || lon >= 180 {
		lon = math.Mod(lon+180, 360)
		if lon < 0 {
			lon += 360
		}
		lon -= 180
	}
	return lon, lat
}

// Project converts a longitude/latitude pair in degrees into a point on
// the origin-centred sphere of the given radius. +Y is the north pole and
// (0°, 0°) lands on +X.
func Project(radius, lon, lat float64) mgl64.Vec3 {
	lon, lat = NormalizeLonLat(lon, lat)
	phi := mgl64.DegToRad(90 - lat)
	theta := mgl64.DegToRad(lon + 180)
	sinPhi := math.Sin(phi)
	return mgl64.Vec3{
		-radius * sinPhi * math.Cos(theta),
		radius * math.Cos(phi),
		radius * sinPhi * math.Sin(theta),
	}
}

// ProjectPoint projects a named geographic point.
func ProjectPoint(p model.GeoPoint, radius float64) mgl64.Vec3 {
	return Project(radius, p.Longitude, p.Latitude)
}

// Unproject is the inverse of Project. The zero vector maps to (0, 0).
func Unproject(p mgl64.Vec3) (lon, lat float64) {
	r := p.Len()
	if r < geomEpsilon {
		return 0, 0
	}
	lat = 90 - mgl64.RadToDeg(math.Acos(clamp(p[1]/r, -1, 1)))
	theta := math.Atan2(p[2], -p[0])
	lon, lat = NormalizeLonLat(mgl64.RadToDeg(theta)-180, lat)
	return lon, lat
}

// AngularDistance returns the central angle between two directions in
// [0, π]. Zero vectors are treated as coincident.
func AngularDistance(a, b mgl64.Vec3) float64 {
	if a.Len() < geomEpsilon || b.Len() < geomEpsilon {
		return 0
	}
	return math.Atan2(a.Cross(b).Len(), a.Dot(b))
}
