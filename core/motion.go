package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/globe-visualizer/model"
)

// ErrInvalidTLE is returned for two-line element sets that cannot be
// propagated.
var ErrInvalidTLE = errors.New("invalid TLE")

// OrbitPlane is the orientation of an orbit relative to the equator.
type OrbitPlane struct {
	InclinationDeg   float64
	AscendingNodeDeg float64
}

// Quat returns the rotation taking the untilted ring plane (normal +Y) onto
// this orbital plane in scene coordinates.
func (p OrbitPlane) Quat() mgl64.Quat {
	i := mgl64.DegToRad(p.InclinationDeg)
	node := mgl64.DegToRad(p.AscendingNodeDeg)
	// Orbit normal in an Earth-centred frame with +Z north.
	n := mgl64.Vec3{math.Sin(i) * math.Sin(node), -math.Sin(i) * math.Cos(node), math.Cos(i)}
	return rotationBetween(axisY, eciToScene(n))
}

// eciToScene maps an Earth-centred vector (+Z north, +X at 0° longitude)
// into the scene frame used by Project.
func eciToScene(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[2], -v[1]}
}

// OrbitalModel propagates a satellite from a TLE with SGP4.
type OrbitalModel struct {
	sat satellite.Satellite
}

// NewOrbitalModelFromTLE constructs an orbital model from TLE lines.
func NewOrbitalModelFromTLE(line1, line2 string) (*OrbitalModel, error) {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)
	if len(line1) < 69 || len(line2) < 69 || !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
		return nil, fmt.Errorf("%w: malformed element lines", ErrInvalidTLE)
	}
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	return &OrbitalModel{sat: sat}, nil
}

func (m *OrbitalModel) propagate(at time.Time) (satellite.Vector3, satellite.Vector3, float64) {
	at = at.UTC()
	year, month, day := at.Date()
	hour, min, sec := at.Clock()
	pos, vel := satellite.Propagate(m.sat, year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(satellite.JDay(year, int(month), day, hour, min, sec))
	return pos, vel, gmst
}

// Plane returns the osculating orbital plane at the given time.
func (m *OrbitalModel) Plane(at time.Time) (OrbitPlane, error) {
	pos, vel, _ := m.propagate(at)
	r := mgl64.Vec3{pos.X, pos.Y, pos.Z}
	v := mgl64.Vec3{vel.X, vel.Y, vel.Z}
	n := r.Cross(v)
	if n.Len() < geomEpsilon || !finite(n[0]) || !finite(n[1]) || !finite(n[2]) {
		return OrbitPlane{}, fmt.Errorf("%w: propagation failed at %s", ErrInvalidTLE, at.Format(time.RFC3339))
	}
	n = n.Normalize()
	incl := mgl64.RadToDeg(math.Acos(clamp(n[2], -1, 1)))
	node := mgl64.RadToDeg(math.Atan2(n[0], -n[1]))
	if node < 0 {
		node += 360
	}
	return OrbitPlane{InclinationDeg: incl, AscendingNodeDeg: node}, nil
}

// SubPoint returns the point on the ground directly below the satellite.
func (m *OrbitalModel) SubPoint(at time.Time) (model.GeoPoint, error) {
	pos, _, gmst := m.propagate(at)
	if pos.X == 0 && pos.Y == 0 && pos.Z == 0 {
		return model.GeoPoint{}, fmt.Errorf("%w: propagation failed at %s", ErrInvalidTLE, at.Format(time.RFC3339))
	}
	_, _, ll := satellite.ECIToLLA(pos, gmst)
	deg := satellite.LatLongDeg(ll)
	lon, lat := NormalizeLonLat(deg.Longitude, deg.Latitude)
	return model.GeoPoint{Name: "satellite", Longitude: lon, Latitude: lat}, nil
}

// OrbitPlaneFromTLE derives the orbital plane of a TLE at the given time.
func OrbitPlaneFromTLE(line1, line2 string, at time.Time) (OrbitPlane, error) {
	m, err := NewOrbitalModelFromTLE(line1, line2)
	if err != nil {
		return OrbitPlane{}, err
	}
	return m.Plane(at)
}
