package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

// ISS sample TLE.
const (
	issLine1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issLine2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

var issEpoch = time.Date(2021, 10, 2, 14, 11, 0, 0, time.UTC)

// We don't assert exact orbital values (those belong to go-satellite);
// we check that the derived plane is close to the mean elements.
func TestOrbitPlaneFromTLE_ISS(t *testing.T) {
	plane, err := OrbitPlaneFromTLE(issLine1, issLine2, issEpoch)
	if err != nil {
		t.Fatalf("OrbitPlaneFromTLE returned error: %v", err)
	}
	if math.Abs(plane.InclinationDeg-51.6459) > 0.5 {
		t.Errorf("inclination = %v, want ≈ 51.65", plane.InclinationDeg)
	}
	if math.Abs(plane.AscendingNodeDeg-115.9059) > 1.0 {
		t.Errorf("ascending node = %v, want ≈ 115.9", plane.AscendingNodeDeg)
	}
}

func TestOrbitPlane_QuatTiltsRingNormal(t *testing.T) {
	q := OrbitPlane{InclinationDeg: 51.6459, AscendingNodeDeg: 0}.Quat()
	n := q.Rotate(axisY)
	// Angle between ring normal and the pole equals the inclination.
	got := math.Acos(clamp(n.Dot(axisY), -1, 1)) * 180 / math.Pi
	if math.Abs(got-51.6459) > 1e-9 {
		t.Fatalf("tilted normal is %v° from the pole, want 51.6459°", got)
	}

	flat := OrbitPlane{}.Quat()
	if !vecNear(flat.Rotate(axisY), axisY, 1e-9) {
		t.Fatalf("equatorial plane should not tilt the ring")
	}
}

func TestOrbitalModel_SubPointMoves(t *testing.T) {
	m, err := NewOrbitalModelFromTLE(issLine1, issLine2)
	if err != nil {
		t.Fatalf("NewOrbitalModelFromTLE: %v", err)
	}
	a, err := m.SubPoint(issEpoch)
	if err != nil {
		t.Fatalf("SubPoint: %v", err)
	}
	b, err := m.SubPoint(issEpoch.Add(5 * time.Minute))
	if err != nil {
		t.Fatalf("SubPoint: %v", err)
	}
	if a == b {
		t.Fatalf("expected sub-satellite point to change over time, got %+v at both times", a)
	}
	for _, p := range []float64{a.Latitude, b.Latitude} {
		if math.Abs(p) > 52 {
			t.Fatalf("latitude %v exceeds the ISS inclination", p)
		}
	}
}

func TestNewOrbitalModelFromTLE_Malformed(t *testing.T) {
	_, err := NewOrbitalModelFromTLE("garbage", issLine2)
	if !errors.Is(err, ErrInvalidTLE) {
		t.Fatalf("expected ErrInvalidTLE, got %v", err)
	}
}
