package core

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/globe-visualizer/model"
)

// vecNear compares with an absolute tolerance. mgl64's ApproxEqualThreshold
// is relative and rejects float noise against exact-zero components.
func vecNear(got, want mgl64.Vec3, eps float64) bool {
	return got.Sub(want).Len() <= eps
}

func TestProject_KnownPoints(t *testing.T) {
	cases := []struct {
		name     string
		lon, lat float64
		want     mgl64.Vec3
	}{
		{"equator prime meridian", 0, 0, mgl64.Vec3{50, 0, 0}},
		{"equator 90E", 90, 0, mgl64.Vec3{0, 0, -50}},
		{"equator 90W", -90, 0, mgl64.Vec3{0, 0, 50}},
		{"antimeridian", 180, 0, mgl64.Vec3{-50, 0, 0}},
		{"north pole", 0, 90, mgl64.Vec3{0, 50, 0}},
		{"south pole", 123, -90, mgl64.Vec3{0, -50, 0}},
	}
	for _, tc := range cases {
		got := Project(50, tc.lon, tc.lat)
		if !vecNear(got, tc.want, 1e-9) {
			t.Errorf("%s: Project(50, %v, %v) = %v, want %v", tc.name, tc.lon, tc.lat, got, tc.want)
		}
	}
}

func TestProject_StaysOnSphere(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		lon := rng.Float64()*1000 - 500
		lat := rng.Float64()*400 - 200
		r := 0.5 + rng.Float64()*100
		p := Project(r, lon, lat)
		if d := math.Abs(p.Len() - r); d > 1e-9*r {
			t.Fatalf("|Project(%v, %v, %v)| = %v, want %v", r, lon, lat, p.Len(), r)
		}
	}
}

func TestProject_NonFiniteInputs(t *testing.T) {
	p := Project(50, math.NaN(), math.Inf(1))
	if !vecNear(p, mgl64.Vec3{50, 0, 0}, 1e-9) {
		t.Fatalf("non-finite input should normalize to (0,0), got %v", p)
	}
}

func TestNormalizeLonLat(t *testing.T) {
	cases := []struct {
		lon, lat         float64
		wantLon, wantLat float64
	}{
		{0, 0, 0, 0},
		{190, 10, -170, 10},
		{-190, -10, 170, -10},
		{360, 45, 0, 45},
		{10, 100, -170, 80},
		{10, -100, -170, -80},
		{0, 90, 0, 90},
		{0, -90, 0, -90},
	}
	for _, tc := range cases {
		lon, lat := NormalizeLonLat(tc.lon, tc.lat)
		if math.Abs(lon-tc.wantLon) > 1e-9 || math.Abs(lat-tc.wantLat) > 1e-9 {
			t.Errorf("NormalizeLonLat(%v, %v) = (%v, %v), want (%v, %v)",
				tc.lon, tc.lat, lon, lat, tc.wantLon, tc.wantLat)
		}
	}
}

func TestNormalizeLonLat_PreservesPosition(t *testing.T) {
	// Folding over the pole must describe the same place.
	a := Project(50, 10, 100)
	lon, lat := NormalizeLonLat(10, 100)
	b := Project(50, lon, lat)
	if !vecNear(a, b, 1e-9) {
		t.Fatalf("normalized point moved: %v vs %v", a, b)
	}
	// Raw formula with lat 100 should match the folded point too.
	phi := mgl64.DegToRad(90 - 100.0)
	theta := mgl64.DegToRad(10 + 180.0)
	raw := mgl64.Vec3{
		-50 * math.Sin(phi) * math.Cos(theta),
		50 * math.Cos(phi),
		50 * math.Sin(phi) * math.Sin(theta),
	}
	if !vecNear(raw, a, 1e-9) {
		t.Fatalf("folded point %v differs from raw formula %v", a, raw)
	}
}

func TestUnprojectRoundTrip(t *testing.T) {
	points := []model.GeoPoint{
		{Name: "Chengdu", Longitude: 104.06, Latitude: 30.67},
		{Name: "Lhasa", Longitude: 91.11, Latitude: 29.97},
		{Name: "Sydney", Longitude: 151.2, Latitude: -33.87},
		{Name: "Lima", Longitude: -77.04, Latitude: -12.05},
	}
	for _, p := range points {
		lon, lat := Unproject(ProjectPoint(p, 50))
		if math.Abs(lon-p.Longitude) > 1e-9 || math.Abs(lat-p.Latitude) > 1e-9 {
			t.Errorf("%s: round trip = (%v, %v), want (%v, %v)", p.Name, lon, lat, p.Longitude, p.Latitude)
		}
	}
}

func TestAngularDistance(t *testing.T) {
	a := Project(50, 0, 0)
	b := Project(50, 90, 0)
	if d := AngularDistance(a, b); math.Abs(d-math.Pi/2) > 1e-12 {
		t.Fatalf("AngularDistance = %v, want π/2", d)
	}
	if d := AngularDistance(a, a.Mul(-1)); math.Abs(d-math.Pi) > 1e-12 {
		t.Fatalf("antipodal AngularDistance = %v, want π", d)
	}
	if d := AngularDistance(a, mgl64.Vec3{}); d != 0 {
		t.Fatalf("zero vector AngularDistance = %v, want 0", d)
	}
}
