// core/scenario_loader.go
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/signalsfoundry/globe-visualizer/model"
)

// RouteSummary is a small summary of what was loaded.
// It’s mainly useful for logging from main().
type RouteSummary struct {
	Routes int
	Cities int
	Arcs   int
}

// Summarize counts routes, distinct city names and arcs.
func Summarize(routes []model.RouteEntry) RouteSummary {
	names := make(map[string]struct{})
	s := RouteSummary{Routes: len(routes)}
	for _, r := range routes {
		for _, p := range r.Points() {
			names[p.Name] = struct{}{}
		}
		s.Arcs += len(r.Destinations)
	}
	s.Cities = len(names)
	return s
}

// internal JSON shapes – keep them unexported so we’re free to evolve them.
type routeJSON struct {
	StartArray cityJSON   `json:"startArray"`
	EndArray   []cityJSON `json:"endArray"`
}

type cityJSON struct {
	Name string    `json:"name"`
	E    coordJSON `json:"E"` // longitude
	N    coordJSON `json:"N"` // latitude
}

// coordJSON accepts numbers or numeric strings. Anything else decodes to
// NaN, which projection later normalizes to 0.
type coordJSON float64

func (c *coordJSON) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		v = math.NaN()
	}
	*c = coordJSON(v)
	return nil
}

func (c cityJSON) point() model.GeoPoint {
	lon, lat := NormalizeLonLat(float64(c.E), float64(c.N))
	return model.GeoPoint{Name: c.Name, Longitude: lon, Latitude: lat}
}

// LoadRoutes reads the flight-route dataset: a JSON array of
// {"startArray": {name, E, N}, "endArray": [{name, E, N}, ...]}.
//
// It fails only on JSON / structural errors. Out-of-range or non-numeric
// coordinates are normalized rather than rejected.
func LoadRoutes(r io.Reader) ([]model.RouteEntry, error) {
	var raw []routeJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode routes: %w", err)
	}
	out := make([]model.RouteEntry, 0, len(raw))
	for _, rj := range raw {
		entry := model.RouteEntry{
			Origin:       rj.StartArray.point(),
			Destinations: make([]model.GeoPoint, 0, len(rj.EndArray)),
		}
		for _, d := range rj.EndArray {
			entry.Destinations = append(entry.Destinations, d.point())
		}
		out = append(out, entry)
	}
	return out, nil
}

// LoadRoutesGeoJSON reads routes from a GeoJSON FeatureCollection. Each
// feature is a LineString or MultiPoint whose first coordinate is the
// origin and the rest destinations; the "names" property, when present,
// is an array naming each coordinate in order.
func LoadRoutesGeoJSON(r io.Reader) ([]model.RouteEntry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read geojson: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	out := make([]model.RouteEntry, 0, len(fc.Features))
	for i, f := range fc.Features {
		var pts []orb.Point
		switch g := f.Geometry.(type) {
		case orb.LineString:
			pts = g
		case orb.MultiPoint:
			pts = g
		default:
			return nil, fmt.Errorf("feature %d: unsupported geometry %T", i, f.Geometry)
		}
		if len(pts) == 0 {
			return nil, fmt.Errorf("feature %d: no coordinates", i)
		}

		var names []any
		if v, ok := f.Properties["names"].([]any); ok {
			names = v
		}
		nameAt := func(k int) string {
			if k < len(names) {
				if s, ok := names[k].(string); ok {
					return s
				}
			}
			return fmt.Sprintf("%.2f,%.2f", pts[k].Lon(), pts[k].Lat())
		}
		point := func(k int) model.GeoPoint {
			lon, lat := NormalizeLonLat(pts[k].Lon(), pts[k].Lat())
			return model.GeoPoint{Name: nameAt(k), Longitude: lon, Latitude: lat}
		}

		entry := model.RouteEntry{Origin: point(0)}
		for k := 1; k < len(pts); k++ {
			entry.Destinations = append(entry.Destinations, point(k))
		}
		out = append(out, entry)
	}
	return out, nil
}

// LoadPieData reads a JSON array of {label, value} chart entries.
func LoadPieData(r io.Reader) ([]model.PieDatum, error) {
	var data []model.PieDatum
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode pie data: %w", err)
	}
	return data, nil
}
