// core/scenario_loader_test.go
package core

import (
	"strings"
	"testing"
)

func TestLoadRoutes_ParsesDataset(t *testing.T) {
	jsonData := `
[
  {
    "startArray": { "name": "Chengdu", "E": 104.06, "N": 30.67 },
    "endArray": [
      { "name": "Lhasa", "E": 91.11, "N": 29.97 },
      { "name": "Beijing", "E": "116.4", "N": "39.9" }
    ]
  },
  {
    "startArray": { "name": "Chengdu", "E": 104.06, "N": 30.67 },
    "endArray": [ { "name": "Sydney", "E": 151.2, "N": -33.87 } ]
  }
]
`
	routes, err := LoadRoutes(strings.NewReader(jsonData))
	if err != nil {
		t.Fatalf("LoadRoutes returned error: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(routes))
	}
	if routes[0].Origin.Name != "Chengdu" || routes[0].Origin.Longitude != 104.06 {
		t.Errorf("origin = %+v", routes[0].Origin)
	}
	if len(routes[0].Destinations) != 2 {
		t.Fatalf("expected 2 destinations, got %d", len(routes[0].Destinations))
	}
	bj := routes[0].Destinations[1]
	if bj.Name != "Beijing" || bj.Longitude != 116.4 || bj.Latitude != 39.9 {
		t.Errorf("string coordinates not parsed: %+v", bj)
	}

	s := Summarize(routes)
	if s.Routes != 2 || s.Cities != 4 || s.Arcs != 3 {
		t.Errorf("summary = %+v, want 2 routes / 4 cities / 3 arcs", s)
	}
}

func TestLoadRoutes_NormalizesBadCoordinates(t *testing.T) {
	jsonData := `[{"startArray": {"name": "X", "E": "abc", "N": 100}, "endArray": [{"name": "Y", "E": 190, "N": 0}]}]`
	routes, err := LoadRoutes(strings.NewReader(jsonData))
	if err != nil {
		t.Fatalf("LoadRoutes returned error: %v", err)
	}
	o := routes[0].Origin
	if o.Latitude != 80 || o.Longitude != -180 {
		t.Errorf("origin normalized to (%v, %v), want (-180, 80)", o.Longitude, o.Latitude)
	}
	if d := routes[0].Destinations[0]; d.Longitude != -170 {
		t.Errorf("destination longitude = %v, want -170", d.Longitude)
	}
}

func TestLoadRoutes_RejectsMalformedJSON(t *testing.T) {
	if _, err := LoadRoutes(strings.NewReader(`{"startArray": `)); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
}

func TestLoadRoutesGeoJSON(t *testing.T) {
	data := `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": { "names": ["Chengdu", "Lhasa", "Beijing"] },
      "geometry": { "type": "LineString", "coordinates": [[104.06, 30.67], [91.11, 29.97], [116.4, 39.9]] }
    },
    {
      "type": "Feature",
      "properties": {},
      "geometry": { "type": "MultiPoint", "coordinates": [[0, 0], [10, 10]] }
    }
  ]
}`
	routes, err := LoadRoutesGeoJSON(strings.NewReader(data))
	if err != nil {
		t.Fatalf("LoadRoutesGeoJSON returned error: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(routes))
	}
	if routes[0].Origin.Name != "Chengdu" || len(routes[0].Destinations) != 2 || routes[0].Destinations[1].Name != "Beijing" {
		t.Errorf("first route = %+v", routes[0])
	}
	if routes[0].Destinations[0].Latitude != 29.97 {
		t.Errorf("Lhasa latitude = %v", routes[0].Destinations[0].Latitude)
	}
	if routes[1].Origin.Name == "" || routes[1].Destinations[0].Longitude != 10 {
		t.Errorf("unnamed route = %+v", routes[1])
	}
}

func TestLoadRoutesGeoJSON_UnsupportedGeometry(t *testing.T) {
	data := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`
	if _, err := LoadRoutesGeoJSON(strings.NewReader(data)); err == nil {
		t.Fatalf("expected error for polygon geometry")
	}
}

func TestLoadPieData(t *testing.T) {
	data, err := LoadPieData(strings.NewReader(`[{"label":"ok","value":500},{"label":"down","value":440}]`))
	if err != nil {
		t.Fatalf("LoadPieData: %v", err)
	}
	if len(data) != 2 || data[1].Label != "down" || data[1].Value != 440 {
		t.Fatalf("unexpected data: %+v", data)
	}
	if _, err := LoadPieData(strings.NewReader(`{"label":"x"}`)); err == nil {
		t.Fatalf("expected error for non-array input")
	}
}
