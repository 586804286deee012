package model

// GeoPoint is a named location on the globe in degrees.
// Longitude is positive east, latitude positive north.
type GeoPoint struct {
	Name      string  `json:"name"`
	Longitude float64 `json:"lon"`
	Latitude  float64 `json:"lat"`
}

// RouteEntry is a one-to-many flight route: an origin city and the ordered
// destinations it connects to. The same origin may appear in several entries.
type RouteEntry struct {
	Origin       GeoPoint   `json:"origin"`
	Destinations []GeoPoint `json:"destinations"`
}

// Points returns the origin followed by every destination.
func (r RouteEntry) Points() []GeoPoint {
	out := make([]GeoPoint, 0, len(r.Destinations)+1)
	out = append(out, r.Origin)
	return append(out, r.Destinations...)
}

// EventType names the kind of scene object a Selection came from.
type EventType string

const (
	EventMarker EventType = "marker"
	EventArc    EventType = "arc"
	EventSprite EventType = "sprite"
	EventSector EventType = "sector"
)

// Selection is the metadata payload attached to clickable scene objects and
// forwarded to selection callbacks after a hit-test.
type Selection struct {
	EventType EventType `json:"eventType"`
	EventName string    `json:"eventName"`
}

// IsZero reports whether the selection carries no payload.
func (s Selection) IsZero() bool {
	return s.EventType == "" && s.EventName == ""
}
