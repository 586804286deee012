// Package kb holds the in-memory route catalog the globe scene is built from.
package kb

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/signalsfoundry/globe-visualizer/core"
	"github.com/signalsfoundry/globe-visualizer/model"
)

var (
	// ErrRouteInvalid is returned for routes without a named origin or
	// without destinations.
	ErrRouteInvalid = errors.New("invalid route")
	// ErrCityNotFound is returned by City for unknown names.
	ErrCityNotFound = errors.New("city not found")
)

// Counts summarises catalog contents.
type Counts struct {
	Routes int
	Cities int
	Arcs   int
}

// Catalog is an in-memory, thread-safe store of flight routes and the
// cities they reference. Route order is preserved.
type Catalog struct {
	mu sync.RWMutex

	routes []model.RouteEntry
	cities map[string]model.GeoPoint
	arcs   int
}

// NewCatalog constructs an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{cities: make(map[string]model.GeoPoint)}
}

// AddRoute validates and appends a route. Coordinates are normalized;
// the first coordinates seen for a city name win.
func (c *Catalog) AddRoute(r model.RouteEntry) error {
	if err := validateRoute(r); err != nil {
		return err
	}
	r = normalizeRoute(r)

	c.mu.Lock()
	c.routes = append(c.routes, r)
	c.arcs += len(r.Destinations)
	for _, p := range r.Points() {
		if _, ok := c.cities[p.Name]; !ok {
			c.cities[p.Name] = p
		}
	}
	c.mu.Unlock()
	return nil
}

// AddRoutes adds routes in order, stopping at the first invalid one.
func (c *Catalog) AddRoutes(routes []model.RouteEntry) error {
	for i, r := range routes {
		if err := c.AddRoute(r); err != nil {
			return fmt.Errorf("route %d: %w", i, err)
		}
	}
	return nil
}

// Routes returns a snapshot of all routes in insertion order.
func (c *Catalog) Routes() []model.RouteEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.RouteEntry, len(c.routes))
	for i, r := range c.routes {
		out[i] = model.RouteEntry{
			Origin:       r.Origin,
			Destinations: append([]model.GeoPoint(nil), r.Destinations...),
		}
	}
	return out
}

// City looks a city up by name.
func (c *Catalog) City(name string) (model.GeoPoint, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.cities[name]
	if !ok {
		return model.GeoPoint{}, fmt.Errorf("%w: %q", ErrCityNotFound, name)
	}
	return p, nil
}

// Counts reports the number of routes, distinct cities and arcs.
func (c *Catalog) Counts() Counts {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Counts{Routes: len(c.routes), Cities: len(c.cities), Arcs: c.arcs}
}

func validateRoute(r model.RouteEntry) error {
	if r.Origin.Name == "" {
		return fmt.Errorf("%w: origin has no name", ErrRouteInvalid)
	}
	if len(r.Destinations) == 0 {
		return fmt.Errorf("%w: origin %q has no destinations", ErrRouteInvalid, r.Origin.Name)
	}
	for _, d := range r.Destinations {
		if d.Name == "" {
			return fmt.Errorf("%w: unnamed destination from %q", ErrRouteInvalid, r.Origin.Name)
		}
	}
	for _, p := range r.Points() {
		if math.IsNaN(p.Longitude) || math.IsNaN(p.Latitude) {
			return fmt.Errorf("%w: %q has NaN coordinates", ErrRouteInvalid, p.Name)
		}
	}
	return nil
}

func normalizeRoute(r model.RouteEntry) model.RouteEntry {
	norm := func(p model.GeoPoint) model.GeoPoint {
		p.Longitude, p.Latitude = core.NormalizeLonLat(p.Longitude, p.Latitude)
		return p
	}
	out := model.RouteEntry{
		Origin:       norm(r.Origin),
		Destinations: make([]model.GeoPoint, len(r.Destinations)),
	}
	for i, d := range r.Destinations {
		out.Destinations[i] = norm(d)
	}
	return out
}
