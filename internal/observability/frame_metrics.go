package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FrameCollector exposes per-frame animation metrics.
type FrameCollector struct {
	gatherer prometheus.Gatherer

	FramesTotal   prometheus.Counter
	FrameDuration prometheus.Histogram
	FlowRestarts  prometheus.Counter
	RippleCycles  prometheus.Counter
	SceneEntities *prometheus.GaugeVec
}

// NewFrameCollector registers frame metrics against the provided registerer.
func NewFrameCollector(reg prometheus.Registerer) (*FrameCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	frames, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "globe_frames_total",
		Help: "Total number of rendered animation frames.",
	}), "globe_frames_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "globe_frame_duration_seconds",
		Help:    "Time spent advancing and capturing one frame.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.033, 0.05, 0.1},
	}), "globe_frame_duration_seconds")
	if err != nil {
		return nil, err
	}

	restarts, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "globe_arc_flow_restarts_total",
		Help: "Number of times an arc flow segment wrapped back to the arc start.",
	}), "globe_arc_flow_restarts_total")
	if err != nil {
		return nil, err
	}

	cycles, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "globe_ripple_cycles_total",
		Help: "Number of completed marker ripple cycles.",
	}), "globe_ripple_cycles_total")
	if err != nil {
		return nil, err
	}

	entities, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "globe_scene_entities",
		Help: "Current number of scene nodes, labeled by node kind.",
	}, []string{"kind"}), "globe_scene_entities")
	if err != nil {
		return nil, err
	}

	return &FrameCollector{
		gatherer:      gatherer,
		FramesTotal:   frames,
		FrameDuration: duration,
		FlowRestarts:  restarts,
		RippleCycles:  cycles,
		SceneEntities: entities,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *FrameCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveFrame records one rendered frame with its ripple resets and flow
// restarts.
func (c *FrameCollector) ObserveFrame(d time.Duration, rippleResets, flowRestarts int) {
	if c == nil {
		return
	}
	if c.FramesTotal != nil {
		c.FramesTotal.Inc()
	}
	if c.FrameDuration != nil {
		c.FrameDuration.Observe(d.Seconds())
	}
	if c.RippleCycles != nil && rippleResets > 0 {
		c.RippleCycles.Add(float64(rippleResets))
	}
	if c.FlowRestarts != nil && flowRestarts > 0 {
		c.FlowRestarts.Add(float64(flowRestarts))
	}
}

// SetSceneEntities replaces the entity gauges with the given per-kind counts.
func (c *FrameCollector) SetSceneEntities(counts map[string]int) {
	if c == nil || c.SceneEntities == nil {
		return
	}
	c.SceneEntities.Reset()
	for kind, n := range counts {
		c.SceneEntities.WithLabelValues(kind).Set(float64(n))
	}
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
