package core

import "math"

// EntityID indexes a ripple or flow inside an AnimationState. IDs are
// stable for the life of the state.
type EntityID uint32

// AnimationConfig holds the per-frame rates.
type AnimationConfig struct {
	GlobeRotation    bool
	GlobeRotateSpeed float64
	OrbitRotateSpeed float64
	FlowSpeed        float64
	RippleStep       float64
	ScanBound        float64
	ScanStep         float64
	CloudStep        float64
}

// DefaultAnimationConfig returns the stock rates.
func DefaultAnimationConfig() AnimationConfig {
	return AnimationConfig{
		GlobeRotation:    true,
		GlobeRotateSpeed: 0.002,
		OrbitRotateSpeed: -0.01,
		FlowSpeed:        0.004,
		RippleStep:       0.007,
		ScanBound:        100,
		ScanStep:         1,
		CloudStep:        0.02,
	}
}

// RippleState is one breathing wave. Phase stays in [1, 2).
type RippleState struct {
	BaseSize float64
	Phase    float64
	Scale    float64
	Opacity  float64
}

// FlowState is one arc flow segment. Phase stays in [0, EndPhase).
type FlowState struct {
	Phase    float64
	EndPhase float64
}

// TickStats reports cycle boundaries crossed during an advance.
type TickStats struct {
	RippleResets int
	FlowRestarts int
}

// AnimationState owns every per-frame scalar of a scene.
type AnimationState struct {
	cfg     AnimationConfig
	ripples []RippleState
	flows   []FlowState

	GlobeAngle float64
	OrbitAngle float64
	ScanTime   float64
	CloudTime  float64
	Frame      uint64
}

// NewAnimationState returns an empty state at frame 0.
func NewAnimationState(cfg AnimationConfig) *AnimationState {
	return &AnimationState{cfg: cfg, ScanTime: cfg.ScanBound}
}

// Config returns the rates in use.
func (a *AnimationState) Config() AnimationConfig { return a.cfg }

// SetGlobeRotation toggles globe spin without touching other rates.
func (a *AnimationState) SetGlobeRotation(on bool) { a.cfg.GlobeRotation = on }

// AddRipple registers a ripple. A seed below 1 is lifted to 1+seed so the
// wave starts at a visible size.
func (a *AnimationState) AddRipple(baseSize, seed float64) EntityID {
	if !finite(seed) || seed < 0 {
		seed = 0
	}
	phase := seed
	if phase < 1 {
		phase = 1 + phase
	}
	if phase >= 2 {
		phase = 1 + math.Mod(phase, 1)
	}
	r := RippleState{BaseSize: baseSize, Phase: phase}
	r.Scale = baseSize * phase
	r.Opacity = RippleOpacity(phase)
	a.ripples = append(a.ripples, r)
	return EntityID(len(a.ripples) - 1)
}

// AddFlow registers an arc flow. Phases outside [0, endPhase) start at 0.
func (a *AnimationState) AddFlow(phase, endPhase float64) EntityID {
	if !(endPhase > 0) || !finite(endPhase) {
		endPhase = minArcAngle
	}
	if !(phase >= 0) || phase >= endPhase {
		phase = 0
	}
	a.flows = append(a.flows, FlowState{Phase: phase, EndPhase: endPhase})
	return EntityID(len(a.flows) - 1)
}

// Ripple returns the current state of a ripple.
func (a *AnimationState) Ripple(id EntityID) RippleState { return a.ripples[id] }

// Flow returns the current state of a flow.
func (a *AnimationState) Flow(id EntityID) FlowState { return a.flows[id] }

// RippleCount returns the number of registered ripples.
func (a *AnimationState) RippleCount() int { return len(a.ripples) }

// FlowCount returns the number of registered flows.
func (a *AnimationState) FlowCount() int { return len(a.flows) }

// Tick advances one frame.
func (a *AnimationState) Tick() TickStats { return a.Advance(1) }

// Advance moves every animation forward by frames. Non-positive or
// non-finite input leaves the state untouched.
func (a *AnimationState) Advance(frames float64) TickStats {
	var stats TickStats
	if !(frames > 0) || !finite(frames) {
		return stats
	}
	a.Frame++

	if a.cfg.GlobeRotation {
		a.GlobeAngle = wrapAngle(a.GlobeAngle + a.cfg.GlobeRotateSpeed*frames)
	}
	a.OrbitAngle = wrapAngle(a.OrbitAngle + a.cfg.OrbitRotateSpeed*frames)

	for i := range a.ripples {
		r := &a.ripples[i]
		r.Phase += a.cfg.RippleStep * frames
		if r.Phase >= 2 {
			r.Phase = 1
			stats.RippleResets++
		}
		r.Scale = r.BaseSize * r.Phase
		r.Opacity = RippleOpacity(r.Phase)
	}

	for i := range a.flows {
		f := &a.flows[i]
		f.Phase += a.cfg.FlowSpeed * frames
		if f.Phase >= f.EndPhase || f.Phase < 0 {
			f.Phase = 0
			stats.FlowRestarts++
		}
	}

	a.ScanTime -= a.cfg.ScanStep * frames
	if a.ScanTime < -a.cfg.ScanBound {
		a.ScanTime = a.cfg.ScanBound
	}
	a.CloudTime += a.cfg.CloudStep * frames
	return stats
}

// RippleOpacity maps a ripple phase in [1, 2] to its opacity: fading in
// over [1, 1.5] and out over (1.5, 2].
func RippleOpacity(phase float64) float64 {
	var o float64
	if phase <= 1.5 {
		o = (phase - 1) * 2
	} else {
		o = 1 - (phase-1.5)*2
	}
	return clamp(o, 0, 1)
}
