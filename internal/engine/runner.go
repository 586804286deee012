// Package engine runs a scene on a frame clock and publishes its frames to
// concurrent readers.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/signalsfoundry/globe-visualizer/internal/events"
	"github.com/signalsfoundry/globe-visualizer/internal/logging"
	"github.com/signalsfoundry/globe-visualizer/internal/observability"
	"github.com/signalsfoundry/globe-visualizer/internal/scene"
	"github.com/signalsfoundry/globe-visualizer/model"
	"github.com/signalsfoundry/globe-visualizer/timectrl"
)

// Runner owns a scene. Ticks, resizes and picks are serialized on one
// lock; readers only ever see published frames.
type Runner struct {
	loopMu sync.Mutex
	sc     scene.Composer
	work   scene.FrameState

	frameMu   sync.RWMutex
	published scene.FrameState

	subMu  sync.Mutex
	nextID int
	subs   map[int]chan struct{}

	desc     scene.Description
	log      logging.Logger
	metrics  *observability.FrameCollector
	pub      events.Publisher
	handlers []func(model.Selection)
	now      func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithFrameMetrics records every tick into c.
func WithFrameMetrics(c *observability.FrameCollector) Option {
	return func(r *Runner) { r.metrics = c }
}

// WithPublisher forwards selections to p.
func WithPublisher(p events.Publisher) Option {
	return func(r *Runner) {
		if p != nil {
			r.pub = p
		}
	}
}

// WithSelectionHandler registers a callback run for every successful pick.
func WithSelectionHandler(fn func(model.Selection)) Option {
	return func(r *Runner) {
		if fn != nil {
			r.handlers = append(r.handlers, fn)
		}
	}
}

// New wraps sc and publishes its initial frame.
func New(sc scene.Composer, opts ...Option) *Runner {
	r := &Runner{
		sc:   sc,
		subs: make(map[int]chan struct{}),
		log:  logging.Noop(),
		pub:  events.Noop{},
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.desc = sc.Describe()
	r.metrics.SetSceneEntities(sc.Counts())

	r.loopMu.Lock()
	r.publishLocked()
	r.loopMu.Unlock()
	return r
}

// Kind returns the scene kind.
func (r *Runner) Kind() string { return r.sc.Kind() }

// Tick renders one frame and publishes it.
func (r *Runner) Tick() {
	r.loopMu.Lock()
	start := r.now()
	stats := r.sc.Render()
	r.publishLocked()
	elapsed := r.now().Sub(start)
	r.loopMu.Unlock()

	r.metrics.ObserveFrame(elapsed, stats.RippleResets, stats.FlowRestarts)
	r.notify()
}

// publishLocked captures the scene and swaps the result in. loopMu must
// be held.
func (r *Runner) publishLocked() {
	r.sc.CaptureFrame(&r.work)
	r.frameMu.Lock()
	r.published, r.work = r.work, r.published
	r.frameMu.Unlock()
}

// Run ticks the scene on every clock step until ctx is done.
func (r *Runner) Run(ctx context.Context, clock *timectrl.FrameClock) {
	clock.AddListener(func(uint64) { r.Tick() })
	r.log.Info(ctx, "frame loop started",
		logging.String("scene", r.sc.Kind()),
		logging.Duration("interval", clock.Interval),
	)
	<-clock.Start(ctx, 0)
	r.log.Info(context.Background(), "frame loop stopped", logging.Uint64("frames", clock.Frame()))
}

// Frame copies the latest published frame into dst.
func (r *Runner) Frame(dst *scene.FrameState) {
	r.frameMu.RLock()
	dst.CopyFrom(&r.published)
	r.frameMu.RUnlock()
}

// FrameNumber returns the number of the latest published frame.
func (r *Runner) FrameNumber() uint64 {
	r.frameMu.RLock()
	defer r.frameMu.RUnlock()
	return r.published.Frame
}

// Describe returns the static scene description captured at start-up.
func (r *Runner) Describe() scene.Description { return r.desc }

// Viewport returns the scene's current viewport.
func (r *Runner) Viewport() scene.Viewport {
	r.loopMu.Lock()
	defer r.loopMu.Unlock()
	return r.sc.Viewport()
}

// Resize applies a new viewport between ticks and republishes the frame.
func (r *Runner) Resize(width, height float64) scene.Viewport {
	r.loopMu.Lock()
	r.sc.Resize(width, height)
	vp := r.sc.Viewport()
	r.publishLocked()
	r.loopMu.Unlock()
	r.notify()
	return vp
}

// Pick hit-tests a pixel of the current viewport. A hit is handed to the
// selection handlers and the publisher.
func (r *Runner) Pick(ctx context.Context, x, y float64) (model.Selection, bool) {
	r.loopMu.Lock()
	sel, ok := r.sc.Pick(x, y)
	frame := r.published.Frame
	r.loopMu.Unlock()
	if ok {
		r.dispatch(ctx, sel, frame)
	}
	return sel, ok
}

// HitTest is Pick for an explicit world-space ray.
func (r *Runner) HitTest(ctx context.Context, ray scene.Ray) (model.Selection, bool) {
	r.loopMu.Lock()
	sel, ok := r.sc.HitTest(ray)
	frame := r.published.Frame
	r.loopMu.Unlock()
	if ok {
		r.dispatch(ctx, sel, frame)
	}
	return sel, ok
}

// Do runs fn with exclusive access to the scene, between ticks.
func (r *Runner) Do(fn func(scene.Composer)) {
	r.loopMu.Lock()
	defer r.loopMu.Unlock()
	fn(r.sc)
}

func (r *Runner) dispatch(ctx context.Context, sel model.Selection, frame uint64) {
	for _, h := range r.handlers {
		h(sel)
	}
	ev := events.SelectionEvent{
		Scene:     r.sc.Kind(),
		Frame:     frame,
		EventType: sel.EventType,
		EventName: sel.EventName,
		At:        r.now(),
	}
	if err := r.pub.PublishSelection(ctx, ev); err != nil {
		r.log.Warn(ctx, "selection publish failed",
			logging.String("event_name", sel.EventName),
			logging.Err(err),
		)
	}
}

// Subscribe returns a channel signalled after every published frame. Slow
// subscribers miss intermediate signals but never block the loop.
func (r *Runner) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	r.subMu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = ch
	r.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.subMu.Lock()
			delete(r.subs, id)
			r.subMu.Unlock()
		})
	}
}

func (r *Runner) notify() {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
