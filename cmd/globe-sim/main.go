package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/signalsfoundry/globe-visualizer/internal/app"
	"github.com/signalsfoundry/globe-visualizer/internal/config"
	"github.com/signalsfoundry/globe-visualizer/internal/logging"
	"github.com/signalsfoundry/globe-visualizer/internal/scene"
	"github.com/signalsfoundry/globe-visualizer/kb"
	"github.com/signalsfoundry/globe-visualizer/timectrl"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	frames := flag.Int("frames", 600, "number of frames to simulate")
	every := flag.Int("every", 60, "print a status line every N frames (0 disables)")
	accelerated := flag.Bool("accelerated", true, "run in accelerated mode (vs real-time)")
	pickX := flag.Float64("pick-x", -1, "viewport x of a pick to run after the last frame")
	pickY := flag.Float64("pick-y", -1, "viewport y of a pick to run after the last frame")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "globe-sim: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Logging())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := simOptions{
		Frames:      *frames,
		Every:       *every,
		Accelerated: *accelerated,
	}
	if *pickX >= 0 && *pickY >= 0 {
		opts.Pick = &[2]float64{*pickX, *pickY}
	}
	if _, err := simulate(ctx, cfg, log, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "globe-sim: %v\n", err)
		os.Exit(1)
	}
}

type simOptions struct {
	Frames      int
	Every       int
	Accelerated bool
	Pick        *[2]float64
}

// summary accumulates what happened over a run.
type summary struct {
	Frames       uint64
	RippleResets int
	FlowRestarts int
	Hit          bool
	Selection    string
}

func simulate(ctx context.Context, cfg *config.Config, log logging.Logger, opts simOptions, w io.Writer) (summary, error) {
	var sum summary

	routes := kb.NewCatalog()
	if err := app.LoadRoutes(ctx, log, routes, cfg.Data.Routes); err != nil {
		return sum, err
	}
	loader, err := app.LoadAssets(ctx, log, cfg.Assets.Dir)
	if err != nil {
		return sum, err
	}
	sc, err := app.BuildScene(ctx, cfg, routes, loader, log)
	if err != nil {
		return sum, fmt.Errorf("build %s scene: %w", cfg.Scene.Kind, err)
	}

	counts := routes.Counts()
	fmt.Fprintf(w, "Loaded %s scene: %d routes, %d cities, %d arcs, %v\n",
		sc.Kind(), counts.Routes, counts.Cities, counts.Arcs, sc.Counts())

	mode := timectrl.RealTime
	if opts.Accelerated {
		mode = timectrl.Accelerated
	}
	clock := timectrl.NewFrameClock(time.Now().UTC(), cfg.FrameInterval(), mode)
	clock.AddListener(func(frame uint64) {
		stats := sc.Render()
		sum.Frames = frame
		sum.RippleResets += stats.RippleResets
		sum.FlowRestarts += stats.FlowRestarts
		if opts.Every > 0 && frame%uint64(opts.Every) == 0 {
			fmt.Fprintln(w, status(sc, frame))
		}
	})

	fmt.Fprintf(w, "Starting simulation: frames=%d, interval=%s, accelerated=%v\n",
		opts.Frames, clock.Interval, opts.Accelerated)
	<-clock.Start(ctx, opts.Frames)

	if opts.Pick != nil {
		sel, ok := sc.Pick(opts.Pick[0], opts.Pick[1])
		sum.Hit = ok
		if ok {
			sum.Selection = string(sel.EventType) + ":" + sel.EventName
			fmt.Fprintf(w, "Pick (%.0f, %.0f) -> %s %q\n", opts.Pick[0], opts.Pick[1], sel.EventType, sel.EventName)
		} else {
			fmt.Fprintf(w, "Pick (%.0f, %.0f) -> nothing\n", opts.Pick[0], opts.Pick[1])
		}
	}

	fmt.Fprintf(w, "Simulation complete: %d frames, %d ripple resets, %d flow restarts\n",
		sum.Frames, sum.RippleResets, sum.FlowRestarts)
	return sum, nil
}

func status(sc scene.Composer, frame uint64) string {
	switch s := sc.(type) {
	case *scene.Earth:
		a := s.Animation()
		return fmt.Sprintf("[%6d] globe=%.3f rad orbit=%.3f rad scan=%.3f clouds=%.3f",
			frame, a.GlobeAngle, a.OrbitAngle, a.ScanTime, a.CloudTime)
	case *scene.Pie:
		return fmt.Sprintf("[%6d] chart=%.3f rad scale=%.3f", frame, s.Angle(), s.Scale())
	default:
		return fmt.Sprintf("[%6d] %s", frame, sc.Kind())
	}
}
