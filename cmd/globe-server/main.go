package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/globe-visualizer/internal/app"
	"github.com/signalsfoundry/globe-visualizer/internal/config"
	"github.com/signalsfoundry/globe-visualizer/internal/engine"
	"github.com/signalsfoundry/globe-visualizer/internal/events"
	"github.com/signalsfoundry/globe-visualizer/internal/logging"
	"github.com/signalsfoundry/globe-visualizer/internal/observability"
	"github.com/signalsfoundry/globe-visualizer/internal/rpc"
	"github.com/signalsfoundry/globe-visualizer/internal/stream"
	"github.com/signalsfoundry/globe-visualizer/kb"
	"github.com/signalsfoundry/globe-visualizer/model"
	"github.com/signalsfoundry/globe-visualizer/timectrl"
)

// Scene descriptions carry meshes and textures and outgrow the 4 MiB default.
const maxMessageSize = 64 << 20

var shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (default: ./config.yaml or ./configs/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "globe-server: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Logging())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, listeners{}); err != nil {
		log.Error(context.Background(), "globe server failed", logging.Err(err))
		os.Exit(1)
	}
}

// listeners lets tests hand in pre-bound sockets. Nil entries are opened
// from the configured addresses.
type listeners struct {
	grpc   net.Listener
	stream net.Listener
}

func run(ctx context.Context, cfg *config.Config, log logging.Logger, lis listeners) error {
	shutdownTracing, err := observability.InitTracing(ctx, cfg.TracingSettings(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	collector, err := observability.NewCollector(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	frameMetrics, err := observability.NewFrameCollector(reg)
	if err != nil {
		return fmt.Errorf("init frame metrics: %w", err)
	}

	routes := kb.NewCatalog()
	if err := app.LoadRoutes(ctx, log, routes, cfg.Data.Routes); err != nil {
		return err
	}
	loader, err := app.LoadAssets(ctx, log, cfg.Assets.Dir)
	if err != nil {
		return err
	}
	sc, err := app.BuildScene(ctx, cfg, routes, loader, log)
	if err != nil {
		return fmt.Errorf("build %s scene: %w", cfg.Scene.Kind, err)
	}

	var pub events.Publisher = events.Noop{}
	if cfg.NATS.URL != "" {
		p, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			log.Warn(ctx, "selection events disabled", logging.String("url", cfg.NATS.URL), logging.Err(err))
		} else {
			pub = p
			log.Info(ctx, "publishing selections", logging.String("subject", p.Subject()))
		}
	}
	defer pub.Close()

	runner := engine.New(sc,
		engine.WithLogger(log),
		engine.WithFrameMetrics(frameMetrics),
		engine.WithPublisher(pub),
		engine.WithSelectionHandler(func(sel model.Selection) {
			log.Info(context.Background(), "selection",
				logging.String("event_type", string(sel.EventType)),
				logging.String("event_name", sel.EventName),
			)
		}),
	)

	metricsSrv := serveMetrics(cfg.Server.MetricsAddr, collector, log)

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.MaxSendMsgSize(maxMessageSize),
		grpc.ChainUnaryInterceptor(
			rpc.RequestIDUnaryServerInterceptor(log),
			rpc.TracingUnaryServerInterceptor(),
			collector.UnaryServerInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			rpc.RequestIDStreamServerInterceptor(log),
			collector.StreamServerInterceptor(),
		),
	)
	rpc.Register(grpcServer, rpc.NewSceneService(runner,
		rpc.WithLogger(log),
		rpc.WithCities(routes),
		rpc.WithMetrics(collector),
	))

	grpcLis := lis.grpc
	if grpcLis == nil {
		if grpcLis, err = net.Listen("tcp", cfg.Server.GRPCAddr); err != nil {
			return fmt.Errorf("listen grpc %s: %w", cfg.Server.GRPCAddr, err)
		}
	}
	streamLis := lis.stream
	if streamLis == nil {
		if streamLis, err = net.Listen("tcp", cfg.Server.StreamAddr); err != nil {
			_ = grpcLis.Close()
			return fmt.Errorf("listen stream %s: %w", cfg.Server.StreamAddr, err)
		}
	}

	streamSrv := &http.Server{
		Handler:           stream.NewServer(runner, stream.WithLogger(log), stream.WithMetrics(collector)).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info(ctx, "starting scene gRPC server", logging.String("addr", grpcLis.Addr().String()))
	go func() {
		if err := grpcServer.Serve(grpcLis); err != nil {
			log.Error(context.Background(), "gRPC server exited", logging.Err(err))
		}
	}()
	log.Info(ctx, "starting frame stream server", logging.String("addr", streamLis.Addr().String()))
	go func() {
		if err := streamSrv.Serve(streamLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(context.Background(), "stream server exited", logging.Err(err))
		}
	}()

	clock := timectrl.NewFrameClock(time.Now().UTC(), cfg.FrameInterval(), timectrl.RealTime)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		runner.Run(ctx, clock)
	}()

	<-ctx.Done()
	log.Info(context.Background(), "shutting down globe server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	_ = streamSrv.Shutdown(shutdownCtx)
	gracefulStop(shutdownCtx, grpcServer)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	<-loopDone
	return nil
}

// gracefulStop drains the gRPC server, forcing a stop once ctx expires so
// open frame watchers cannot hold shutdown forever.
func gracefulStop(ctx context.Context, srv *grpc.Server) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		srv.Stop()
		<-done
	}
}

func serveMetrics(addr string, collector *observability.Collector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
