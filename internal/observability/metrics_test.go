package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnaryInterceptorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/globe.v1.SceneService/GetFrame"}

	_, err = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		time.Sleep(5 * time.Millisecond)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("interceptor handler returned error: %v", err)
	}

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("SceneService", "GetFrame", "OK")); got != 1 {
		t.Fatalf("globe_rpc_requests_total = %v, want 1", got)
	}

	if count := histogramSampleCount(t, reg, "globe_rpc_request_duration_seconds", map[string]string{
		"service": "SceneService",
		"method":  "GetFrame",
	}); count != 1 {
		t.Fatalf("globe_rpc_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestUnaryInterceptorRecordsErrorCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/globe.v1.SceneService/Resize"}

	_, _ = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.InvalidArgument, "boom")
	})

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("SceneService", "Resize", "InvalidArgument")); got != 1 {
		t.Fatalf("globe_rpc_requests_total error label = %v, want 1", got)
	}
}

type fakeServerStream struct {
	grpc.ServerStream
}

func TestStreamInterceptorTracksClients(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	interceptor := collector.StreamServerInterceptor()
	info := &grpc.StreamServerInfo{FullMethod: "/globe.v1.SceneService/WatchFrames", IsServerStream: true}

	var during float64
	err = interceptor(nil, fakeServerStream{}, info, func(srv interface{}, ss grpc.ServerStream) error {
		during = testutil.ToFloat64(collector.StreamClients)
		return nil
	})
	if err != nil {
		t.Fatalf("stream handler returned error: %v", err)
	}
	if during != 1 {
		t.Fatalf("globe_stream_clients during stream = %v, want 1", during)
	}
	if after := testutil.ToFloat64(collector.StreamClients); after != 0 {
		t.Fatalf("globe_stream_clients after stream = %v, want 0", after)
	}
	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("SceneService", "WatchFrames", "OK")); got != 1 {
		t.Fatalf("globe_rpc_requests_total for stream = %v, want 1", got)
	}
}

func TestCollectorReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	second, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("second NewCollector: %v", err)
	}
	first.RPCRequests.WithLabelValues("s", "m", "OK").Inc()
	if got := testutil.ToFloat64(second.RPCRequests.WithLabelValues("s", "m", "OK")); got != 1 {
		t.Fatalf("second collector does not share counters: %v", got)
	}
}

func TestMetricsHandlerExposesFrameMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	frames, err := NewFrameCollector(reg)
	if err != nil {
		t.Fatalf("NewFrameCollector: %v", err)
	}
	frames.ObserveFrame(2*time.Millisecond, 3, 4)
	frames.ObserveFrame(time.Millisecond, 0, 1)
	frames.SetSceneEntities(map[string]int{"marker": 6, "arc": 3})
	collector.ClientConnected()
	collector.RPCRequests.WithLabelValues("svc", "method", "OK").Inc()
	collector.RPCDurations.WithLabelValues("svc", "method").Observe(0.01)

	if got := testutil.ToFloat64(frames.FramesTotal); got != 2 {
		t.Fatalf("globe_frames_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(frames.RippleCycles); got != 3 {
		t.Fatalf("globe_ripple_cycles_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(frames.FlowRestarts); got != 5 {
		t.Fatalf("globe_arc_flow_restarts_total = %v, want 5", got)
	}
	if got := testutil.ToFloat64(frames.SceneEntities.WithLabelValues("marker")); got != 6 {
		t.Fatalf("globe_scene_entities{kind=marker} = %v, want 6", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"globe_rpc_requests_total",
		"globe_rpc_request_duration_seconds",
		"globe_stream_clients",
		"globe_frames_total",
		"globe_frame_duration_seconds",
		"globe_arc_flow_restarts_total",
		"globe_ripple_cycles_total",
		`globe_scene_entities{kind="arc"} 3`,
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func TestNilCollectorsAreSafe(t *testing.T) {
	var c *Collector
	c.ClientConnected()
	c.ClientDisconnected()
	var f *FrameCollector
	f.ObserveFrame(time.Millisecond, 1, 1)
	f.SetSceneEntities(map[string]int{"marker": 1})
}

func TestSplitMethod(t *testing.T) {
	cases := []struct {
		in, service, method string
	}{
		{"/globe.v1.SceneService/Pick", "SceneService", "Pick"},
		{"", "unknown", "unknown"},
		{"nomethod", "unknown", "unknown"},
	}
	for _, tc := range cases {
		s, m := SplitMethod(tc.in)
		if s != tc.service || m != tc.method {
			t.Errorf("SplitMethod(%q) = %q, %q; want %q, %q", tc.in, s, m, tc.service, tc.method)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
