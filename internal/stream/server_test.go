package stream

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/signalsfoundry/globe-visualizer/core"
	"github.com/signalsfoundry/globe-visualizer/internal/assets"
	"github.com/signalsfoundry/globe-visualizer/internal/engine"
	"github.com/signalsfoundry/globe-visualizer/internal/observability"
	"github.com/signalsfoundry/globe-visualizer/internal/scene"
	"github.com/signalsfoundry/globe-visualizer/model"
)

func newRunner(t *testing.T) *engine.Runner {
	t.Helper()
	cat, err := assets.Placeholders(core.RequiredTextures())
	if err != nil {
		t.Fatalf("Placeholders: %v", err)
	}
	p, err := scene.NewPie(context.Background(), scene.DefaultPieConfig(), cat, scene.WithViewport(300, 300))
	if err != nil {
		t.Fatalf("NewPie: %v", err)
	}
	return engine.New(p)
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil skips frame messages until one of type want arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) Outbound {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg Outbound
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return msg
		}
	}
}

func TestStreamSendsSceneThenFrames(t *testing.T) {
	r := newRunner(t)
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	srv := httptest.NewServer(NewServer(r, WithMetrics(metrics)).Handler())
	defer srv.Close()

	conn := dial(t, srv)
	first := readUntil(t, conn, TypeScene)
	if first.Scene == nil || first.Scene.Scene != "pie" || len(first.Scene.Nodes) == 0 {
		t.Fatalf("scene message = %+v", first.Scene)
	}
	if got := testutil.ToFloat64(metrics.StreamClients); got != 1 {
		t.Fatalf("stream clients = %v, want 1", got)
	}

	// The subscription is registered right after the scene is written;
	// keep ticking until a frame makes it through.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				r.Tick()
			}
		}
	}()
	msg := readUntil(t, conn, TypeFrame)
	if msg.Frame == nil || msg.Frame.Scene != "pie" || msg.Frame.Frame == 0 {
		t.Fatalf("frame message = %+v", msg.Frame)
	}
}

func TestStreamPickAndResize(t *testing.T) {
	r := newRunner(t)
	srv := httptest.NewServer(NewServer(r).Handler())
	defer srv.Close()

	conn := dial(t, srv)
	readUntil(t, conn, TypeScene)

	l := core.LayoutPie(scene.DefaultPieConfig().Data, 300)
	s := l.Sectors[0]
	mid := (l.Inner + l.Outer) / 2
	a := s.Span()/2 - math.Pi/2
	if err := conn.WriteJSON(Inbound{Action: "pick", X: 150 + mid*math.Cos(a), Y: 150 - mid*math.Sin(a)}); err != nil {
		t.Fatalf("write pick: %v", err)
	}
	msg := readUntil(t, conn, TypeSelection)
	if !msg.Hit || msg.Selection == nil || *msg.Selection != (model.Selection{EventType: model.EventSector, EventName: s.Datum.Label}) {
		t.Fatalf("selection = %+v", msg)
	}

	if err := conn.WriteJSON(Inbound{Action: "pick", X: 150, Y: 150}); err != nil {
		t.Fatalf("write pick: %v", err)
	}
	if msg := readUntil(t, conn, TypeSelection); msg.Hit || msg.Selection != nil {
		t.Fatalf("miss reported as %+v", msg)
	}

	if err := conn.WriteJSON(Inbound{Action: "resize", Width: 800, Height: 600}); err != nil {
		t.Fatalf("write resize: %v", err)
	}
	msg = readUntil(t, conn, TypeViewport)
	if msg.Viewport == nil || *msg.Viewport != (scene.Viewport{Width: 800, Height: 600}) {
		t.Fatalf("viewport = %+v", msg.Viewport)
	}

	if err := conn.WriteJSON(Inbound{Action: "explode"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readUntil(t, conn, TypeError); !strings.Contains(msg.Error, "explode") {
		t.Fatalf("error = %q", msg.Error)
	}
}

func TestSceneEndpoint(t *testing.T) {
	r := newRunner(t)
	srv := httptest.NewServer(NewServer(r).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/scene")
	if err != nil {
		t.Fatalf("GET /scene: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var d scene.Description
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Scene != "pie" || len(d.Meshes) == 0 {
		t.Fatalf("description = %s with %d meshes", d.Scene, len(d.Meshes))
	}
	sectors := 0
	for _, n := range d.Nodes {
		if n.Kind == scene.KindSector {
			sectors++
		}
	}
	if sectors != 3 {
		t.Fatalf("sectors = %d, want 3", sectors)
	}

	post, err := http.Post(srv.URL+"/scene", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /scene: %v", err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d", post.StatusCode)
	}
}
