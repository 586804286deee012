// Package stream pushes scene descriptions and per-frame state to browser
// renderers over websocket, and accepts pick and resize requests back.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/signalsfoundry/globe-visualizer/internal/logging"
	"github.com/signalsfoundry/globe-visualizer/internal/observability"
	"github.com/signalsfoundry/globe-visualizer/internal/scene"
	"github.com/signalsfoundry/globe-visualizer/model"
)

// Source is the running scene the server streams from.
type Source interface {
	Describe() scene.Description
	Frame(dst *scene.FrameState)
	Subscribe() (<-chan struct{}, func())
	Pick(ctx context.Context, x, y float64) (model.Selection, bool)
	Resize(width, height float64) scene.Viewport
}

// Message types sent to clients.
const (
	TypeScene     = "scene"
	TypeFrame     = "frame"
	TypeSelection = "selection"
	TypeViewport  = "viewport"
	TypeError     = "error"
)

// Outbound is the envelope of every server message.
type Outbound struct {
	Type      string             `json:"type"`
	Scene     *scene.Description `json:"scene,omitempty"`
	Frame     *scene.FrameState  `json:"frame,omitempty"`
	Selection *model.Selection   `json:"selection,omitempty"`
	Hit       bool               `json:"hit,omitempty"`
	Viewport  *scene.Viewport    `json:"viewport,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// Inbound is a client request: {"action":"pick","x":..,"y":..} or
// {"action":"resize","width":..,"height":..}.
type Inbound struct {
	Action string  `json:"action"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Server serves /ws and /scene.
type Server struct {
	src          Source
	log          logging.Logger
	metrics      *observability.Collector
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	writeTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics counts connected clients on c.
func WithMetrics(c *observability.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

// WithPingInterval overrides the keep-alive period.
func WithPingInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pingInterval = d
		}
	}
}

// NewServer returns a server streaming src.
func NewServer(src Source, opts ...Option) *Server {
	s := &Server{
		src: src,
		log: logging.Noop(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			// Renderers are served from other origins during development.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		pingInterval: 30 * time.Second,
		writeTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/scene", s.serveScene)
	return mux
}

func (s *Server) serveScene(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.src.Describe()); err != nil {
		s.log.Warn(r.Context(), "scene encode failed", logging.Err(err))
	}
}

type client struct {
	conn    *websocket.Conn
	mu      sync.Mutex
	timeout time.Duration
}

func (c *client) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	return c.conn.WriteJSON(v)
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.timeout))
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn(r.Context(), "websocket upgrade failed", logging.Err(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	ctx, reqID := logging.EnsureRequestID(ctx)
	log := s.log.With(logging.String("request_id", reqID), logging.String("remote", r.RemoteAddr))

	s.metrics.ClientConnected()
	defer s.metrics.ClientDisconnected()
	log.Info(ctx, "stream client connected")
	defer log.Info(context.Background(), "stream client disconnected")

	c := &client{conn: conn, timeout: s.writeTimeout}
	desc := s.src.Describe()
	if err := c.write(Outbound{Type: TypeScene, Scene: &desc}); err != nil {
		log.Warn(ctx, "initial scene write failed", logging.Err(err))
		return
	}

	notify, unsubscribe := s.src.Subscribe()
	defer unsubscribe()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.pump(ctx, c, notify)
		// Unblocks the reader when the pump fails first.
		cancel()
		_ = conn.Close()
	}()
	defer wg.Wait()

	for {
		var in Inbound
		if err := conn.ReadJSON(&in); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
				log.Debug(ctx, "stream read ended", logging.Err(err))
			}
			cancel()
			return
		}
		if err := c.write(s.handle(ctx, in)); err != nil {
			cancel()
			return
		}
	}
}

// pump writes a frame after every notification and pings on idle.
func (s *Server) pump(ctx context.Context, c *client, notify <-chan struct{}) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	var fs scene.FrameState
	msg := Outbound{Type: TypeFrame, Frame: &fs}
	for {
		select {
		case <-ctx.Done():
			return
		case <-notify:
			s.src.Frame(&fs)
			if err := c.write(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

func (s *Server) handle(ctx context.Context, in Inbound) Outbound {
	switch in.Action {
	case "pick":
		sel, ok := s.src.Pick(ctx, in.X, in.Y)
		out := Outbound{Type: TypeSelection, Hit: ok}
		if ok {
			out.Selection = &sel
		}
		return out
	case "resize":
		vp := s.src.Resize(in.Width, in.Height)
		return Outbound{Type: TypeViewport, Viewport: &vp}
	default:
		return Outbound{Type: TypeError, Error: "unknown action " + in.Action}
	}
}
