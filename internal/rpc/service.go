// Package rpc exposes a running scene over gRPC as globe.v1.SceneService.
//
// Messages travel as google.protobuf.Struct values holding the same JSON
// documents the websocket stream sends, so no generated stubs are needed.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/globe-visualizer/internal/logging"
	"github.com/signalsfoundry/globe-visualizer/internal/observability"
	"github.com/signalsfoundry/globe-visualizer/internal/scene"
	"github.com/signalsfoundry/globe-visualizer/model"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "globe.v1.SceneService"

const (
	methodDescribe    = "/" + ServiceName + "/Describe"
	methodGetFrame    = "/" + ServiceName + "/GetFrame"
	methodPick        = "/" + ServiceName + "/Pick"
	methodResize      = "/" + ServiceName + "/Resize"
	methodLookupCity  = "/" + ServiceName + "/LookupCity"
	methodWatchFrames = "/" + ServiceName + "/WatchFrames"
)

// ErrInvalidRequest is returned for malformed request documents.
var ErrInvalidRequest = errors.New("invalid request")

// Source is the running scene the service reads from.
type Source interface {
	Describe() scene.Description
	Frame(dst *scene.FrameState)
	Subscribe() (<-chan struct{}, func())
	Pick(ctx context.Context, x, y float64) (model.Selection, bool)
	Resize(width, height float64) scene.Viewport
}

// CityLookup resolves city names; kb.Catalog satisfies it.
type CityLookup interface {
	City(name string) (model.GeoPoint, error)
}

// SceneServiceServer is the server API of globe.v1.SceneService.
type SceneServiceServer interface {
	Describe(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetFrame(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Pick(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Resize(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LookupCity(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchFrames(*structpb.Struct, SceneService_WatchFramesServer) error
}

// SceneService_WatchFramesServer is the server side of the frame stream.
type SceneService_WatchFramesServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

// SceneService implements SceneServiceServer on top of a Source.
type SceneService struct {
	src     Source
	cities  CityLookup
	log     logging.Logger
	metrics *observability.Collector
}

// ServiceOption configures a SceneService.
type ServiceOption func(*SceneService)

// WithLogger sets the fallback logger used when a request carries none.
func WithLogger(l logging.Logger) ServiceOption {
	return func(s *SceneService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCities enables LookupCity.
func WithCities(c CityLookup) ServiceOption {
	return func(s *SceneService) { s.cities = c }
}

// WithMetrics counts frame watchers as stream clients on c.
func WithMetrics(c *observability.Collector) ServiceOption {
	return func(s *SceneService) { s.metrics = c }
}

// NewSceneService returns a service backed by src.
func NewSceneService(src Source, opts ...ServiceOption) *SceneService {
	s := &SceneService{src: src, log: logging.Noop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register installs s on srv.
func Register(srv grpc.ServiceRegistrar, s SceneServiceServer) {
	srv.RegisterService(&ServiceDesc, s)
}

// Describe returns the static scene description.
func (s *SceneService) Describe(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out, err := toStruct(s.src.Describe())
	return out, ToStatusError(err)
}

// GetFrame returns the latest published frame.
func (s *SceneService) GetFrame(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	var fs scene.FrameState
	s.src.Frame(&fs)
	out, err := toStruct(&fs)
	return out, ToStatusError(err)
}

// PickResult is the Pick response document.
type PickResult struct {
	Hit       bool             `json:"hit"`
	Selection *model.Selection `json:"selection,omitempty"`
}

// Pick hit-tests a viewport pixel given as {"x":..,"y":..}.
func (s *SceneService) Pick(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	x, err := number(req, "x")
	if err != nil {
		return nil, ToStatusError(err)
	}
	y, err := number(req, "y")
	if err != nil {
		return nil, ToStatusError(err)
	}

	ctx, span := observability.StartSpan(ctx, "rpc.Pick",
		attribute.Float64("pick.x", x),
		attribute.Float64("pick.y", y),
	)
	defer span.End()

	sel, ok := s.src.Pick(ctx, x, y)
	res := PickResult{Hit: ok}
	if ok {
		res.Selection = &sel
		span.SetAttributes(attribute.String("pick.event_name", sel.EventName))
	}
	logging.FromContext(ctx, s.log).Debug(ctx, "pick",
		logging.Float64("x", x),
		logging.Float64("y", y),
		logging.Bool("hit", ok),
	)
	out, err := toStruct(res)
	return out, ToStatusError(err)
}

// Resize applies {"width":..,"height":..} and returns the resulting viewport.
func (s *SceneService) Resize(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	w, err := number(req, "width")
	if err != nil {
		return nil, ToStatusError(err)
	}
	h, err := number(req, "height")
	if err != nil {
		return nil, ToStatusError(err)
	}
	if w <= 0 || h <= 0 {
		return nil, ToStatusError(fmt.Errorf("%w: viewport %vx%v", ErrInvalidRequest, w, h))
	}
	vp := s.src.Resize(w, h)
	out, err := toStruct(vp)
	return out, ToStatusError(err)
}

// LookupCity resolves {"name":..} against the route catalog.
func (s *SceneService) LookupCity(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.cities == nil {
		return nil, ToStatusError(ErrNoCatalog)
	}
	name := req.GetFields()["name"].GetStringValue()
	if name == "" {
		return nil, ToStatusError(fmt.Errorf("%w: name is required", ErrInvalidRequest))
	}
	p, err := s.cities.City(name)
	if err != nil {
		return nil, ToStatusError(err)
	}
	out, err := toStruct(p)
	return out, ToStatusError(err)
}

// WatchFrames streams every published frame until the client goes away or
// "limit" frames have been sent. A limit of zero means unbounded.
func (s *SceneService) WatchFrames(req *structpb.Struct, stream SceneService_WatchFramesServer) error {
	ctx := stream.Context()
	limit := 0
	if v, ok := req.GetFields()["limit"]; ok {
		n := v.GetNumberValue()
		if n < 0 || n != math.Trunc(n) {
			return ToStatusError(fmt.Errorf("%w: limit %v", ErrInvalidRequest, n))
		}
		limit = int(n)
	}

	notify, unsubscribe := s.src.Subscribe()
	defer unsubscribe()
	s.metrics.ClientConnected()
	defer s.metrics.ClientDisconnected()

	log := logging.FromContext(ctx, s.log)
	log.Info(ctx, "frame watch started", logging.Int("limit", limit))

	var fs scene.FrameState
	sent := 0
	for {
		select {
		case <-ctx.Done():
			log.Info(context.Background(), "frame watch ended", logging.Int("sent", sent))
			return nil
		case <-notify:
		}
		s.src.Frame(&fs)
		msg, err := toStruct(&fs)
		if err != nil {
			return ToStatusError(err)
		}
		if err := stream.Send(msg); err != nil {
			return err
		}
		sent++
		if limit > 0 && sent >= limit {
			return nil
		}
	}
}

func number(req *structpb.Struct, key string) (float64, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidRequest, key)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || math.IsNaN(n.NumberValue) || math.IsInf(n.NumberValue, 0) {
		return 0, fmt.Errorf("%w: %s must be a finite number", ErrInvalidRequest, key)
	}
	return n.NumberValue, nil
}

// toStruct converts v through its JSON encoding.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return out, nil
}

// fromStruct decodes s into v through its JSON encoding.
func fromStruct(s *structpb.Struct, v any) error {
	raw, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// ServiceDesc describes globe.v1.SceneService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SceneServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Describe", Handler: describeHandler},
		{MethodName: "GetFrame", Handler: getFrameHandler},
		{MethodName: "Pick", Handler: pickHandler},
		{MethodName: "Resize", Handler: resizeHandler},
		{MethodName: "LookupCity", Handler: lookupCityHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchFrames", Handler: watchFramesHandler, ServerStreams: true},
	},
	Metadata: "globe/v1/scene_service.proto",
}

func describeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SceneServiceServer).Describe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodDescribe}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SceneServiceServer).Describe(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getFrameHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SceneServiceServer).GetFrame(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetFrame}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SceneServiceServer).GetFrame(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// structHandler builds the unary handler for a Struct-in, Struct-out method.
func structHandler(fullMethod string, call func(SceneServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SceneServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(SceneServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var (
	pickHandler = structHandler(methodPick, func(s SceneServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
		return s.Pick(ctx, in)
	})
	resizeHandler = structHandler(methodResize, func(s SceneServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
		return s.Resize(ctx, in)
	})
	lookupCityHandler = structHandler(methodLookupCity, func(s SceneServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
		return s.LookupCity(ctx, in)
	})
)

func watchFramesHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(SceneServiceServer).WatchFrames(in, &watchFramesServer{stream})
}

type watchFramesServer struct {
	grpc.ServerStream
}

func (x *watchFramesServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}
