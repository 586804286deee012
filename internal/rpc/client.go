package rpc

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/globe-visualizer/internal/scene"
	"github.com/signalsfoundry/globe-visualizer/model"
)

// Client is a typed client for globe.v1.SceneService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Describe fetches the static scene description.
func (c *Client) Describe(ctx context.Context, opts ...grpc.CallOption) (scene.Description, error) {
	var d scene.Description
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodDescribe, &emptypb.Empty{}, out, opts...); err != nil {
		return d, err
	}
	err := fromStruct(out, &d)
	return d, err
}

// GetFrame fetches the latest frame.
func (c *Client) GetFrame(ctx context.Context, opts ...grpc.CallOption) (scene.FrameState, error) {
	var fs scene.FrameState
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetFrame, &emptypb.Empty{}, out, opts...); err != nil {
		return fs, err
	}
	err := fromStruct(out, &fs)
	return fs, err
}

// Pick hit-tests a viewport pixel.
func (c *Client) Pick(ctx context.Context, x, y float64, opts ...grpc.CallOption) (PickResult, error) {
	var res PickResult
	in, err := structpb.NewStruct(map[string]any{"x": x, "y": y})
	if err != nil {
		return res, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodPick, in, out, opts...); err != nil {
		return res, err
	}
	err = fromStruct(out, &res)
	return res, err
}

// Resize changes the server-side viewport.
func (c *Client) Resize(ctx context.Context, width, height float64, opts ...grpc.CallOption) (scene.Viewport, error) {
	var vp scene.Viewport
	in, err := structpb.NewStruct(map[string]any{"width": width, "height": height})
	if err != nil {
		return vp, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodResize, in, out, opts...); err != nil {
		return vp, err
	}
	err = fromStruct(out, &vp)
	return vp, err
}

// LookupCity resolves a city by name.
func (c *Client) LookupCity(ctx context.Context, name string, opts ...grpc.CallOption) (model.GeoPoint, error) {
	var p model.GeoPoint
	in, err := structpb.NewStruct(map[string]any{"name": name})
	if err != nil {
		return p, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodLookupCity, in, out, opts...); err != nil {
		return p, err
	}
	err = fromStruct(out, &p)
	return p, err
}

// WatchFrames calls fn for every streamed frame until the stream ends, ctx
// is cancelled or fn returns an error. limit zero streams until cancelled.
func (c *Client) WatchFrames(ctx context.Context, limit int, fn func(scene.FrameState) error, opts ...grpc.CallOption) error {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], methodWatchFrames, opts...)
	if err != nil {
		return err
	}
	in, err := structpb.NewStruct(map[string]any{"limit": limit})
	if err != nil {
		return err
	}
	if err := stream.SendMsg(in); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var fs scene.FrameState
		if err := fromStruct(msg, &fs); err != nil {
			return err
		}
		if err := fn(fs); err != nil {
			return err
		}
	}
}
