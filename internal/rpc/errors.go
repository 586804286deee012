package rpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/globe-visualizer/internal/scene"
	"github.com/signalsfoundry/globe-visualizer/kb"
)

// ErrNoCatalog is returned by LookupCity when the server has no route
// catalog attached.
var ErrNoCatalog = errors.New("no route catalog")

// ToStatusError maps scene and catalog errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, kb.ErrCityNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, kb.ErrRouteInvalid):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, scene.ErrAssetMissing),
		errors.Is(err, ErrNoCatalog):
		return status.Error(codes.FailedPrecondition, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
