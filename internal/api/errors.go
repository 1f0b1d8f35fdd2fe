package api

import (
	"errors"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/matheus3301/lifechat/internal/dispatch"
	"github.com/matheus3301/lifechat/internal/presence"
)

// toStatus maps domain errors onto gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, dispatch.ErrEmptyContent):
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, dispatch.ErrNotMember):
		return grpcstatus.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, presence.ErrUnknownSession):
		return grpcstatus.Error(codes.NotFound, err.Error())
	}
	return grpcstatus.Error(codes.Internal, err.Error())
}
