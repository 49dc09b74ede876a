package fleet

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/fleet-status/internal/domain/fleet"
)

// Service abstracts the dispatch operations the transport layer depends on.
type Service interface {
	Dispatch(ctx context.Context, primaryID string) (domain.DispatchResult, error)
	MarkLogistics(ctx context.Context, unitID string) error
	MarkDestination(ctx context.Context, unitID string) error
	Reset(ctx context.Context, unitID string) error
	SetAvailability(ctx context.Context, selected []string) error
	UpdateLocationsAndFallbacks(ctx context.Context, update domain.FleetUpdate) error
	Snapshot(category string) *domain.Snapshot
}

// Server implements fleet.v1.FleetService.
type Server struct {
	// service provides the dispatch engine.
	service Service
}

// Compile-time check that Server satisfies the service API.
var _ FleetServiceServer = (*Server)(nil)

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// Dispatch sends a unit out and returns its fallback. When only the activity
// log write fails the call fails with Unavailable, and the applied outcome is
// attached to the status for DispatchResultFromError.
func (s *Server) Dispatch(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	unitID, err := requireUnitID(req)
	if err != nil {
		return nil, err
	}

	result, err := s.service.Dispatch(ctx, unitID)
	if err != nil {
		if errors.Is(err, domain.ErrLogWrite) {
			return nil, statusFor(err, dispatchMetadata(result)).Err()
		}

		return nil, toStatusError(err)
	}

	return EncodeDispatchResult(result), nil
}

// MarkLogistics moves a unit into logistics.
func (s *Server) MarkLogistics(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	return s.transition(ctx, req, domain.StatusLogistics, s.service.MarkLogistics)
}

// MarkDestination moves a unit to a destination.
func (s *Server) MarkDestination(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	return s.transition(ctx, req, domain.StatusDestination, s.service.MarkDestination)
}

// Reset makes a unit available.
func (s *Server) Reset(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	return s.transition(ctx, req, domain.StatusAvailable, s.service.Reset)
}

// SetAvailability applies the bulk availability selection.
func (s *Server) SetAvailability(ctx context.Context, req *structpb.ListValue) (*emptypb.Empty, error) {
	ids, err := DecodeIDs(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err = s.service.SetAvailability(ctx, ids); err != nil {
		return nil, toStatusError(err)
	}

	return new(emptypb.Empty), nil
}

// UpdateFleet replaces locations and fallback rules.
func (s *Server) UpdateFleet(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	update, err := DecodeFleetUpdate(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err = s.service.UpdateLocationsAndFallbacks(ctx, update); err != nil {
		return nil, toStatusError(err)
	}

	return new(emptypb.Empty), nil
}

// Snapshot returns the fleet view for the requested category.
func (s *Server) Snapshot(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	return EncodeSnapshot(s.service.Snapshot(strings.TrimSpace(req.GetValue()))), nil
}

// transition runs a single-unit status change.
func (s *Server) transition(
	ctx context.Context,
	req *wrapperspb.StringValue,
	target domain.Status,
	apply func(ctx context.Context, unitID string) error,
) (*structpb.Struct, error) {
	unitID, err := requireUnitID(req)
	if err != nil {
		return nil, err
	}

	if err = apply(ctx, unitID); err != nil {
		return nil, toStatusError(err)
	}

	return EncodeUnitStatus(unitID, target), nil
}

// requireUnitID extracts a non-empty unit id from req.
func requireUnitID(req *wrapperspb.StringValue) (string, error) {
	if req == nil {
		return "", status.Error(codes.InvalidArgument, "request is required")
	}

	unitID := strings.TrimSpace(req.GetValue())
	if unitID == "" {
		return "", status.Error(codes.InvalidArgument, "unit id is required")
	}

	return unitID, nil
}
