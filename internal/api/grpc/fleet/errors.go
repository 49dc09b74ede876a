package fleet

import (
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/oshokin/fleet-status/internal/domain/fleet"
)

// ErrorDomain identifies the ErrorInfo details attached by this service.
const ErrorDomain = "fleet.v1"

// ErrorInfo metadata keys carrying the outcome of a dispatch whose log write failed.
const (
	metadataDispatched = "dispatched"
	metadataFallback   = "fallback"
)

// errorKinds maps engine sentinels to codes and ErrorInfo reasons, checked in order.
var errorKinds = []struct {
	// kind is the engine sentinel.
	kind error
	// reason is the stable ErrorInfo reason sent on the wire.
	reason string
	// code is the gRPC status code.
	code codes.Code
}{
	{domain.ErrUnknownUnit, "UNKNOWN_UNIT", codes.NotFound},
	{domain.ErrConfigurationInvalid, "CONFIGURATION_INVALID", codes.InvalidArgument},
	{domain.ErrLogWrite, "LOG_WRITE", codes.Unavailable},
	{domain.ErrConfigPersist, "CONFIG_PERSIST", codes.Unavailable},
}

// toStatusError maps engine errors to gRPC codes so callers can tell request
// errors from transient I/O failures.
func toStatusError(err error) error {
	return statusFor(err, nil).Err()
}

// statusFor builds the status for err, attaching an ErrorInfo with the engine
// error kind and the given metadata.
func statusFor(err error, metadata map[string]string) *status.Status {
	for _, k := range errorKinds {
		if !errors.Is(err, k.kind) {
			continue
		}

		st := status.New(k.code, err.Error())

		detailed, detailErr := st.WithDetails(&errdetails.ErrorInfo{
			Reason:   k.reason,
			Domain:   ErrorDomain,
			Metadata: metadata,
		})
		if detailErr != nil {
			return st
		}

		return detailed
	}

	return status.New(codes.Internal, err.Error())
}

// remoteError carries a server status while unwrapping to an engine error kind.
type remoteError struct {
	// kind is the engine sentinel the server reported.
	kind error
	// status is the status received from the server.
	status *status.Status
}

// Error returns the server's message.
func (e *remoteError) Error() string { return e.status.Message() }

// Unwrap exposes the engine sentinel to errors.Is.
func (e *remoteError) Unwrap() error { return e.kind }

// GRPCStatus keeps the original status reachable through status.FromError.
func (e *remoteError) GRPCStatus() *status.Status { return e.status }

// FromStatusError maps a gRPC error produced by this server back to the
// engine's error kinds using its ErrorInfo reason. Other errors, including
// transport failures, are returned unchanged.
func FromStatusError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	info := errorInfo(st)
	if info == nil {
		return err
	}

	for _, k := range errorKinds {
		if k.reason == info.GetReason() {
			return &remoteError{kind: k.kind, status: st}
		}
	}

	return err
}

// DispatchResultFromError recovers the outcome attached to a dispatch that
// was applied but could not be logged.
func DispatchResultFromError(err error) (domain.DispatchResult, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return domain.DispatchResult{}, false
	}

	metadata := errorInfo(st).GetMetadata()

	dispatched, found := metadata[metadataDispatched]
	if !found {
		return domain.DispatchResult{}, false
	}

	fallback, hasFallback := metadata[metadataFallback]

	return domain.DispatchResult{
		Dispatched:  dispatched,
		Fallback:    fallback,
		HasFallback: hasFallback,
	}, true
}

func dispatchMetadata(result domain.DispatchResult) map[string]string {
	metadata := map[string]string{metadataDispatched: result.Dispatched}
	if result.HasFallback {
		metadata[metadataFallback] = result.Fallback
	}

	return metadata
}

func errorInfo(st *status.Status) *errdetails.ErrorInfo {
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			return info
		}
	}

	return nil
}
