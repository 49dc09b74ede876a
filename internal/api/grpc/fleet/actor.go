package fleet

import (
	"context"
	"path"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/oshokin/fleet-status/internal/logger"
)

// ActorMetadataKey is the metadata key carrying the calling operator ("user@host").
const ActorMetadataKey = "x-fleet-actor"

// unknownActor is logged when a request carries no actor.
const unknownActor = "unknown"

// ActorInterceptor scopes the request logger to the calling operator and method,
// and logs failed calls.
func ActorInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	ctx = logger.WithKV(ctx, "actor", ActorFromContext(ctx), "method", path.Base(info.FullMethod))

	resp, err := handler(ctx, req)
	if err != nil {
		logger.WarnKV(ctx, "Request failed", "error", err)
	}

	return resp, err
}

// ActorFromContext returns the operator recorded in incoming metadata.
func ActorFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return unknownActor
	}

	if values := md.Get(ActorMetadataKey); len(values) > 0 && values[0] != "" {
		return values[0]
	}

	return unknownActor
}
