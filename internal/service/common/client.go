//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/oshokin/fleet-status/internal/api/grpc/fleet"
	"github.com/oshokin/fleet-status/internal/config"
	domain "github.com/oshokin/fleet-status/internal/domain/fleet"
)

// Client wraps the FleetService connection with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the fleet server.
	conn grpc.ClientConnInterface
	// closer releases conn; nil when the connection is owned by the caller.
	closer func() error

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// actor is sent with every call so the server can attribute changes.
	actor string
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor sets the operator reported to the server.
func WithActor(actor Actor) Option {
	return func(c *Client) {
		c.actor = actor.String()
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial establishes a gRPC connection to the fleet server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial fleet server: %w", err)
	}

	client := NewClient(conn, opts...)
	client.closer = conn.Close

	return client, nil
}

// NewClient wraps an existing connection. The caller keeps ownership of conn.
func NewClient(conn grpc.ClientConnInterface, opts ...Option) *Client {
	client := &Client{
		conn:        conn,
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}

	return c.closer()
}

// Dispatch sends a unit out and returns the resolved fallback. When the server
// applied the dispatch but could not log it, the result is filled and the
// error wraps fleet.ErrLogWrite.
func (c *Client) Dispatch(ctx context.Context, unitID string) (domain.DispatchResult, error) {
	resp := new(structpb.Struct)
	if err := c.invoke(ctx, api.DispatchMethod, wrapperspb.String(unitID), resp); err != nil {
		result, _ := api.DispatchResultFromError(err)

		return result, fmt.Errorf("dispatch: %w", err)
	}

	return api.DecodeDispatchResult(resp), nil
}

// MarkLogistics moves a unit to logistics.
func (c *Client) MarkLogistics(ctx context.Context, unitID string) (domain.Status, error) {
	return c.transition(ctx, api.MarkLogisticsMethod, unitID)
}

// MarkDestination moves a unit to destination.
func (c *Client) MarkDestination(ctx context.Context, unitID string) (domain.Status, error) {
	return c.transition(ctx, api.MarkDestinationMethod, unitID)
}

// Reset makes a unit available again.
func (c *Client) Reset(ctx context.Context, unitID string) (domain.Status, error) {
	return c.transition(ctx, api.ResetMethod, unitID)
}

// SetAvailability marks the selected units available and the rest of the idle fleet unavailable.
func (c *Client) SetAvailability(ctx context.Context, selected []string) error {
	if err := c.invoke(ctx, api.SetAvailabilityMethod, api.EncodeIDs(selected), new(emptypb.Empty)); err != nil {
		return fmt.Errorf("set availability: %w", err)
	}

	return nil
}

// UpdateFleet replaces unit locations and fallback rules.
func (c *Client) UpdateFleet(ctx context.Context, update domain.FleetUpdate) error {
	if err := c.invoke(ctx, api.UpdateFleetMethod, api.EncodeFleetUpdate(update), new(emptypb.Empty)); err != nil {
		return fmt.Errorf("update fleet: %w", err)
	}

	return nil
}

// Snapshot retrieves the fleet state; an empty category uses the server default.
func (c *Client) Snapshot(ctx context.Context, category string) (*domain.Snapshot, error) {
	resp := new(structpb.Struct)
	if err := c.invoke(ctx, api.SnapshotMethod, wrapperspb.String(category), resp); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	snapshot, err := api.DecodeSnapshot(resp)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	return snapshot, nil
}

func (c *Client) transition(ctx context.Context, method, unitID string) (domain.Status, error) {
	resp := new(structpb.Struct)
	if err := c.invoke(ctx, method, wrapperspb.String(unitID), resp); err != nil {
		return "", fmt.Errorf("update %s: %w", unitID, err)
	}

	_, status := api.DecodeUnitStatus(resp)

	return status, nil
}

// invoke performs a unary call and maps server status errors back to domain errors.
func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if c.actor != "" {
		callCtx = metadata.AppendToOutgoingContext(callCtx, api.ActorMetadataKey, c.actor)
	}

	if err := c.conn.Invoke(callCtx, method, req, resp); err != nil {
		return api.FromStatusError(err)
	}

	return nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
