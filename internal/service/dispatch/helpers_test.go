package dispatch

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/fleet-status/internal/clock"
	domain "github.com/oshokin/fleet-status/internal/domain/fleet"
)

var (
	errTestRead  = errors.New("test read error")
	errTestWrite = errors.New("test write error")
	errTestSave  = errors.New("test save error")
)

// testStart is the fake clock origin shared by the tests.
//
//nolint:gochecknoglobals // Immutable test fixture.
var testStart = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

// memorySink is an in-memory activitylog.Sink.
type memorySink struct {
	// mu guards the fields below.
	mu sync.Mutex
	// lines is the persisted content.
	lines []string
	// readErr is returned by ReadLines when set.
	readErr error
	// writeErr is returned by Rewrite when set.
	writeErr error
	// writes counts successful rewrites.
	writes int
}

// ReadLines returns a copy of the stored lines or readErr.
func (s *memorySink) ReadLines(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readErr != nil {
		return nil, s.readErr
	}

	return slices.Clone(s.lines), nil
}

// Rewrite replaces the stored lines unless writeErr is set.
func (s *memorySink) Rewrite(_ context.Context, lines []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return s.writeErr
	}

	s.lines = slices.Clone(lines)
	s.writes++

	return nil
}

// stored returns the persisted lines.
func (s *memorySink) stored() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.lines)
}

// memoryProvider is an in-memory fleetconfig.Provider.
type memoryProvider struct {
	// saved is the last configuration passed to Save.
	saved *domain.Config
	// saveErr is returned by Save when set.
	saveErr error
}

// Load returns the last saved configuration.
func (p *memoryProvider) Load(context.Context) (*domain.Config, error) {
	return p.saved, nil
}

// Save stores cfg unless saveErr is set.
func (p *memoryProvider) Save(_ context.Context, cfg *domain.Config) error {
	if p.saveErr != nil {
		return p.saveErr
	}

	p.saved = cfg.Clone()

	return nil
}

// medicFleet returns four Medic units with Medic1 falling back to Medic2 then Medic3.
func medicFleet() *domain.Config {
	return &domain.Config{
		Trucks: []domain.Unit{
			{ID: "Medic1", Location: "Station 1"},
			{ID: "Medic2", Location: "Station 2"},
			{ID: "Medic3", Location: "Station 3"},
			{ID: "Medic4", Location: "Station 4"},
		},
		FallbackRules: []domain.FallbackRule{
			{Primary: "Medic1", Fallbacks: []string{"Medic2", "Medic3"}},
		},
	}
}

// newTestCoordinator builds a coordinator on a fake clock and an in-memory sink.
func newTestCoordinator(
	t *testing.T,
	cfg *domain.Config,
	opts ...Option,
) (*Coordinator, *memorySink, *clock.FakeClock) {
	t.Helper()

	var (
		sink = new(memorySink)
		fake = clock.Fake(testStart)
	)

	c, err := New(cfg, sink, append([]Option{WithClock(fake), WithLocation(time.UTC)}, opts...)...)
	require.NoError(t, err)

	return c, sink, fake
}

// requireTimerInvariant asserts that a unit has a timer iff its status is timed.
func requireTimerInvariant(t *testing.T, c *Coordinator) {
	t.Helper()

	c.mu.RLock()
	defer c.mu.RUnlock()

	require.Len(t, c.registry.statuses, len(c.units))

	for id, status := range c.registry.statuses {
		_, hasTimer := c.registry.timers[id]
		require.Equal(t, status.IsTimed(), hasTimer, "unit %s in %s", id, status)
	}

	for id := range c.registry.timers {
		require.Contains(t, c.registry.statuses, id)
	}
}
