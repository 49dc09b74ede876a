package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/fleet-status/internal/domain/fleet"
)

// TestNew_Validation rejects invalid configurations and a missing sink.
func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(medicFleet(), nil)
	require.Error(t, err)

	cfg := medicFleet()
	cfg.Trucks = append(cfg.Trucks, domain.Unit{ID: "Medic1"})

	_, err = New(cfg, new(memorySink))
	require.ErrorIs(t, err, domain.ErrConfigurationInvalid)
}

// TestCoordinator_DispatchScenario runs the Medic dispatch walkthrough.
func TestCoordinator_DispatchScenario(t *testing.T) {
	t.Parallel()

	c, sink, _ := newTestCoordinator(t, medicFleet())

	result, err := c.Dispatch(t.Context(), "Medic1")
	require.NoError(t, err)
	require.Equal(t, domain.DispatchResult{Dispatched: "Medic1", Fallback: "Medic2", HasFallback: true}, result)

	status, err := c.Status("Medic1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusOut, status)

	result, err = c.Dispatch(t.Context(), "Medic2")
	require.NoError(t, err)
	require.Equal(t, "Medic2", result.Dispatched)
	require.False(t, result.HasFallback)
	require.Empty(t, result.Fallback)

	status, err = c.Status("Medic2")
	require.NoError(t, err)
	require.Equal(t, domain.StatusOut, status)

	require.Equal(t, []string{
		"[2026-01-10 12:00:00 +00:00] Medic1 → out",
		"[2026-01-10 12:00:00 +00:00] Medic2 → out",
	}, sink.stored())

	requireTimerInvariant(t, c)
}

// TestCoordinator_DispatchSelfFallback never returns the dispatched unit as its own fallback.
func TestCoordinator_DispatchSelfFallback(t *testing.T) {
	t.Parallel()

	cfg := medicFleet()
	cfg.FallbackRules = []domain.FallbackRule{{Primary: "Medic1", Fallbacks: []string{"Medic1"}}}

	c, _, _ := newTestCoordinator(t, cfg)

	result, err := c.Dispatch(t.Context(), "Medic1")
	require.NoError(t, err)
	require.False(t, result.HasFallback)
}

// TestCoordinator_DispatchUnknown reports unknown units without touching the log.
func TestCoordinator_DispatchUnknown(t *testing.T) {
	t.Parallel()

	c, sink, _ := newTestCoordinator(t, medicFleet())

	_, err := c.Dispatch(t.Context(), "Engine1")
	require.ErrorIs(t, err, domain.ErrUnknownUnit)
	require.False(t, domain.IsRetryable(err))
	require.Zero(t, sink.writes)

	require.ErrorIs(t, c.MarkLogistics(t.Context(), "Engine1"), domain.ErrUnknownUnit)
	require.ErrorIs(t, c.MarkDestination(t.Context(), "Engine1"), domain.ErrUnknownUnit)
	require.ErrorIs(t, c.Reset(t.Context(), "Engine1"), domain.ErrUnknownUnit)

	_, err = c.Status("Engine1")
	require.ErrorIs(t, err, domain.ErrUnknownUnit)
}

// TestCoordinator_DispatchLogFailure still resolves the fallback when only the log write fails.
func TestCoordinator_DispatchLogFailure(t *testing.T) {
	t.Parallel()

	c, sink, _ := newTestCoordinator(t, medicFleet())
	sink.writeErr = errTestWrite

	result, err := c.Dispatch(t.Context(), "Medic1")
	require.ErrorIs(t, err, domain.ErrLogWrite)
	require.Equal(t, "Medic2", result.Fallback)

	status, _ := c.Status("Medic1")
	require.Equal(t, domain.StatusOut, status)
}

// TestCoordinator_SetAvailability updates idle units only.
func TestCoordinator_SetAvailability(t *testing.T) {
	t.Parallel()

	c, sink, _ := newTestCoordinator(t, medicFleet())

	_, err := c.Dispatch(t.Context(), "Medic2")
	require.NoError(t, err)
	require.NoError(t, c.MarkLogistics(t.Context(), "Medic3"))

	require.NoError(t, c.SetAvailability(t.Context(), []string{"Medic1"}))

	want := map[string]domain.Status{
		"Medic1": domain.StatusAvailable,
		"Medic2": domain.StatusOut,
		"Medic3": domain.StatusLogistics,
		"Medic4": domain.StatusUnavailable,
	}
	require.Equal(t, want, c.Snapshot("").Statuses)
	requireTimerInvariant(t, c)

	// Every eligible unit is logged, busy ones are not.
	require.Equal(t, []string{
		"[2026-01-10 12:00:00 +00:00] Medic2 → out",
		"[2026-01-10 12:00:00 +00:00] Medic3 → logistics",
		"[2026-01-10 12:00:00 +00:00] Medic1 → available",
		"[2026-01-10 12:00:00 +00:00] Medic4 → unavailable",
	}, sink.stored())

	// A busy unit in the selection stays as it is.
	require.NoError(t, c.SetAvailability(t.Context(), []string{"Medic2"}))

	status, _ := c.Status("Medic2")
	require.Equal(t, domain.StatusOut, status)

	status, _ = c.Status("Medic1")
	require.Equal(t, domain.StatusUnavailable, status)
}

// TestCoordinator_SetAvailabilityUnknown rejects unknown ids before changing anything.
func TestCoordinator_SetAvailabilityUnknown(t *testing.T) {
	t.Parallel()

	c, sink, _ := newTestCoordinator(t, medicFleet())

	err := c.SetAvailability(t.Context(), []string{"Medic1", "Ghost"})
	require.ErrorIs(t, err, domain.ErrUnknownUnit)
	require.Zero(t, sink.writes)
	require.Equal(t, 4, c.AvailableCount(nil))
}

// TestCoordinator_SetAvailabilityLogFailure applies every status and joins the write errors.
func TestCoordinator_SetAvailabilityLogFailure(t *testing.T) {
	t.Parallel()

	c, sink, _ := newTestCoordinator(t, medicFleet())
	sink.writeErr = errTestWrite

	err := c.SetAvailability(t.Context(), []string{"Medic3"})
	require.ErrorIs(t, err, domain.ErrLogWrite)
	require.Equal(t, 1, c.AvailableCount(nil))
}

// TestCoordinator_UpdateLocationsAndFallbacks replaces the rule set and keeps unspecified locations.
func TestCoordinator_UpdateLocationsAndFallbacks(t *testing.T) {
	t.Parallel()

	provider := new(memoryProvider)
	c, _, _ := newTestCoordinator(t, medicFleet(), WithProvider(provider))

	update := domain.FleetUpdate{
		Locations: map[string]string{"Medic1": "Hospital", "Medic2": ""},
		Fallbacks: map[string][]string{"Medic2": {"Medic4", "Medic3"}},
	}
	require.NoError(t, c.UpdateLocationsAndFallbacks(t.Context(), update))

	snapshot := c.Snapshot("")
	require.Equal(t, "Hospital", snapshot.Units[0].Location)
	require.Equal(t, "Station 2", snapshot.Units[1].Location)
	require.Equal(t, []domain.FallbackRule{
		{Primary: "Medic1", Fallbacks: nil},
		{Primary: "Medic2", Fallbacks: []string{"Medic4", "Medic3"}},
		{Primary: "Medic3", Fallbacks: nil},
		{Primary: "Medic4", Fallbacks: nil},
	}, snapshot.FallbackRules)

	// Medic1 lost its rule in the replacement.
	result, err := c.Dispatch(t.Context(), "Medic1")
	require.NoError(t, err)
	require.False(t, result.HasFallback)

	result, err = c.Dispatch(t.Context(), "Medic2")
	require.NoError(t, err)
	require.Equal(t, "Medic4", result.Fallback)

	require.NotNil(t, provider.saved)
	require.Equal(t, snapshot.Units, provider.saved.Trucks)
	require.Equal(t, snapshot.FallbackRules, provider.saved.FallbackRules)

	// The caller's input is not aliased.
	update.Fallbacks["Medic2"][0] = "Medic1"
	require.Equal(t, "Medic4", c.Snapshot("").FallbackRules[1].Fallbacks[0])
}

// TestCoordinator_UpdateInvalid leaves the fleet unchanged when the update is rejected.
func TestCoordinator_UpdateInvalid(t *testing.T) {
	t.Parallel()

	provider := new(memoryProvider)
	c, _, _ := newTestCoordinator(t, medicFleet(), WithProvider(provider))
	before := c.Snapshot("")

	updates := []domain.FleetUpdate{
		{Locations: map[string]string{"Ghost": "Somewhere"}},
		{Fallbacks: map[string][]string{"Ghost": {"Medic1"}}},
		{
			Locations: map[string]string{"Medic1": "Hospital"},
			Fallbacks: map[string][]string{"Medic1": {"Medic2", "Ghost"}},
		},
	}

	for _, update := range updates {
		require.ErrorIs(t, c.UpdateLocationsAndFallbacks(t.Context(), update), domain.ErrConfigurationInvalid)
	}

	after := c.Snapshot("")
	require.Equal(t, before.Units, after.Units)
	require.Equal(t, before.FallbackRules, after.FallbackRules)
	require.Nil(t, provider.saved)
}

// TestCoordinator_UpdatePersistFailure keeps the applied update and reports a retryable error.
func TestCoordinator_UpdatePersistFailure(t *testing.T) {
	t.Parallel()

	c, _, _ := newTestCoordinator(t, medicFleet(), WithProvider(&memoryProvider{saveErr: errTestSave}))

	err := c.UpdateLocationsAndFallbacks(t.Context(), domain.FleetUpdate{
		Locations: map[string]string{"Medic3": "Depot"},
	})
	require.ErrorIs(t, err, domain.ErrConfigPersist)
	require.True(t, domain.IsRetryable(err))
	require.Equal(t, "Depot", c.Snapshot("").Units[2].Location)
}

// TestCoordinator_AdminAlert counts available Medic units against the inclusive minimum.
func TestCoordinator_AdminAlert(t *testing.T) {
	t.Parallel()

	cfg := medicFleet()
	cfg.Trucks = append(cfg.Trucks, domain.Unit{ID: "Engine1"})

	c, _, _ := newTestCoordinator(t, cfg)

	snapshot := c.Snapshot("")
	require.Equal(t, "Medic", snapshot.Category)
	require.Equal(t, 4, snapshot.AvailableCount)
	require.False(t, snapshot.LowAvailability)

	_, err := c.Dispatch(t.Context(), "Medic1")
	require.NoError(t, err)
	require.NoError(t, c.MarkLogistics(t.Context(), "Medic2"))

	snapshot = c.Snapshot("")
	require.Equal(t, 2, snapshot.AvailableCount)
	require.True(t, snapshot.LowAvailability)
	require.Equal(t, 2, c.AvailableCount(domain.PrefixPredicate("Medic")))

	snapshot = c.Snapshot("Engine")
	require.Equal(t, 1, snapshot.AvailableCount)
	require.True(t, snapshot.LowAvailability)
}

// TestCoordinator_SnapshotIsCopy ensures callers cannot mutate engine state through a snapshot.
func TestCoordinator_SnapshotIsCopy(t *testing.T) {
	t.Parallel()

	c, _, fake := newTestCoordinator(t, medicFleet(), WithAvailabilityAlert("Medic", 1))
	require.NoError(t, c.MarkLogistics(t.Context(), "Medic1"))

	snapshot := c.Snapshot("")
	require.Equal(t, fake.Now(), snapshot.TakenAt)
	require.Equal(t, map[string]string{"Medic1": "2026-01-10T12:00:00Z"}, snapshot.TimerStarts)
	require.False(t, snapshot.LowAvailability)

	snapshot.Statuses["Medic1"] = domain.StatusAvailable
	snapshot.Units[0].ID = "Changed"
	snapshot.FallbackRules[0].Fallbacks[0] = "Changed"

	fresh := c.Snapshot("")
	require.Equal(t, domain.StatusLogistics, fresh.Statuses["Medic1"])
	require.Equal(t, "Medic1", fresh.Units[0].ID)
	require.Equal(t, "Medic2", fresh.FallbackRules[0].Fallbacks[0])
}

// TestCoordinator_TimerInvariantAcrossOperations checks the timer invariant after every mutating call.
func TestCoordinator_TimerInvariantAcrossOperations(t *testing.T) {
	t.Parallel()

	c, _, _ := newTestCoordinator(t, medicFleet())
	ctx := t.Context()

	steps := []func() error{
		func() error { return c.MarkLogistics(ctx, "Medic1") },
		func() error { return c.MarkDestination(ctx, "Medic1") },
		func() error { _, err := c.Dispatch(ctx, "Medic1"); return err },
		func() error { return c.MarkDestination(ctx, "Medic2") },
		func() error { return c.SetAvailability(ctx, []string{"Medic3"}) },
		func() error { return c.Reset(ctx, "Medic2") },
		func() error { return c.MarkLogistics(ctx, "Medic4") },
		func() error { return c.Reset(ctx, "Medic4") },
		func() error { return c.UpdateLocationsAndFallbacks(ctx, domain.FleetUpdate{}) },
	}

	for _, step := range steps {
		require.NoError(t, step())
		requireTimerInvariant(t, c)
	}
}
