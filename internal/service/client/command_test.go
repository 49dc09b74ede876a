package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/fleet-status/internal/domain/fleet"
)

// TestWriteSnapshot renders units in order with the alert marker, fallbacks and recent lines.
func TestWriteSnapshot(t *testing.T) {
	t.Parallel()

	snapshot := &domain.Snapshot{
		TakenAt: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
		Units: []domain.Unit{
			{ID: "Medic1", Location: "Station 1"},
			{ID: "Medic2", Location: "Station 2"},
		},
		Statuses: map[string]domain.Status{
			"Medic1": domain.StatusLogistics,
			"Medic2": domain.StatusAvailable,
		},
		TimerStarts:     map[string]string{"Medic1": "2026-01-10T11:45:00Z"},
		Alerts:          map[string]bool{"Medic1": true},
		Category:        "Medic",
		AvailableCount:  1,
		LowAvailability: true,
		FallbackRules:   []domain.FallbackRule{{Primary: "Medic1", Fallbacks: []string{"Medic2"}}},
		Recent:          []string{"[2026-01-10 06:45:00] Medic1 → logistics"},
	}

	var buf bytes.Buffer

	require.NoError(t, WriteSnapshot(&buf, snapshot))

	out := buf.String()
	require.Less(t, bytes.Index(buf.Bytes(), []byte("Medic1")), bytes.Index(buf.Bytes(), []byte("Medic2")))
	require.Contains(t, out, "2026-01-10T11:45:00Z")
	require.Contains(t, out, "Medic available: 1 (LOW)")
	require.Contains(t, out, "Medic1: Medic2")
	require.Contains(t, out, "Medic1 → logistics")
}

// TestSession_Retry repeats only failures whose request is safe to resend, up to the configured count.
func TestSession_Retry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewSession(nil, &Options{Retries: 2})
	s.retryInterval = time.Millisecond

	calls := 0
	err := s.retry(ctx, func() error {
		calls++
		if calls < 2 {
			return fmt.Errorf("%w: disk full", domain.ErrConfigPersist)
		}

		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)

	calls = 0
	err = s.retry(ctx, func() error {
		calls++

		return fmt.Errorf("%w: disk full", domain.ErrLogWrite)
	})
	require.ErrorIs(t, err, domain.ErrLogWrite)
	require.Equal(t, 1, calls)

	calls = 0
	err = s.retry(ctx, func() error {
		calls++

		return domain.ErrConfigPersist
	})
	require.ErrorIs(t, err, domain.ErrConfigPersist)
	require.Equal(t, 3, calls)

	errBoom := errors.New("boom")
	s = NewSession(nil, nil)
	require.ErrorIs(t, s.retry(ctx, func() error { return errBoom }), errBoom)
}

// TestSession_Validation rejects non-transition statuses without calling the server.
func TestSession_Validation(t *testing.T) {
	t.Parallel()

	s := NewSession(nil, nil)

	require.ErrorIs(t, s.Transition(context.Background(), domain.StatusOut, "Medic1"), domain.ErrInvalidStatus)
}
