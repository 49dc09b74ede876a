package dispatch

import (
	"context"
	"fmt"
	"slices"
	"time"

	domain "github.com/oshokin/fleet-status/internal/domain/fleet"
	"github.com/oshokin/fleet-status/internal/logger"
	"github.com/oshokin/fleet-status/internal/repository/activitylog"
)

// DefaultLogRetention is how long persisted activity log lines are kept.
const DefaultLogRetention = 72 * time.Hour

// activityLog records status changes in memory and in the sink.
type activityLog struct {
	// sink persists the lines, oldest first.
	sink activitylog.Sink
	// location is the canonical zone for timestamps, fixed at construction.
	location *time.Location
	// retention is the maximum age of a persisted line.
	retention time.Duration
	// recent holds rendered entries in append order; read newest first.
	recent []string
}

// record renders the entry, keeps it in memory and rewrites the sink with the
// retained lines plus the new one. Unreadable sinks count as empty; a failed
// rewrite is returned wrapped in fleet.ErrLogWrite.
func (l *activityLog) record(ctx context.Context, unitID string, status domain.Status, now time.Time) error {
	entry := domain.LogEntry{
		Timestamp: now.In(l.location),
		UnitID:    unitID,
		Status:    status,
	}
	line := entry.String()

	l.recent = append(l.recent, line)

	lines := l.retained(ctx, now)
	lines = append(lines, line)

	if err := l.sink.Rewrite(ctx, lines); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLogWrite, err)
	}

	return nil
}

// retained loads the sink and keeps the parseable lines no older than the
// retention window. The boundary itself is kept; stamps have whole seconds,
// so now is compared at the same precision.
func (l *activityLog) retained(ctx context.Context, now time.Time) []string {
	now = now.Truncate(time.Second)

	existing, err := l.sink.ReadLines(ctx)
	if err != nil {
		logger.WarnKV(ctx, "Activity log unreadable, treating as empty", "error", err)

		return nil
	}

	var (
		kept    = make([]string, 0, len(existing)+1)
		expired int
	)

	for _, raw := range existing {
		parsed := domain.ParseLogLine(raw, l.location)
		if !parsed.OK() {
			logger.DebugKV(ctx, "Dropping malformed activity log line", "line", parsed.Raw, "error", parsed.Err)

			continue
		}

		if now.Sub(parsed.Entry.Timestamp) > l.retention {
			expired++

			continue
		}

		kept = append(kept, raw)
	}

	if expired > 0 {
		logger.DebugKV(ctx, "Pruned expired activity log lines", "count", expired)
	}

	return kept
}

// newestFirst returns the in-memory entries, newest first.
func (l *activityLog) newestFirst() []string {
	out := slices.Clone(l.recent)
	slices.Reverse(out)

	return out
}
