package fleet

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// LogTimestampLayout is the layout used to write and re-parse log timestamps.
	// The offset keeps the repeated hour of a DST fall-back unambiguous.
	LogTimestampLayout = "2006-01-02 15:04:05 -07:00"
	// LegacyLogTimestampLayout is accepted when reading lines written without an offset;
	// they are interpreted in the canonical zone.
	LegacyLogTimestampLayout = "2006-01-02 15:04:05"
	// TimerLayout renders timer starts for clients, always in UTC.
	TimerLayout = "2006-01-02T15:04:05Z"
	// logArrow separates the unit from its new status in a log line.
	logArrow = " → "
)

var (
	errMissingBracket     = errors.New("missing timestamp bracket")
	errUnterminatedStamp  = errors.New("unterminated timestamp")
	errMissingStatusArrow = errors.New("missing status arrow")
)

// LogEntry is one status change recorded in the activity log.
type LogEntry struct {
	// Timestamp is when the change happened, in the canonical log zone.
	Timestamp time.Time
	// UnitID is the unit whose status changed.
	UnitID string
	// Status is the status the unit moved to.
	Status Status
}

// String renders the entry as "[<timestamp>] <unit_id> → <status>".
func (e LogEntry) String() string {
	return "[" + e.Timestamp.Format(LogTimestampLayout) + "] " + e.UnitID + logArrow + string(e.Status)
}

// ParsedLine is the outcome of parsing one persisted log line.
// Err is set and Entry is zero when the line is malformed.
type ParsedLine struct {
	// Raw is the line as read, without the trailing newline.
	Raw string
	// Entry is the decoded entry.
	Entry LogEntry
	// Err describes why the line could not be parsed.
	Err error
}

// OK reports whether the line parsed.
func (p ParsedLine) OK() bool {
	return p.Err == nil
}

// ParseLogLine decodes a line written by LogEntry.String, interpreting the
// timestamp in loc.
func ParseLogLine(line string, loc *time.Location) ParsedLine {
	result := ParsedLine{Raw: line}

	if !strings.HasPrefix(line, "[") {
		result.Err = errMissingBracket

		return result
	}

	closing := strings.Index(line, "]")
	if closing < 0 {
		result.Err = errUnterminatedStamp

		return result
	}

	ts, err := parseLogTimestamp(line[1:closing], loc)
	if err != nil {
		result.Err = fmt.Errorf("parse timestamp: %w", err)

		return result
	}

	unitID, status, found := strings.Cut(strings.TrimSpace(line[closing+1:]), strings.TrimSpace(logArrow))
	if !found {
		result.Err = errMissingStatusArrow

		return result
	}

	result.Entry = LogEntry{
		Timestamp: ts,
		UnitID:    strings.TrimSpace(unitID),
		Status:    Status(strings.TrimSpace(status)),
	}

	return result
}

func parseLogTimestamp(raw string, loc *time.Location) (time.Time, error) {
	ts, err := time.Parse(LogTimestampLayout, raw)
	if err == nil {
		return ts.In(loc), nil
	}

	if legacy, legacyErr := time.ParseInLocation(LegacyLogTimestampLayout, raw, loc); legacyErr == nil {
		return legacy, nil
	}

	return time.Time{}, err
}
