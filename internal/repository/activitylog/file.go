package activitylog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
)

// Sink reads and rewrites persisted activity log lines.
type Sink interface {
	ReadLines(ctx context.Context) ([]string, error)
	Rewrite(ctx context.Context, lines []string) error
}

const (
	// FilePermissions is the mode of the log file.
	FilePermissions = 0o640
	// dirPermissions is the mode of a log directory created on first write.
	dirPermissions = 0o750
)

// FileSink stores log lines in a plain text file.
type FileSink struct {
	// path is the log file location.
	path string
	// mu serialises access to the file.
	mu sync.Mutex
}

// NewFileSink creates a sink for the file at path.
func NewFileSink(path string) *FileSink {
	return &FileSink{
		path: filepath.Clean(path),
	}
}

// ReadLines returns the persisted lines in file order. A missing file yields no lines.
func (s *FileSink) ReadLines(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("open activity log: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	var lines []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}

	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan activity log: %w", err)
	}

	return lines, nil
}

// Rewrite atomically replaces the file with lines, one per line.
func (s *FileSink) Rewrite(_ context.Context, lines []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), dirPermissions); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	var contents strings.Builder
	for _, line := range lines {
		contents.WriteString(line)
		contents.WriteByte('\n')
	}

	if err := atomic.WriteFile(s.path, strings.NewReader(contents.String())); err != nil {
		return fmt.Errorf("replace activity log: %w", err)
	}

	// A freshly created file gets the temp file mode.
	if err := os.Chmod(s.path, FilePermissions); err != nil {
		return fmt.Errorf("chmod activity log: %w", err)
	}

	return nil
}
