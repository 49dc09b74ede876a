package fleetconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	domain "github.com/oshokin/fleet-status/internal/domain/fleet"
)

// Provider supplies the fleet configuration at startup and accepts full replacements.
type Provider interface {
	Load(ctx context.Context) (*domain.Config, error)
	Save(ctx context.Context, cfg *domain.Config) error
}

// FilePermissions restricts the fleet file to its owner.
const FilePermissions = 0o600

// ErrNotFound is returned when the fleet file does not exist.
var ErrNotFound = errors.New("fleet configuration not found")

// errConfigIsNotSet is returned when Save receives nil.
var errConfigIsNotSet = errors.New("fleet configuration is not set")

// FileProvider stores the fleet document in a single file.
type FileProvider struct {
	// path is the filesystem location of the fleet file.
	path string
	// mu serialises reads and writes of the file.
	mu sync.Mutex
}

// NewFileProvider creates a provider for the file at path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{
		path: filepath.Clean(path),
	}
}

// Load reads and validates the fleet document.
func (p *FileProvider) Load(_ context.Context) (*domain.Config, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	contents, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read fleet file: %w", err)
	}

	var cfg domain.Config
	if p.isYAML() {
		err = yaml.Unmarshal(contents, &cfg)
	} else {
		err = json.Unmarshal(contents, &cfg)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: decode fleet file: %w", domain.ErrConfigurationInvalid, err)
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save replaces the fleet file with cfg.
func (p *FileProvider) Save(_ context.Context, cfg *domain.Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var (
		data []byte
		err  error
	)

	if p.isYAML() {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "    ")
	}

	if err != nil {
		return fmt.Errorf("encode fleet file: %w", err)
	}

	if dir := filepath.Dir(p.path); dir != "." {
		if err = os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create fleet dir: %w", err)
		}
	}

	if err = os.WriteFile(p.path, data, FilePermissions); err != nil {
		return fmt.Errorf("write fleet file: %w", err)
	}

	return nil
}

// isYAML reports whether the file extension selects YAML encoding.
func (p *FileProvider) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(p.path))

	return ext == ".yaml" || ext == ".yml"
}
