package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Dataset is the load/save contract every dataset implementation shares,
// the wrapping AssetDataset included.
type Dataset interface {
	Load(ctx context.Context) (any, error)
	Save(ctx context.Context, data any) error
	Describe() string
}

// InnerSpec names a dataset implementation and carries its configuration.
type InnerSpec struct {
	Type   string         `yaml:"type" json:"type"`
	Config map[string]any `yaml:"config" json:"config"`
}

// VersionedFlagKey is the inner-config key that would request file-level
// versioning. AssetDataset versions whole assets and rejects it.
const VersionedFlagKey = "versioned"

// ErrVersionedInner is returned at construction time when the inner
// dataset config requests its own versioning.
var ErrVersionedInner = errors.New("wrapped dataset must not be versioned")

// Dataset factory functions for creating inner dataset instances.
var datasetFactories = make(map[string]func(map[string]any) (Dataset, error))

// RegisterFactory registers a dataset factory function by type.
func RegisterFactory(datasetType string, factory func(map[string]any) (Dataset, error)) {
	datasetFactories[datasetType] = factory
}

// New creates a dataset instance from its spec.
func New(spec InnerSpec) (Dataset, error) {
	if spec.Type == "" {
		return nil, fmt.Errorf("dataset type is required")
	}
	factory, ok := datasetFactories[spec.Type]
	if !ok {
		return nil, fmt.Errorf("unknown dataset type: %s", spec.Type)
	}
	return factory(spec.Config)
}

// configFilepath extracts the conventional "filepath" config key used by
// the built-in dataset types.
func configFilepath(cfg map[string]any) (string, error) {
	raw, ok := cfg["filepath"]
	if !ok {
		return "", fmt.Errorf("dataset config requires a filepath")
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("dataset filepath must be a non-empty string, got %T", raw)
	}
	return s, nil
}

// writeFileAtomic writes data via a temp file and rename, creating parent
// directories as needed.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
