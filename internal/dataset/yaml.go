package dataset

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// YAMLDataset reads and writes a single YAML document.
type YAMLDataset struct {
	filepath string
}

func NewYAMLDataset(cfg map[string]any) (Dataset, error) {
	fp, err := configFilepath(cfg)
	if err != nil {
		return nil, fmt.Errorf("yaml dataset: %w", err)
	}
	return &YAMLDataset{filepath: fp}, nil
}

func (d *YAMLDataset) Load(ctx context.Context) (any, error) {
	data, err := os.ReadFile(d.filepath)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", d.filepath, err)
	}
	var out any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", d.filepath, err)
	}
	return out, nil
}

func (d *YAMLDataset) Save(ctx context.Context, data any) error {
	b, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("yaml dataset: encode: %w", err)
	}
	return writeFileAtomic(d.filepath, b)
}

func (d *YAMLDataset) Describe() string {
	return fmt.Sprintf("yaml(%s)", d.filepath)
}

func init() {
	RegisterFactory("yaml", NewYAMLDataset)
}
