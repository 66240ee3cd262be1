package dataset

import (
	"context"
	"fmt"
	"os"
)

// RawDataset reads and writes a single file as raw bytes.
type RawDataset struct {
	filepath string
}

func NewRawDataset(cfg map[string]any) (Dataset, error) {
	fp, err := configFilepath(cfg)
	if err != nil {
		return nil, fmt.Errorf("raw dataset: %w", err)
	}
	return &RawDataset{filepath: fp}, nil
}

func (d *RawDataset) Load(ctx context.Context) (any, error) {
	data, err := os.ReadFile(d.filepath)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", d.filepath, err)
	}
	return data, nil
}

func (d *RawDataset) Save(ctx context.Context, data any) error {
	b, ok := data.([]byte)
	if !ok {
		return fmt.Errorf("raw dataset: expected []byte, got %T", data)
	}
	return writeFileAtomic(d.filepath, b)
}

func (d *RawDataset) Describe() string {
	return fmt.Sprintf("raw(%s)", d.filepath)
}

func init() {
	RegisterFactory("raw", NewRawDataset)
}
