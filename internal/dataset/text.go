package dataset

import (
	"context"
	"fmt"
	"os"
)

// TextDataset reads and writes a single UTF-8 text file as a string.
type TextDataset struct {
	filepath string
}

func NewTextDataset(cfg map[string]any) (Dataset, error) {
	fp, err := configFilepath(cfg)
	if err != nil {
		return nil, fmt.Errorf("text dataset: %w", err)
	}
	return &TextDataset{filepath: fp}, nil
}

func (d *TextDataset) Load(ctx context.Context) (any, error) {
	data, err := os.ReadFile(d.filepath)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", d.filepath, err)
	}
	return string(data), nil
}

func (d *TextDataset) Save(ctx context.Context, data any) error {
	s, ok := data.(string)
	if !ok {
		return fmt.Errorf("text dataset: expected string, got %T", data)
	}
	return writeFileAtomic(d.filepath, []byte(s))
}

func (d *TextDataset) Describe() string {
	return fmt.Sprintf("text(%s)", d.filepath)
}

func init() {
	RegisterFactory("text", NewTextDataset)
}
