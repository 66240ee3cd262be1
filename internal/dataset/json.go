package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// JSONDataset reads and writes a single JSON document.
type JSONDataset struct {
	filepath string
}

func NewJSONDataset(cfg map[string]any) (Dataset, error) {
	fp, err := configFilepath(cfg)
	if err != nil {
		return nil, fmt.Errorf("json dataset: %w", err)
	}
	return &JSONDataset{filepath: fp}, nil
}

func (d *JSONDataset) Load(ctx context.Context) (any, error) {
	data, err := os.ReadFile(d.filepath)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", d.filepath, err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", d.filepath, err)
	}
	return out, nil
}

func (d *JSONDataset) Save(ctx context.Context, data any) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("json dataset: encode: %w", err)
	}
	return writeFileAtomic(d.filepath, append(b, '\n'))
}

func (d *JSONDataset) Describe() string {
	return fmt.Sprintf("json(%s)", d.filepath)
}

func init() {
	RegisterFactory("json", NewJSONDataset)
}
