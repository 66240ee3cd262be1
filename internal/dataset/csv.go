package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
)

// CSVDataset reads and writes a single CSV file as rows of strings.
type CSVDataset struct {
	filepath string
	comma    rune
}

func NewCSVDataset(cfg map[string]any) (Dataset, error) {
	fp, err := configFilepath(cfg)
	if err != nil {
		return nil, fmt.Errorf("csv dataset: %w", err)
	}
	d := &CSVDataset{filepath: fp, comma: ','}
	if sep, ok := cfg["separator"].(string); ok && sep != "" {
		d.comma = rune(sep[0])
	}
	return d, nil
}

func (d *CSVDataset) Load(ctx context.Context) (any, error) {
	f, err := os.Open(d.filepath)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", d.filepath, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = d.comma
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", d.filepath, err)
	}
	return rows, nil
}

func (d *CSVDataset) Save(ctx context.Context, data any) error {
	rows, ok := data.([][]string)
	if !ok {
		return fmt.Errorf("csv dataset: expected [][]string, got %T", data)
	}

	// Encode in memory so the on-disk write stays atomic.
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = d.comma
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("csv dataset: encode: %w", err)
	}
	return writeFileAtomic(d.filepath, buf.Bytes())
}

func (d *CSVDataset) Describe() string {
	return fmt.Sprintf("csv(%s)", d.filepath)
}

func init() {
	RegisterFactory("csv", NewCSVDataset)
}
