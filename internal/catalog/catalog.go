package catalog

import (
	"fmt"
	"os"
	"sort"

	"assetsync/internal/dataset"

	"github.com/goccy/go-yaml"
)

// Entry is one named catalog definition: which remote asset backs the
// dataset and how the inner dataset is built.
type Entry struct {
	Asset       string            `yaml:"asset"`
	Version     string            `yaml:"version,omitempty"`
	Root        string            `yaml:"root,omitempty"`
	FilepathArg string            `yaml:"filepath_arg,omitempty"`
	Dataset     dataset.InnerSpec `yaml:"dataset"`
}

// Catalog maps entry names to constructed asset datasets.
type Catalog struct {
	names    []string
	datasets map[string]*dataset.AssetDataset
}

// Load reads and builds a catalog from a YAML file. Build options are
// applied to every entry's dataset.
func Load(path string, opts ...dataset.AssetDatasetOption) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data, opts...)
}

// Parse builds a catalog from YAML content.
func Parse(data []byte, opts ...dataset.AssetDatasetOption) (*Catalog, error) {
	var entries map[string]Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	cat := &Catalog{
		datasets: make(map[string]*dataset.AssetDataset, len(entries)),
	}
	for name, entry := range entries {
		ds, err := buildEntry(entry, opts)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %q: %w", name, err)
		}
		cat.datasets[name] = ds
		cat.names = append(cat.names, name)
	}
	sort.Strings(cat.names)
	return cat, nil
}

func buildEntry(entry Entry, opts []dataset.AssetDatasetOption) (*dataset.AssetDataset, error) {
	built := make([]dataset.AssetDatasetOption, 0, len(opts)+3)
	if entry.Version != "" {
		built = append(built, dataset.WithVersion(entry.Version))
	}
	if entry.Root != "" {
		built = append(built, dataset.WithRoot(entry.Root))
	}
	if entry.FilepathArg != "" {
		built = append(built, dataset.WithFilepathArg(entry.FilepathArg))
	}
	built = append(built, opts...)
	return dataset.NewAssetDataset(entry.Asset, entry.Dataset, built...)
}

// Get returns the dataset for a catalog entry name.
func (c *Catalog) Get(name string) (*dataset.AssetDataset, error) {
	ds, ok := c.datasets[name]
	if !ok {
		return nil, fmt.Errorf("catalog entry not found: %s", name)
	}
	return ds, nil
}

// Names returns all entry names in sorted order.
func (c *Catalog) Names() []string {
	return c.names
}

func (c *Catalog) Len() int {
	return len(c.datasets)
}
