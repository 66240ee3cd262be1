package dataset

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FolderDataset reads and writes a directory tree as a map of relative
// file path to contents.
type FolderDataset struct {
	path string
}

func NewFolderDataset(cfg map[string]any) (Dataset, error) {
	fp, err := configFilepath(cfg)
	if err != nil {
		return nil, fmt.Errorf("folder dataset: %w", err)
	}
	return &FolderDataset{path: fp}, nil
}

func (d *FolderDataset) Load(ctx context.Context) (any, error) {
	files := make(map[string][]byte)

	err := filepath.WalkDir(d.path, func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(d.path, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", d.path, err)
	}
	return files, nil
}

func (d *FolderDataset) Save(ctx context.Context, data any) error {
	files, ok := data.(map[string][]byte)
	if !ok {
		return fmt.Errorf("folder dataset: expected map[string][]byte, got %T", data)
	}
	for rel, content := range files {
		dest := filepath.Join(d.path, filepath.FromSlash(rel))
		if err := writeFileAtomic(dest, content); err != nil {
			return fmt.Errorf("save %s: %w", rel, err)
		}
	}
	return nil
}

func (d *FolderDataset) Describe() string {
	return fmt.Sprintf("folder(%s)", d.path)
}

func init() {
	RegisterFactory("folder", NewFolderDataset)
}
