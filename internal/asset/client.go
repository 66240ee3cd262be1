package asset

import (
	"context"
	"fmt"
	"io"

	"assetsync/internal/config"
	"assetsync/internal/core/types"
)

// AssetType distinguishes single-file assets from folder assets.
type AssetType string

const (
	TypeFile   AssetType = "uri-file"
	TypeFolder AssetType = "uri-folder"
)

// Asset is a resolved, immutable version of a named data asset.
// StoragePath is the store-relative path of the asset's data: the file
// itself for TypeFile, the version's root folder for TypeFolder.
type Asset struct {
	Name        string    `json:"name" yaml:"name"`
	Version     string    `json:"version" yaml:"version"`
	Type        AssetType `json:"type" yaml:"type"`
	StoragePath string    `json:"storage_path" yaml:"storage_path"`
}

// Object is a single stored file belonging to an asset version.
type Object struct {
	Path string      `json:"path"`
	Size types.Bytes `json:"size"`
}

// Client resolves named assets and streams their objects. Connections are
// scoped: acquire with Connect, perform the calls for one interaction,
// Close. Clients are not meant to be held across pipeline steps.
type Client interface {
	// GetLatestVersion returns the version carrying the "latest" label.
	// Returns ErrAssetNotFound if no asset with that name exists.
	GetLatestVersion(ctx context.Context, name string) (string, error)

	// GetAsset resolves a specific version of a named asset. Returns
	// ErrVersionNotFound if the name exists but that version does not.
	GetAsset(ctx context.Context, name, version string) (Asset, error)

	// ListVersions lists every registered version of a named asset, in
	// lexical order. Returns ErrAssetNotFound if no versions exist.
	ListVersions(ctx context.Context, name string) ([]string, error)

	// ListObjects lists every object stored at or under storagePath.
	ListObjects(ctx context.Context, storagePath string) ([]Object, error)

	// Download streams one object into dst and reports the bytes copied.
	Download(ctx context.Context, objectPath string, dst io.Writer) (int64, error)

	Close() error
}

// Client factory functions, keyed by store type.
var clientFactories = make(map[string]func(config.StoreConfig) (Client, error))

// RegisterClientFactory registers a client factory function by store type.
func RegisterClientFactory(storeType string, factory func(config.StoreConfig) (Client, error)) {
	clientFactories[storeType] = factory
}

// Connect acquires a fresh client for the configured store. The caller owns
// the client and must Close it when the interaction is done.
func Connect(cfg config.StoreConfig) (Client, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("store type is required")
	}
	factory, ok := clientFactories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
	return factory(cfg)
}
