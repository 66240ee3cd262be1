package asset

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Bucket layout for the s3 and minio backends:
//
//	<prefix>/<name>/_latest                  version string of the latest label
//	<prefix>/<name>/manifests/<version>.yaml version manifest
//	<prefix>/<name>/versions/<version>/...   the version's object tree
//
// Manifests live outside the version folder so listing a version returns
// data objects only.
const (
	latestPointer = "_latest"
	manifestsDir  = "manifests"
	versionsDir   = "versions"
)

type versionManifest struct {
	Type      AssetType `yaml:"type"`
	File      string    `yaml:"file,omitempty"`
	CreatedAt time.Time `yaml:"created_at,omitempty"`
	CreatedBy string    `yaml:"created_by,omitempty"`
}

func latestKey(prefix, name string) string {
	return path.Join(prefix, name, latestPointer)
}

func manifestKey(prefix, name, version string) string {
	return path.Join(prefix, name, manifestsDir, version+".yaml")
}

func versionKey(prefix, name, version string) string {
	return path.Join(prefix, name, versionsDir, version)
}

func manifestsPrefix(prefix, name string) string {
	return path.Join(prefix, name, manifestsDir) + "/"
}

// versionFromManifestKey recovers the version from a manifest object key.
func versionFromManifestKey(prefix, name, key string) (string, bool) {
	rest := strings.TrimPrefix(key, manifestsPrefix(prefix, name))
	if rest == key || !strings.HasSuffix(rest, ".yaml") || strings.Contains(rest, "/") {
		return "", false
	}
	return strings.TrimSuffix(rest, ".yaml"), true
}

func parseManifest(data []byte) (versionManifest, error) {
	var m versionManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse version manifest: %w", err)
	}
	switch m.Type {
	case TypeFile, TypeFolder:
	default:
		return m, fmt.Errorf("%w: %q", ErrUnsupportedAssetType, m.Type)
	}
	if m.Type == TypeFile && m.File == "" {
		return m, fmt.Errorf("version manifest for a file asset must name its file")
	}
	return m, nil
}

// resolveAsset builds the Asset for a parsed manifest.
func resolveAsset(prefix, name, version string, m versionManifest) Asset {
	storagePath := versionKey(prefix, name, version)
	if m.Type == TypeFile {
		storagePath = path.Join(storagePath, m.File)
	}
	return Asset{
		Name:        name,
		Version:     version,
		Type:        m.Type,
		StoragePath: storagePath,
	}
}
