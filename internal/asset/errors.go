package asset

import "errors"

var (
	// ErrAssetNotFound means no asset with the requested name is registered.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrVersionNotFound means the asset name exists but the requested
	// version does not. Kept distinct from ErrAssetNotFound so callers can
	// tell a bad name from a stale version pointer.
	ErrVersionNotFound = errors.New("asset version not found")

	// ErrUnsupportedAssetType means the store reported an asset type this
	// client does not know how to materialize.
	ErrUnsupportedAssetType = errors.New("unsupported asset type")
)
