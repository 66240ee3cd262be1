package dataset

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"assetsync/internal/asset"
	"assetsync/internal/config"
	"assetsync/internal/core/logger"
	"assetsync/internal/transfer"
)

// saveVersionFormat is the generated save-version timestamp layout.
const saveVersionFormat = "2006-01-02T15.04.05.000Z"

// Connector acquires a client for one store interaction.
type Connector func(config.StoreConfig) (asset.Client, error)

type AssetDatasetOption func(*AssetDataset)

// WithVersion pins an explicit asset version instead of resolving the
// latest label.
func WithVersion(version string) AssetDatasetOption {
	return func(d *AssetDataset) {
		d.version = version
	}
}

// WithRoot sets the local folder the asset layout is mirrored under.
func WithRoot(root string) AssetDatasetOption {
	return func(d *AssetDataset) {
		d.root = root
	}
}

// WithFilepathArg sets the inner-config key the inner dataset reads its
// file path from.
func WithFilepathArg(arg string) AssetDatasetOption {
	return func(d *AssetDataset) {
		d.filepathArg = arg
	}
}

// WithStore sets the store configuration used for remote interactions.
func WithStore(cfg config.StoreConfig) AssetDatasetOption {
	return func(d *AssetDataset) {
		d.storeCfg = cfg
	}
}

// WithDownloader overrides the download engine.
func WithDownloader(dl *transfer.Downloader) AssetDatasetOption {
	return func(d *AssetDataset) {
		d.downloader = dl
	}
}

// WithConnector overrides how store clients are acquired.
func WithConnector(connect Connector) AssetDatasetOption {
	return func(d *AssetDataset) {
		d.connect = connect
	}
}

func WithDatasetLogger(log *logger.Logger) AssetDatasetOption {
	return func(d *AssetDataset) {
		d.logger = log
	}
}

// AssetDataset wraps an inner, format-specific dataset and binds it to a
// named, versioned asset in the remote store. It resolves which version to
// read, materializes only the files the inner dataset needs into a local
// path mirroring the remote layout, and delegates the actual parsing and
// serialization to the inner dataset.
//
// One instance serves one catalog entry for one run. The mode setters
// (AsLocal, AsRemote) are expected to run once, before any load or save;
// nothing here is safe for concurrent use.
type AssetDataset struct {
	assetName   string
	inner       InnerSpec
	innerPath   string
	filepathArg string
	root        string
	version     string

	localRun bool
	download bool
	storeCfg config.StoreConfig

	// one cache slot per version role
	loadVersion *string
	saveVersion *string

	downloader *transfer.Downloader
	logger     *logger.Logger
	connect    Connector
}

// NewAssetDataset creates a dataset bound to the named remote asset.
// The inner dataset must not request its own versioning: the store
// versions whole assets, not individual files, and the two mechanisms
// cannot nest.
func NewAssetDataset(assetName string, inner InnerSpec, opts ...AssetDatasetOption) (*AssetDataset, error) {
	d := &AssetDataset{
		assetName:   assetName,
		inner:       inner,
		filepathArg: "filepath",
		root:        "data",
		downloader:  transfer.NewDownloader(),
		connect:     asset.Connect,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logger.NewLogger(logger.WithName("dataset"))
	}

	if assetName == "" {
		return nil, fmt.Errorf("asset name is required")
	}
	if inner.Type == "" {
		return nil, fmt.Errorf("inner dataset type is required")
	}
	if _, ok := inner.Config[VersionedFlagKey]; ok {
		return nil, fmt.Errorf("%w: remove the %q flag from the %s dataset definition",
			ErrVersionedInner, VersionedFlagKey, inner.Type)
	}

	raw, ok := inner.Config[d.filepathArg]
	if !ok {
		return nil, fmt.Errorf("inner dataset config is missing the %q key", d.filepathArg)
	}
	innerPath, ok := raw.(string)
	if !ok || innerPath == "" {
		return nil, fmt.Errorf("inner dataset %q must be a non-empty string, got %T", d.filepathArg, raw)
	}
	d.innerPath = innerPath

	return d, nil
}

// AsLocal marks the dataset as serving a local run. Download is separate:
// an intermediate output produced earlier in the same run is already on
// disk and only needs the local path shape.
func (d *AssetDataset) AsLocal(cfg config.StoreConfig, download bool) {
	d.storeCfg = cfg
	d.localRun = true
	d.download = download
}

// AsRemote marks the dataset as executing inside the platform. The
// explicit version pin is cleared: the run itself pins the version
// upstream, and the sandbox working directory already corresponds to it.
func (d *AssetDataset) AsRemote(cfg config.StoreConfig) {
	d.storeCfg = cfg
	d.localRun = false
	d.download = false
	d.version = ""
}

func (d *AssetDataset) AssetName() string { return d.assetName }

func (d *AssetDataset) LocalRun() bool { return d.localRun }

func (d *AssetDataset) DownloadEnabled() bool { return d.download }

// ResolveLoadVersion returns the version to read. An explicit version is
// returned as-is with no remote call. Otherwise the store is asked for the
// latest label once per instance; the answer is cached in the load slot.
func (d *AssetDataset) ResolveLoadVersion(ctx context.Context) (string, error) {
	if d.version != "" {
		return d.version, nil
	}
	if d.loadVersion != nil {
		return *d.loadVersion, nil
	}

	c, err := d.connect(d.storeCfg)
	if err != nil {
		return "", err
	}
	defer c.Close()

	v, err := c.GetLatestVersion(ctx, d.assetName)
	if err != nil {
		return "", err
	}
	d.loadVersion = &v
	return v, nil
}

// ResolveSaveVersion returns the version to write under. An explicit
// version is returned as-is; otherwise a timestamp version is generated
// once per instance and cached in the save slot.
func (d *AssetDataset) ResolveSaveVersion() string {
	if d.version != "" {
		return d.version
	}
	if d.saveVersion != nil {
		return *d.saveVersion
	}
	v := time.Now().UTC().Format(saveVersionFormat)
	d.saveVersion = &v
	return v
}

// Path computes the resolved local path. In local-run mode the path embeds
// the resolved load version so distinct versions never collide on disk; in
// remote-run mode the version segment is omitted because the executing run
// already pins one.
func (d *AssetDataset) Path(ctx context.Context) (string, error) {
	if d.localRun {
		v, err := d.ResolveLoadVersion(ctx)
		if err != nil {
			return "", err
		}
		return filepath.Join(d.root, d.assetName, v, filepath.FromSlash(d.innerPath)), nil
	}
	return filepath.Join(d.root, filepath.FromSlash(d.innerPath)), nil
}

// DownloadTarget returns the directory downloads land in: the parent for a
// single-file path, the path itself for a folder. The path may not exist
// yet, so the file suffix is the heuristic.
func (d *AssetDataset) DownloadTarget(ctx context.Context) (string, error) {
	p, err := d.Path(ctx)
	if err != nil {
		return "", err
	}
	if filepath.Ext(p) != "" {
		return filepath.Dir(p), nil
	}
	return p, nil
}

// Load materializes the asset version locally if download is enabled, then
// delegates to the inner dataset bound at the resolved path.
func (d *AssetDataset) Load(ctx context.Context) (any, error) {
	if d.download {
		if err := d.fetch(ctx); err != nil {
			return nil, err
		}
	}
	inner, err := d.bind(ctx)
	if err != nil {
		return nil, err
	}
	return inner.Load(ctx)
}

// Save delegates to the inner dataset bound at the resolved path. New
// asset versions are registered by the platform's run tracking, not here.
func (d *AssetDataset) Save(ctx context.Context, data any) error {
	inner, err := d.bind(ctx)
	if err != nil {
		return err
	}
	return inner.Save(ctx, data)
}

func (d *AssetDataset) Describe() string {
	version := d.version
	if version == "" {
		version = "latest"
	}
	return fmt.Sprintf("%s@%s (%s)", d.assetName, version, d.inner.Type)
}

// fetch downloads the files backing this dataset from the resolved asset
// version. For a folder asset only the slice below the inner file path is
// listed, never the whole asset.
func (d *AssetDataset) fetch(ctx context.Context) error {
	version, err := d.ResolveLoadVersion(ctx)
	if err != nil {
		return err
	}

	c, err := d.connect(d.storeCfg)
	if err != nil {
		return err
	}
	defer c.Close()

	a, err := c.GetAsset(ctx, d.assetName, version)
	if err != nil {
		return err
	}

	var remoteBase string
	switch a.Type {
	case asset.TypeFile:
		remoteBase = a.StoragePath
	case asset.TypeFolder:
		remoteBase = path.Join(a.StoragePath, d.innerPath)
	default:
		return fmt.Errorf("%w: %q", asset.ErrUnsupportedAssetType, a.Type)
	}

	objects, err := c.ListObjects(ctx, remoteBase)
	if err != nil {
		return err
	}

	target, err := d.DownloadTarget(ctx)
	if err != nil {
		return err
	}

	stats, err := d.downloader.Fetch(ctx, c, remoteBase, objects, target)
	if err != nil {
		return err
	}
	d.logger.Debug("materialized asset version",
		"asset", d.assetName,
		"version", version,
		"files", stats.Files,
		"skipped", stats.Skipped,
		"size", stats.Bytes.String(),
	)
	return nil
}

// bind constructs the inner dataset with its path config rewritten to the
// resolved local path.
func (d *AssetDataset) bind(ctx context.Context) (Dataset, error) {
	p, err := d.Path(ctx)
	if err != nil {
		return nil, err
	}
	cfg := make(map[string]any, len(d.inner.Config)+1)
	for k, v := range d.inner.Config {
		cfg[k] = v
	}
	cfg[d.filepathArg] = p
	return New(InnerSpec{Type: d.inner.Type, Config: cfg})
}
