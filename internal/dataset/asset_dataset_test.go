package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"testing"

	"assetsync/internal/asset"
	"assetsync/internal/config"
	"assetsync/internal/core/types"
)

// fakeClient is an in-memory asset store that counts every call.
type fakeClient struct {
	latestVersion string
	latestErr     error
	assets        map[string]asset.Asset    // name@version
	objects       map[string][]asset.Object // remote base path
	content       map[string][]byte         // object path

	latestCalls   int
	getAssetCalls int
	listCalls     int
	listPaths     []string
	downloadCalls int
	closeCalls    int
}

func (f *fakeClient) GetLatestVersion(ctx context.Context, name string) (string, error) {
	f.latestCalls++
	if f.latestErr != nil {
		return "", f.latestErr
	}
	return f.latestVersion, nil
}

func (f *fakeClient) GetAsset(ctx context.Context, name, version string) (asset.Asset, error) {
	f.getAssetCalls++
	a, ok := f.assets[name+"@"+version]
	if !ok {
		return asset.Asset{}, fmt.Errorf("%w: %s@%s", asset.ErrVersionNotFound, name, version)
	}
	return a, nil
}

func (f *fakeClient) ListVersions(ctx context.Context, name string) ([]string, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeClient) ListObjects(ctx context.Context, storagePath string) ([]asset.Object, error) {
	f.listCalls++
	f.listPaths = append(f.listPaths, storagePath)
	return f.objects[storagePath], nil
}

func (f *fakeClient) Download(ctx context.Context, objectPath string, dst io.Writer) (int64, error) {
	f.downloadCalls++
	data, ok := f.content[objectPath]
	if !ok {
		return 0, fmt.Errorf("no content for %s", objectPath)
	}
	n, err := dst.Write(data)
	return int64(n), err
}

func (f *fakeClient) Close() error {
	f.closeCalls++
	return nil
}

// connector returns a Connector serving the fake and counting connects.
func connector(f *fakeClient, connects *int) Connector {
	return func(config.StoreConfig) (asset.Client, error) {
		*connects++
		return f, nil
	}
}

func textSpec(fp string) InnerSpec {
	return InnerSpec{Type: "text", Config: map[string]any{"filepath": fp}}
}

// newFolderFake wires a folder-type asset with one file below the inner path.
func newFolderFake(name, version, innerPath string, content []byte) *fakeClient {
	storage := path.Join("warehouse", name, "versions", version)
	remoteBase := path.Join(storage, innerPath)
	return &fakeClient{
		latestVersion: version,
		assets: map[string]asset.Asset{
			name + "@" + version: {
				Name:        name,
				Version:     version,
				Type:        asset.TypeFolder,
				StoragePath: storage,
			},
		},
		objects: map[string][]asset.Object{
			remoteBase: {{Path: remoteBase, Size: types.Bytes(len(content))}},
		},
		content: map[string][]byte{
			remoteBase: content,
		},
	}
}

func TestResolveLoadVersionCachesLatest(t *testing.T) {
	fake := &fakeClient{latestVersion: "7"}
	var connects int

	ds, err := NewAssetDataset("sales", textSpec("orders.csv"),
		WithConnector(connector(fake, &connects)))
	if err != nil {
		t.Fatalf("NewAssetDataset: %v", err)
	}

	ctx := context.Background()
	first, err := ds.ResolveLoadVersion(ctx)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := ds.ResolveLoadVersion(ctx)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}

	if first != "7" || second != "7" {
		t.Fatalf("expected version 7 both times, got %q and %q", first, second)
	}
	if fake.latestCalls != 1 {
		t.Fatalf("expected exactly 1 latest-version lookup, got %d", fake.latestCalls)
	}
	if fake.closeCalls != connects {
		t.Fatalf("expected every connect to be closed: %d connects, %d closes", connects, fake.closeCalls)
	}
}

func TestResolveLoadVersionExplicit(t *testing.T) {
	fake := &fakeClient{latestVersion: "7"}
	var connects int

	ds, err := NewAssetDataset("sales", textSpec("orders.csv"),
		WithVersion("3"),
		WithConnector(connector(fake, &connects)))
	if err != nil {
		t.Fatalf("NewAssetDataset: %v", err)
	}

	v, err := ds.ResolveLoadVersion(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if v != "3" {
		t.Fatalf("expected explicit version 3, got %q", v)
	}
	if connects != 0 || fake.latestCalls != 0 {
		t.Fatalf("explicit version must not touch the store: %d connects, %d lookups", connects, fake.latestCalls)
	}
}

func TestResolveLoadVersionAssetNotFound(t *testing.T) {
	fake := &fakeClient{latestErr: fmt.Errorf("%w: sales", asset.ErrAssetNotFound)}
	var connects int

	ds, err := NewAssetDataset("sales", textSpec("orders.csv"),
		WithConnector(connector(fake, &connects)))
	if err != nil {
		t.Fatalf("NewAssetDataset: %v", err)
	}

	_, err = ds.ResolveLoadVersion(context.Background())
	if !errors.Is(err, asset.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
	if fake.closeCalls != connects {
		t.Fatalf("client leaked on error path: %d connects, %d closes", connects, fake.closeCalls)
	}
}

func TestPathShapes(t *testing.T) {
	fake := &fakeClient{}
	var connects int

	ds, err := NewAssetDataset("sales", textSpec("orders.csv"),
		WithVersion("3"),
		WithConnector(connector(fake, &connects)))
	if err != nil {
		t.Fatalf("NewAssetDataset: %v", err)
	}
	ctx := context.Background()

	// Remote-run path carries no version segment.
	p, err := ds.Path(ctx)
	if err != nil {
		t.Fatalf("remote path: %v", err)
	}
	if want := filepath.Join("data", "orders.csv"); p != want {
		t.Fatalf("remote path = %q, want %q", p, want)
	}

	// Local-run path embeds the resolved version.
	ds.AsLocal(config.StoreConfig{}, false)
	p, err = ds.Path(ctx)
	if err != nil {
		t.Fatalf("local path: %v", err)
	}
	if want := filepath.Join("data", "sales", "3", "orders.csv"); p != want {
		t.Fatalf("local path = %q, want %q", p, want)
	}
}

func TestDownloadTarget(t *testing.T) {
	ctx := context.Background()

	// A file-suffixed inner path downloads into its parent directory.
	ds, err := NewAssetDataset("sales", textSpec("orders.csv"), WithVersion("3"))
	if err != nil {
		t.Fatalf("NewAssetDataset: %v", err)
	}
	ds.AsLocal(config.StoreConfig{}, false)

	target, err := ds.DownloadTarget(ctx)
	if err != nil {
		t.Fatalf("download target: %v", err)
	}
	if want := filepath.Join("data", "sales", "3"); target != want {
		t.Fatalf("file target = %q, want %q", target, want)
	}

	// A suffix-less inner path is a directory of its own.
	ds, err = NewAssetDataset("sales", textSpec("orders"), WithVersion("3"))
	if err != nil {
		t.Fatalf("NewAssetDataset: %v", err)
	}
	ds.AsLocal(config.StoreConfig{}, false)

	target, err = ds.DownloadTarget(ctx)
	if err != nil {
		t.Fatalf("download target: %v", err)
	}
	if want := filepath.Join("data", "sales", "3", "orders"); target != want {
		t.Fatalf("folder target = %q, want %q", target, want)
	}
}

func TestLoadDownloadsVersionOnce(t *testing.T) {
	fake := newFolderFake("sales", "3", "orders.csv", []byte("hello"))
	var connects int

	ds, err := NewAssetDataset("sales", textSpec("orders.csv"),
		WithRoot(t.TempDir()),
		WithConnector(connector(fake, &connects)))
	if err != nil {
		t.Fatalf("NewAssetDataset: %v", err)
	}
	ds.AsLocal(config.StoreConfig{}, true)

	ctx := context.Background()
	data, err := ds.Load(ctx)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	if data != "hello" {
		t.Fatalf("first load = %q, want %q", data, "hello")
	}
	if fake.downloadCalls != 1 {
		t.Fatalf("expected 1 download, got %d", fake.downloadCalls)
	}

	// The version is immutable and its local path is version-scoped, so a
	// second load must not transfer anything again.
	if _, err := ds.Load(ctx); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if fake.downloadCalls != 1 {
		t.Fatalf("second load re-downloaded: %d downloads", fake.downloadCalls)
	}
	if fake.closeCalls != connects {
		t.Fatalf("client leaked: %d connects, %d closes", connects, fake.closeCalls)
	}
}

func TestLoadSelectiveFolderListing(t *testing.T) {
	fake := newFolderFake("sales", "3", "orders.csv", []byte("hello"))
	var connects int

	ds, err := NewAssetDataset("sales", textSpec("orders.csv"),
		WithRoot(t.TempDir()),
		WithConnector(connector(fake, &connects)))
	if err != nil {
		t.Fatalf("NewAssetDataset: %v", err)
	}
	ds.AsLocal(config.StoreConfig{}, true)

	if _, err := ds.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	// Only the slice below the inner path is listed, never the asset root.
	want := path.Join("warehouse", "sales", "versions", "3", "orders.csv")
	if len(fake.listPaths) != 1 || fake.listPaths[0] != want {
		t.Fatalf("listed %v, want exactly [%s]", fake.listPaths, want)
	}
}

func TestLoadWithoutDownloadSkipsRemote(t *testing.T) {
	fake := &fakeClient{}
	var connects int
	root := t.TempDir()

	ds, err := NewAssetDataset("sales", textSpec("orders.csv"),
		WithVersion("3"),
		WithRoot(root),
		WithConnector(connector(fake, &connects)))
	if err != nil {
		t.Fatalf("NewAssetDataset: %v", err)
	}
	ds.AsLocal(config.StoreConfig{}, false)

	// The file was produced by an earlier step in the same run.
	local := filepath.Join(root, "sales", "3", "orders.csv")
	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(local, []byte("produced upstream"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := ds.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if data != "produced upstream" {
		t.Fatalf("load = %q", data)
	}
	if connects != 0 {
		t.Fatalf("download-disabled load touched the store %d times", connects)
	}
}

func TestLoadVersionNotFoundIsDistinct(t *testing.T) {
	// The latest label resolves, but that version has no asset entry.
	fake := &fakeClient{latestVersion: "9"}
	var connects int

	ds, err := NewAssetDataset("sales", textSpec("orders.csv"),
		WithRoot(t.TempDir()),
		WithConnector(connector(fake, &connects)))
	if err != nil {
		t.Fatalf("NewAssetDataset: %v", err)
	}
	ds.AsLocal(config.StoreConfig{}, true)

	_, err = ds.Load(context.Background())
	if !errors.Is(err, asset.ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
	if errors.Is(err, asset.ErrAssetNotFound) {
		t.Fatalf("version-not-found must not look like asset-not-found: %v", err)
	}
}

func TestLoadUnsupportedAssetType(t *testing.T) {
	fake := &fakeClient{
		latestVersion: "3",
		assets: map[string]asset.Asset{
			"sales@3": {Name: "sales", Version: "3", Type: "uri-stream", StoragePath: "warehouse/sales"},
		},
	}
	var connects int

	ds, err := NewAssetDataset("sales", textSpec("orders.csv"),
		WithRoot(t.TempDir()),
		WithConnector(connector(fake, &connects)))
	if err != nil {
		t.Fatalf("NewAssetDataset: %v", err)
	}
	ds.AsLocal(config.StoreConfig{}, true)

	_, err = ds.Load(context.Background())
	if !errors.Is(err, asset.ErrUnsupportedAssetType) {
		t.Fatalf("expected ErrUnsupportedAssetType, got %v", err)
	}
}

func TestVersionedInnerRejected(t *testing.T) {
	spec := InnerSpec{Type: "text", Config: map[string]any{
		"filepath":  "orders.csv",
		"versioned": true,
	}}
	var connects int

	_, err := NewAssetDataset("sales", spec,
		WithConnector(connector(&fakeClient{}, &connects)))
	if !errors.Is(err, ErrVersionedInner) {
		t.Fatalf("expected ErrVersionedInner, got %v", err)
	}
	if connects != 0 {
		t.Fatalf("construction must not touch the store, got %d connects", connects)
	}
}

func TestSaveDelegatesToInner(t *testing.T) {
	root := t.TempDir()

	ds, err := NewAssetDataset("sales", textSpec("orders.csv"),
		WithVersion("3"),
		WithRoot(root))
	if err != nil {
		t.Fatalf("NewAssetDataset: %v", err)
	}
	ds.AsLocal(config.StoreConfig{}, false)

	if err := ds.Save(context.Background(), "a,b\n1,2\n"); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "sales", "3", "orders.csv"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "a,b\n1,2\n" {
		t.Fatalf("saved %q", data)
	}
}

func TestResolveSaveVersionCached(t *testing.T) {
	ds, err := NewAssetDataset("sales", textSpec("orders.csv"))
	if err != nil {
		t.Fatalf("NewAssetDataset: %v", err)
	}

	first := ds.ResolveSaveVersion()
	second := ds.ResolveSaveVersion()
	if first == "" || first != second {
		t.Fatalf("save version must be generated once: %q vs %q", first, second)
	}

	pinned, err := NewAssetDataset("sales", textSpec("orders.csv"), WithVersion("3"))
	if err != nil {
		t.Fatalf("NewAssetDataset: %v", err)
	}
	if v := pinned.ResolveSaveVersion(); v != "3" {
		t.Fatalf("explicit save version = %q, want 3", v)
	}
}

func TestAsRemoteClearsVersionPin(t *testing.T) {
	fake := &fakeClient{latestVersion: "7"}
	var connects int

	ds, err := NewAssetDataset("sales", textSpec("orders.csv"),
		WithVersion("3"),
		WithConnector(connector(fake, &connects)))
	if err != nil {
		t.Fatalf("NewAssetDataset: %v", err)
	}

	ds.AsRemote(config.StoreConfig{})
	v, err := ds.ResolveLoadVersion(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if v != "7" {
		t.Fatalf("remote mode must resolve the run's pinned version, got %q", v)
	}
}

func TestCustomFilepathArg(t *testing.T) {
	RegisterFactory("stub-path", func(cfg map[string]any) (Dataset, error) {
		p, ok := cfg["path"].(string)
		if !ok {
			return nil, fmt.Errorf("stub: path missing")
		}
		return &TextDataset{filepath: p}, nil
	})

	root := t.TempDir()
	spec := InnerSpec{Type: "stub-path", Config: map[string]any{"path": "orders.csv"}}

	ds, err := NewAssetDataset("sales", spec,
		WithVersion("3"),
		WithRoot(root),
		WithFilepathArg("path"))
	if err != nil {
		t.Fatalf("NewAssetDataset: %v", err)
	}
	ds.AsLocal(config.StoreConfig{}, false)

	if err := ds.Save(context.Background(), "rewired"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "sales", "3", "orders.csv")); err != nil {
		t.Fatalf("custom filepath key was not rewritten: %v", err)
	}
}
