package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"assetsync/internal/asset"
	"assetsync/internal/catalog"
	"assetsync/internal/config"
	"assetsync/internal/core/logger"
	"assetsync/internal/core/types"
	"assetsync/internal/transfer"

	"github.com/alecthomas/kong"
)

type ResolveCmd struct {
	Asset string `arg:"" help:"Asset name to resolve"`
}

type VersionsCmd struct {
	Asset string `arg:"" help:"Asset name to list versions of"`
}

type PullCmd struct {
	Asset    string `arg:"" help:"Asset name to pull"`
	Version  string `short:"v" long:"version" help:"Asset version (default: latest)"`
	Filepath string `short:"f" long:"filepath" help:"Only pull this path inside a folder asset"`
	Root     string `long:"root" help:"Local folder root (default from config)"`
}

type PushCmd struct {
	Asset   string `arg:"" help:"Asset name to publish a version of"`
	Path    string `arg:"" type:"path" help:"Local file or directory to publish"`
	Version string `short:"v" long:"version" help:"Version to register (default: generated timestamp)"`
}

type CatalogCmd struct {
	File string `short:"f" long:"file" help:"Catalog file (default from config)"`
}

type CLI struct {
	Config string `short:"c" long:"config" default:"assetsync.yaml" help:"Configuration file"`
	Debug  bool   `long:"debug" help:"Enable debug logging"`

	Resolve  ResolveCmd  `cmd:"resolve" help:"Print the latest version of an asset"`
	Versions VersionsCmd `cmd:"versions" help:"List the registered versions of an asset"`
	Pull     PullCmd     `cmd:"pull" help:"Download an asset version into the local layout"`
	Push     PushCmd     `cmd:"push" help:"Publish a local file or folder as a new asset version"`
	Catalog  CatalogCmd  `cmd:"catalog" help:"List catalog entries"`
}

func (c *CLI) load() (*config.Config, error) {
	cfg, err := config.LoadConfig(c.Config)
	if err != nil {
		return nil, err
	}
	if c.Debug || cfg.Debug {
		logger.SetDefaultLevel(logger.LevelDebug)
	}
	return cfg, nil
}

func (c *ResolveCmd) Run(cliRoot *CLI) error {
	ctx, cancel := types.DefaultSignalNotifySubContext()
	defer cancel()

	cfg, err := cliRoot.load()
	if err != nil {
		return err
	}

	client, err := asset.Connect(cfg.Store)
	if err != nil {
		return err
	}
	defer client.Close()

	version, err := client.GetLatestVersion(ctx, c.Asset)
	if err != nil {
		return err
	}
	fmt.Printf("%s@%s\n", c.Asset, version)
	return nil
}

func (c *VersionsCmd) Run(cliRoot *CLI) error {
	ctx, cancel := types.DefaultSignalNotifySubContext()
	defer cancel()

	cfg, err := cliRoot.load()
	if err != nil {
		return err
	}

	client, err := asset.Connect(cfg.Store)
	if err != nil {
		return err
	}
	defer client.Close()

	versions, err := client.ListVersions(ctx, c.Asset)
	if err != nil {
		return err
	}
	for _, v := range versions {
		fmt.Printf("%s@%s\n", c.Asset, v)
	}
	return nil
}

func (c *PullCmd) Run(cliRoot *CLI) error {
	ctx, cancel := types.DefaultSignalNotifySubContext()
	defer cancel()

	cfg, err := cliRoot.load()
	if err != nil {
		return err
	}
	root := c.Root
	if root == "" {
		root = cfg.Root
	}

	client, err := asset.Connect(cfg.Store)
	if err != nil {
		return err
	}
	defer client.Close()

	version := c.Version
	if version == "" {
		if version, err = client.GetLatestVersion(ctx, c.Asset); err != nil {
			return err
		}
	}

	a, err := client.GetAsset(ctx, c.Asset, version)
	if err != nil {
		return err
	}

	remoteBase := a.StoragePath
	if a.Type == asset.TypeFolder && c.Filepath != "" {
		remoteBase = remoteBase + "/" + c.Filepath
	}

	objects, err := client.ListObjects(ctx, remoteBase)
	if err != nil {
		return err
	}
	if len(objects) == 0 {
		return fmt.Errorf("no objects found for %s@%s", c.Asset, version)
	}

	dl := transfer.NewDownloader(
		transfer.DownloaderWithLimiter(types.NewRateLimiter(cfg.Transfer.RateLimit, cfg.Transfer.RateBurst)),
		transfer.DownloaderWithProgress(cfg.Transfer.Progress),
	)
	target := pullTarget(root, c.Asset, version, c.Filepath)
	stats, err := dl.Fetch(ctx, client, remoteBase, objects, target)
	if err != nil {
		return err
	}

	fmt.Printf("Pulled %s@%s into %s\n", c.Asset, version, target)
	fmt.Printf("Files: %d downloaded, %d already present (%s)\n",
		stats.Files, stats.Skipped, stats.Bytes.String())
	return nil
}

// pullTarget mirrors the dataset layout: a file-suffixed filepath lands in
// its parent directory, anything else is a directory of its own.
func pullTarget(root, name, version, innerPath string) string {
	target := filepath.Join(root, name, version)
	if innerPath == "" {
		return target
	}
	target = filepath.Join(target, filepath.FromSlash(innerPath))
	if filepath.Ext(target) != "" {
		return filepath.Dir(target)
	}
	return target
}

func (c *PushCmd) Run(cliRoot *CLI) error {
	ctx, cancel := types.DefaultSignalNotifySubContext()
	defer cancel()

	cfg, err := cliRoot.load()
	if err != nil {
		return err
	}

	client, err := asset.Connect(cfg.Store)
	if err != nil {
		return err
	}
	defer client.Close()

	registry, ok := client.(*asset.RegistryClient)
	if !ok {
		return fmt.Errorf("push requires a registry store, got %q", cfg.Store.Type)
	}

	info, err := os.Stat(c.Path)
	if err != nil {
		return err
	}
	assetType := asset.TypeFolder
	if !info.IsDir() {
		assetType = asset.TypeFile
	}

	version := c.Version
	if version == "" {
		version = time.Now().UTC().Format("2006-01-02T15.04.05.000Z")
	}

	created, err := registry.PublishVersion(ctx, c.Asset, version, assetType, c.Path)
	if err != nil {
		return err
	}

	fmt.Printf("Published %s@%s (%s)\n", created.Name, created.Version, created.Type)
	return nil
}

func (c *CatalogCmd) Run(cliRoot *CLI) error {
	cfg, err := cliRoot.load()
	if err != nil {
		return err
	}
	file := c.File
	if file == "" {
		file = cfg.Catalog
	}
	if file == "" {
		return fmt.Errorf("no catalog file configured")
	}

	cat, err := catalog.Load(file)
	if err != nil {
		return err
	}

	fmt.Printf("Found %d catalog entries:\n\n", cat.Len())
	for _, name := range cat.Names() {
		ds, err := cat.Get(name)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", name, ds.Describe())
	}
	return nil
}

func main() {
	var cliRoot CLI
	kctx := kong.Parse(
		&cliRoot,
		kong.Name("assetsync"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Description("assetsync - versioned data-asset datasets for pipeline runs"),
	)
	if err := kctx.Run(&cliRoot); err != nil {
		logger.NewLogger(logger.WithName("assetsync")).Fatal("command failed", "err", err)
	}
}
