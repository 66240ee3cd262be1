package transfer

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"assetsync/internal/asset"
	"assetsync/internal/core/logger"
	"assetsync/internal/core/types"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var spinner = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Stats summarizes one Fetch invocation.
type Stats struct {
	Files   int
	Skipped int
	Bytes   types.Bytes
}

type DownloaderOption func(*Downloader)

func DownloaderWithLimiter(limiter *types.RateLimiter) DownloaderOption {
	return func(d *Downloader) {
		d.limiter = limiter
	}
}

func DownloaderWithProgress(progress bool) DownloaderOption {
	return func(d *Downloader) {
		d.progress = progress
	}
}

func DownloaderWithLogger(log *logger.Logger) DownloaderOption {
	return func(d *Downloader) {
		d.logger = log
	}
}

// Downloader materializes remote objects on local disk. Transfers are
// sequential; a file already present at its destination is never fetched
// again, which keeps repeated fetches of an immutable version cheap.
type Downloader struct {
	limiter  *types.RateLimiter
	progress bool
	logger   *logger.Logger
}

func NewDownloader(opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		limiter: types.DefaultRateLimiter(),
		logger:  logger.NewLogger(logger.WithName("transfer")),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch downloads objects into destDir, mirroring their layout below
// remoteBase. Existing local files are skipped. The first failed transfer
// aborts the whole fetch.
func (d *Downloader) Fetch(ctx context.Context, c asset.Client, remoteBase string, objects []asset.Object, destDir string) (Stats, error) {
	var stats Stats

	var container *mpb.Progress
	if d.progress {
		container = mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(150*time.Millisecond),
		)
	}

	for _, obj := range objects {
		dest := destPath(remoteBase, obj.Path, destDir)
		if _, err := os.Stat(dest); err == nil {
			d.logger.Debug("object already present, skipping", "path", dest)
			stats.Skipped++
			continue
		}

		n, err := d.fetchOne(ctx, c, obj, dest, container)
		if err != nil {
			return stats, fmt.Errorf("fetch %s: %w", obj.Path, err)
		}
		stats.Files++
		stats.Bytes += types.Bytes(n)
		d.logger.Info("downloaded object", "object", obj.Path, "size", types.Bytes(n).String())
	}

	if container != nil {
		container.Wait()
	}
	return stats, nil
}

func (d *Downloader) fetchOne(ctx context.Context, c asset.Client, obj asset.Object, dest string, container *mpb.Progress) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, err
	}

	// Write to a temp file and rename so an aborted transfer never leaves
	// a half-written file at the destination.
	tmp := dest + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}

	rwOpts := []RWOption{
		RWWithIOWriter(f),
		RWWithWriteLimiter(d.limiter),
	}
	if container != nil {
		bar := container.AddBar(int64(obj.Size),
			mpb.BarRemoveOnComplete(),
			mpb.PrependDecorators(
				decor.Spinner(spinner, decor.WCSyncSpaceR),
				decor.Name(path.Base(obj.Path), decor.WCSyncSpaceR),
				decor.CountersKibiByte("%.2f/%.2f", decor.WCSyncSpace),
			),
		)
		rwOpts = append(rwOpts, RWWithWriterCallback(func(n int64) {
			bar.IncrBy(int(n))
		}))
	}

	rw := NewReaderWriter(rwOpts...)
	n, err := c.Download(ctx, obj.Path, rw.Writer(ctx))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return 0, err
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return 0, err
	}
	return n, nil
}

// destPath mirrors an object's position below remoteBase into destDir.
// When the object is remoteBase itself (a single-file fetch) the file
// lands directly in destDir.
func destPath(remoteBase, objectPath, destDir string) string {
	rel := strings.TrimPrefix(objectPath, remoteBase)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		rel = path.Base(objectPath)
	}
	return filepath.Join(destDir, filepath.FromSlash(rel))
}
