package asset

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"assetsync/internal/config"
	"assetsync/internal/core/types"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOClient implements Client against a MinIO (or other S3-compatible)
// deployment using the native MinIO SDK. Same bucket layout as S3Client.
type MinIOClient struct {
	bucket string
	prefix string
	client *minio.Client
}

// NewMinIOClient creates a new MinIO-backed asset client.
func NewMinIOClient(cfg config.StoreConfig) (Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio store requires an endpoint")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio store requires a bucket")
	}

	opts := &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newMinIOTransport(),
	}
	client, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, err
	}

	return &MinIOClient{
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		client: client,
	}, nil
}

func (c *MinIOClient) GetLatestVersion(ctx context.Context, name string) (string, error) {
	data, err := c.getObjectBytes(ctx, latestKey(c.prefix, name))
	if err != nil {
		if isMinIONoSuchKey(err) {
			return "", fmt.Errorf("%w: %s", ErrAssetNotFound, name)
		}
		return "", fmt.Errorf("get latest version of %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (c *MinIOClient) GetAsset(ctx context.Context, name, version string) (Asset, error) {
	data, err := c.getObjectBytes(ctx, manifestKey(c.prefix, name, version))
	if err != nil {
		if isMinIONoSuchKey(err) {
			return Asset{}, fmt.Errorf("%w: %s@%s", ErrVersionNotFound, name, version)
		}
		return Asset{}, fmt.Errorf("get asset %s@%s: %w", name, version, err)
	}
	manifest, err := parseManifest(data)
	if err != nil {
		return Asset{}, err
	}
	return resolveAsset(c.prefix, name, version, manifest), nil
}

func (c *MinIOClient) ListVersions(ctx context.Context, name string) ([]string, error) {
	var versions []string

	for obj := range c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    manifestsPrefix(c.prefix, name),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list versions of %s: %w", name, obj.Err)
		}
		if v, ok := versionFromManifestKey(c.prefix, name, obj.Key); ok {
			versions = append(versions, v)
		}
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, name)
	}
	sort.Strings(versions)
	return versions, nil
}

func (c *MinIOClient) ListObjects(ctx context.Context, storagePath string) ([]Object, error) {
	var objects []Object

	for obj := range c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    storagePath,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects under %s: %w", storagePath, obj.Err)
		}
		if obj.Key != storagePath && !strings.HasPrefix(obj.Key, storagePath+"/") {
			continue
		}
		objects = append(objects, Object{
			Path: obj.Key,
			Size: types.Bytes(obj.Size),
		})
	}

	return objects, nil
}

func (c *MinIOClient) Download(ctx context.Context, objectPath string, dst io.Writer) (int64, error) {
	obj, err := c.client.GetObject(ctx, c.bucket, objectPath, minio.GetObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("get object %s: %w", objectPath, err)
	}
	defer obj.Close()

	n, err := io.Copy(dst, obj)
	if err != nil {
		return n, fmt.Errorf("download %s: %w", objectPath, err)
	}
	return n, nil
}

func (c *MinIOClient) Close() error {
	return nil
}

func (c *MinIOClient) getObjectBytes(ctx context.Context, key string) ([]byte, error) {
	if _, err := c.client.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{}); err != nil {
		return nil, err
	}
	obj, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

func isMinIONoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

func newMinIOTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

func init() {
	RegisterClientFactory("minio", NewMinIOClient)
}
