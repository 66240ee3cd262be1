package asset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"assetsync/internal/config"
	"assetsync/internal/transport"

	"github.com/google/uuid"
)

// RegistryClient implements Client against the platform's asset registry
// HTTP API. The registry resolves names and versions and proxies object
// reads from the backing store.
type RegistryClient struct {
	base  string
	token string
	ht    *transport.HTTPTransfer
}

type RegistryClientOption func(*RegistryClient)

// RegistryWithHTTPClient overrides the underlying HTTP client. The default
// speaks h2c; plain HTTP/1.1 registries need this.
func RegistryWithHTTPClient(c *http.Client) RegistryClientOption {
	return func(r *RegistryClient) {
		r.ht = transport.NewHTTPTransfer(transport.HTTPWithClient(c))
	}
}

// NewRegistryClient creates a new registry-backed asset client.
func NewRegistryClient(cfg config.StoreConfig, opts ...RegistryClientOption) (*RegistryClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("registry store requires a url")
	}
	r := &RegistryClient{
		base:  strings.TrimRight(cfg.URL, "/"),
		token: cfg.Token,
		ht:    transport.NewHTTPTransfer(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *RegistryClient) GetLatestVersion(ctx context.Context, name string) (string, error) {
	var result struct {
		Version string `json:"version"`
	}
	endpoint := fmt.Sprintf("%s/assets/%s/latest", r.base, url.PathEscape(name))

	err := r.ht.Get(ctx, endpoint, func(resp *http.Response) error {
		defer resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusOK:
			return json.NewDecoder(resp.Body).Decode(&result)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrAssetNotFound, name)
		default:
			return fmt.Errorf("unexpected status: %s", resp.Status)
		}
	}, r.authHeader())
	if err != nil {
		return "", err
	}
	return result.Version, nil
}

func (r *RegistryClient) GetAsset(ctx context.Context, name, version string) (Asset, error) {
	var result Asset
	endpoint := fmt.Sprintf("%s/assets/%s/versions/%s",
		r.base, url.PathEscape(name), url.PathEscape(version))

	err := r.ht.Get(ctx, endpoint, func(resp *http.Response) error {
		defer resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusOK:
			return json.NewDecoder(resp.Body).Decode(&result)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s@%s", ErrVersionNotFound, name, version)
		default:
			return fmt.Errorf("unexpected status: %s", resp.Status)
		}
	}, r.authHeader())
	if err != nil {
		return Asset{}, err
	}
	return result, nil
}

func (r *RegistryClient) ListVersions(ctx context.Context, name string) ([]string, error) {
	var result struct {
		Versions []string `json:"versions"`
	}
	endpoint := fmt.Sprintf("%s/assets/%s/versions", r.base, url.PathEscape(name))

	err := r.ht.Get(ctx, endpoint, func(resp *http.Response) error {
		defer resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusOK:
			return json.NewDecoder(resp.Body).Decode(&result)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrAssetNotFound, name)
		default:
			return fmt.Errorf("unexpected status: %s", resp.Status)
		}
	}, r.authHeader())
	if err != nil {
		return nil, err
	}
	sort.Strings(result.Versions)
	return result.Versions, nil
}

func (r *RegistryClient) ListObjects(ctx context.Context, storagePath string) ([]Object, error) {
	var result struct {
		Objects []Object `json:"objects"`
	}
	endpoint := fmt.Sprintf("%s/objects?%s", r.base,
		url.Values{"path": {storagePath}}.Encode())

	err := r.ht.Get(ctx, endpoint, func(resp *http.Response) error {
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status: %s", resp.Status)
		}
		return json.NewDecoder(resp.Body).Decode(&result)
	}, r.authHeader())
	if err != nil {
		return nil, err
	}
	return result.Objects, nil
}

func (r *RegistryClient) Download(ctx context.Context, objectPath string, dst io.Writer) (int64, error) {
	var n int64
	endpoint := fmt.Sprintf("%s/objects/download?%s", r.base,
		url.Values{"path": {objectPath}}.Encode())

	err := r.ht.Get(ctx, endpoint, func(resp *http.Response) error {
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status: %s", resp.Status)
		}
		var copyErr error
		n, copyErr = io.Copy(dst, resp.Body)
		return copyErr
	}, r.authHeader())
	return n, err
}

func (r *RegistryClient) Close() error {
	return nil
}

// PublishVersion registers localPath's contents as a new version of the
// named asset: one create call, then one object upload per file. A
// directory publishes as its whole tree; a single file publishes as the
// asset's one object. The create call carries a client-generated
// idempotency key so a retried publish cannot register the version twice.
func (r *RegistryClient) PublishVersion(ctx context.Context, name, version string, assetType AssetType, localPath string) (Asset, error) {
	payload, err := json.Marshal(struct {
		Version string    `json:"version"`
		Type    AssetType `json:"type"`
	}{Version: version, Type: assetType})
	if err != nil {
		return Asset{}, err
	}

	var created Asset
	endpoint := fmt.Sprintf("%s/assets/%s/versions", r.base, url.PathEscape(name))

	err = r.ht.Post(ctx, endpoint, func(resp *http.Response) error {
		defer resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusCreated, http.StatusOK:
			return json.NewDecoder(resp.Body).Decode(&created)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrAssetNotFound, name)
		default:
			return fmt.Errorf("unexpected status: %s", resp.Status)
		}
	},
		r.authHeader(),
		transport.HTTPRequestHeaders(map[string]string{
			"Content-Type":    "application/json",
			"Idempotency-Key": uuid.NewString(),
		}),
		transport.HTTPRequestBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return Asset{}, err
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return Asset{}, err
	}

	if !info.IsDir() {
		if err := r.uploadObject(ctx, created.StoragePath, localPath); err != nil {
			return Asset{}, fmt.Errorf("publish %s@%s: %w", name, version, err)
		}
		return created, nil
	}

	err = filepath.WalkDir(localPath, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localPath, p)
		if err != nil {
			return err
		}
		return r.uploadObject(ctx, path.Join(created.StoragePath, filepath.ToSlash(rel)), p)
	})
	if err != nil {
		return Asset{}, fmt.Errorf("publish %s@%s: %w", name, version, err)
	}

	return created, nil
}

func (r *RegistryClient) uploadObject(ctx context.Context, objectPath, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	endpoint := fmt.Sprintf("%s/objects?%s", r.base,
		url.Values{"path": {objectPath}}.Encode())

	return r.ht.Put(ctx, endpoint, func(resp *http.Response) error {
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
			return fmt.Errorf("upload %s: unexpected status: %s", objectPath, resp.Status)
		}
		return nil
	},
		r.authHeader(),
		transport.HTTPRequestBody(f),
	)
}

func (r *RegistryClient) authHeader() transport.HTTPRequestOption {
	headers := map[string]string{}
	if r.token != "" {
		headers["Authorization"] = "Bearer " + r.token
	}
	return transport.HTTPRequestHeaders(headers)
}

func init() {
	RegisterClientFactory("registry", func(cfg config.StoreConfig) (Client, error) {
		return NewRegistryClient(cfg)
	})
}
