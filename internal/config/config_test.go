package config

import (
	"os"
	"path/filepath"
	"testing"

	"assetsync/internal/core/types"

	"github.com/dustin/go-humanize"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	fp := filepath.Join(t.TempDir(), "assetsync.yaml")
	if err := os.WriteFile(fp, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return fp
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Root != "data" {
		t.Fatalf("root = %q, want data", cfg.Root)
	}
	if cfg.Transfer.RateLimit != types.DefaultRateLimit {
		t.Fatalf("rate limit = %d", cfg.Transfer.RateLimit)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Root != "data" {
		t.Fatalf("root = %q", cfg.Root)
	}
}

func TestLoadConfigFile(t *testing.T) {
	fp := writeConfig(t, `
debug: true
root: /srv/datasets
store:
  type: minio
  bucket: warehouse
  prefix: assets
  endpoint: localhost:9000
transfer:
  rate_limit: 10MiB
  progress: true
`)

	cfg, err := LoadConfig(fp)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Debug {
		t.Fatal("debug flag not loaded")
	}
	if cfg.Root != "/srv/datasets" {
		t.Fatalf("root = %q", cfg.Root)
	}
	if cfg.Store.Type != "minio" || cfg.Store.Bucket != "warehouse" {
		t.Fatalf("store = %+v", cfg.Store)
	}
	if cfg.Transfer.RateLimit != types.Bytes(10*humanize.MiByte) {
		t.Fatalf("rate limit = %d", cfg.Transfer.RateLimit)
	}
	if cfg.Transfer.RateBurst != types.DefaultRateBurst {
		t.Fatalf("rate burst default not applied: %d", cfg.Transfer.RateBurst)
	}
	if !cfg.Transfer.Progress {
		t.Fatal("progress flag not loaded")
	}
}

func TestLoadConfigExpandsCredentials(t *testing.T) {
	t.Setenv("TEST_STORE_KEY", "abc123")
	t.Setenv("TEST_STORE_SECRET", "s3cr3t")

	fp := writeConfig(t, `
store:
  type: s3
  bucket: warehouse
  access_key: ${TEST_STORE_KEY}
  secret_key: $TEST_STORE_SECRET
`)

	cfg, err := LoadConfig(fp)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Store.AccessKey != "abc123" {
		t.Fatalf("access key = %q", cfg.Store.AccessKey)
	}
	if cfg.Store.SecretKey != "s3cr3t" {
		t.Fatalf("secret key = %q", cfg.Store.SecretKey)
	}
}
