package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"assetsync/internal/config"
	"assetsync/internal/core/types"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Client implements Client against an S3 bucket using the asset layout
// described in layout.go.
type S3Client struct {
	bucket   string
	prefix   string
	session  *session.Session
	s3Client *s3.S3
}

// NewS3Client creates a new S3-backed asset client.
func NewS3Client(cfg config.StoreConfig) (Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 store requires a bucket")
	}

	sessionConfig := aws.Config{}
	if cfg.Region != "" {
		sessionConfig.Region = aws.String(cfg.Region)
	}
	if cfg.Endpoint != "" {
		// S3-compatible stores need path-style addressing
		sessionConfig.Endpoint = aws.String(cfg.Endpoint)
		sessionConfig.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKey != "" {
		sessionConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Profile: cfg.Profile,
		Config:  sessionConfig,
	})
	if err != nil {
		return nil, err
	}

	return &S3Client{
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		session:  sess,
		s3Client: s3.New(sess),
	}, nil
}

func (c *S3Client) GetLatestVersion(ctx context.Context, name string) (string, error) {
	data, err := c.getObjectBytes(ctx, latestKey(c.prefix, name))
	if err != nil {
		if isNoSuchKey(err) {
			return "", fmt.Errorf("%w: %s", ErrAssetNotFound, name)
		}
		return "", fmt.Errorf("get latest version of %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (c *S3Client) GetAsset(ctx context.Context, name, version string) (Asset, error) {
	data, err := c.getObjectBytes(ctx, manifestKey(c.prefix, name, version))
	if err != nil {
		if isNoSuchKey(err) {
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

func (c *S3Client) ListVersions(ctx context.Context, name string) ([]string, error) {
	var versions []string

	err := c.s3Client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(manifestsPrefix(c.prefix, name)),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			if v, ok := versionFromManifestKey(c.prefix, name, aws.StringValue(obj.Key)); ok {
				versions = append(versions, v)
			}
		}
		return !lastPage
	})
	if err != nil {
		return nil, fmt.Errorf("list versions of %s: %w", name, err)
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, name)
	}
	sort.Strings(versions)
	return versions, nil
}

func (c *S3Client) ListObjects(ctx context.Context, storagePath string) ([]Object, error) {
	var objects []Object

	err := c.s3Client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(storagePath),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			// Prefix matching is textual; keep only the path itself and
			// entries below it.
			if key != storagePath && !strings.HasPrefix(key, storagePath+"/") {
				continue
			}
			objects = append(objects, Object{
				Path: key,
				Size: types.Bytes(aws.Int64Value(obj.Size)),
			})
		}
		return !lastPage
	})
	if err != nil {
		return nil, fmt.Errorf("list objects under %s: %w", storagePath, err)
	}

	return objects, nil
}

func (c *S3Client) Download(ctx context.Context, objectPath string, dst io.Writer) (int64, error) {
	result, err := c.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(objectPath),
	})
	if err != nil {
		return 0, fmt.Errorf("get object %s: %w", objectPath, err)
	}
	defer result.Body.Close()

	return io.Copy(dst, result.Body)
}

func (c *S3Client) Close() error {
	// AWS sessions hold no connection state of their own.
	return nil
}

func (c *S3Client) getObjectBytes(ctx context.Context, key string) ([]byte, error) {
	result, err := c.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer result.Body.Close()
	return io.ReadAll(result.Body)
}

func isNoSuchKey(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}

func init() {
	RegisterClientFactory("s3", NewS3Client)
}
