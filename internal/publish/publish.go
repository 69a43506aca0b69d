// Package publish uploads a finished output tree to S3-compatible storage.
package publish

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/vk/bndl/internal/config"
	"github.com/vk/bndl/internal/ctxlog"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRegion = "us-east-1"
	uploadLimit   = 8
)

// objectStore is the subset of *minio.Client used by the Publisher.
type objectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Publisher uploads files under a local directory as objects under a key
// prefix.
type Publisher struct {
	store  objectStore
	bucket string
	prefix string
	region string
}

// Report lists the object keys written by Upload.
type Report struct {
	Uploaded []string
}

// New creates a Publisher backed by a minio client for target.
func New(target *config.Publish) (*Publisher, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	region := strings.TrimSpace(target.Region)
	if region == "" {
		region = defaultRegion
	}

	client, err := minio.New(strings.TrimSpace(target.Endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(target.AccessKey, target.SecretKey, ""),
		Secure: target.Secure(),
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return newWithStore(client, target.Bucket, target.Prefix, region), nil
}

func newWithStore(store objectStore, bucket, prefix, region string) *Publisher {
	return &Publisher{
		store:  store,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		region: region,
	}
}

// Upload walks dir and uploads every regular file. Symlinks are skipped.
func (p *Publisher) Upload(ctx context.Context, dir string) (*Report, error) {
	logger := ctxlog.FromContext(ctx).With("bucket", p.bucket)

	if err := p.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	var files []string
	err := filepath.WalkDir(dir, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	var (
		mu     sync.Mutex
		report = &Report{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadLimit)
	for _, file := range files {
		g.Go(func() error {
			rel, err := filepath.Rel(dir, file)
			if err != nil {
				return err
			}
			key := p.objectKey(rel)
			_, err = p.store.FPutObject(gctx, p.bucket, key, file, minio.PutObjectOptions{
				ContentType: contentType(file),
			})
			if err != nil {
				return fmt.Errorf("failed to upload %s: %w", file, err)
			}
			logger.Debug("Uploaded object.", "key", key)

			mu.Lock()
			report.Uploaded = append(report.Uploaded, key)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(report.Uploaded)
	logger.Info("📦 Published build output.", "objects", len(report.Uploaded), "prefix", p.prefix)
	return report, nil
}

func (p *Publisher) ensureBucket(ctx context.Context) error {
	exists, err := p.store.BucketExists(ctx, p.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return p.store.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: p.region})
}

func (p *Publisher) objectKey(rel string) string {
	key := filepath.ToSlash(rel)
	if p.prefix == "" {
		return key
	}
	return path.Join(p.prefix, key)
}

func contentType(file string) string {
	switch filepath.Ext(file) {
	case ".js":
		return "text/javascript"
	case ".map", ".json":
		return "application/json"
	}
	if ct := mime.TypeByExtension(filepath.Ext(file)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
