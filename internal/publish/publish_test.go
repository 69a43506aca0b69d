package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/bndl/internal/config"
	"github.com/vk/bndl/internal/testutil"
)

type fakeStore struct {
	mu      sync.Mutex
	exists  bool
	made    []string
	objects map[string]string
	types   map[string]string
	failOn  string
}

func (s *fakeStore) BucketExists(context.Context, string) (bool, error) {
	return s.exists, nil
}

func (s *fakeStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.made = append(s.made, bucket)
	return nil
}

func (s *fakeStore) FPutObject(_ context.Context, _, key, file string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key == s.failOn {
		return minio.UploadInfo{}, errors.New("access denied")
	}
	if s.objects == nil {
		s.objects = map[string]string{}
		s.types = map[string]string{}
	}
	s.objects[key] = file
	s.types[key] = opts.ContentType
	return minio.UploadInfo{Key: key}, nil
}

func TestUpload_WalksTreeUnderPrefix(t *testing.T) {
	t.Parallel()
	// Arrange
	dir := testutil.NewTree(t, map[string]string{
		"index.js":                  "a",
		"index.js.map":              "{}",
		"node_modules/lib/index.js": "b",
	})
	require.NoError(t, os.Symlink(filepath.Join(dir, "index.js"), filepath.Join(dir, "link.js")))
	store := &fakeStore{}
	p := newWithStore(store, "builds", "/web/42/", "us-east-1")

	// Act
	report, err := p.Upload(context.Background(), dir)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{
		"web/42/index.js",
		"web/42/index.js.map",
		"web/42/node_modules/lib/index.js",
	}, report.Uploaded)
	assert.Equal(t, []string{"builds"}, store.made)
	assert.Equal(t, "text/javascript", store.types["web/42/index.js"])
	assert.Equal(t, "application/json", store.types["web/42/index.js.map"])
	assert.Equal(t, filepath.Join(dir, "index.js"), store.objects["web/42/index.js"])
}

func TestUpload_ExistingBucketIsReused(t *testing.T) {
	t.Parallel()
	dir := testutil.NewTree(t, map[string]string{"a.js": "a"})
	store := &fakeStore{exists: true}

	report, err := newWithStore(store, "builds", "", "").Upload(context.Background(), dir)

	require.NoError(t, err)
	assert.Empty(t, store.made)
	assert.Equal(t, []string{"a.js"}, report.Uploaded)
}

func TestUpload_FailureIsReturned(t *testing.T) {
	t.Parallel()
	dir := testutil.NewTree(t, map[string]string{"a.js": "a", "b.js": "b"})
	store := &fakeStore{exists: true, failOn: "b.js"}

	_, err := newWithStore(store, "builds", "", "").Upload(context.Background(), dir)

	assert.ErrorContains(t, err, "access denied")
}

func TestUpload_MissingDir(t *testing.T) {
	t.Parallel()
	_, err := newWithStore(&fakeStore{exists: true}, "b", "", "").Upload(context.Background(), filepath.Join(t.TempDir(), "dist"))
	assert.Error(t, err)
}

func TestNew_RequiresTarget(t *testing.T) {
	t.Parallel()

	_, err := New(&config.Publish{Endpoint: "localhost:9000"})
	assert.ErrorContains(t, err, "bucket")

	p, err := New(&config.Publish{Endpoint: "localhost:9000", Bucket: "builds", Prefix: "app/"})
	require.NoError(t, err)
	assert.Equal(t, "app", p.prefix)
	assert.Equal(t, defaultRegion, p.region)
}
