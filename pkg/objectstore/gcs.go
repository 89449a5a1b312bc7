package objectstore

import (
	"context"
	"errors"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/tusrelay/tusrelay/pkg/filestore"
	"github.com/tusrelay/tusrelay/pkg/upload"
)

// GCSRemote is the Google Cloud Storage backed Remote. Unlike S3, it
// reports SupportsConcat true, so Hybrid.Concat concatenates the parts
// in local staging and then promotes the final upload with one Put;
// no remote objects are composed.
type GCSRemote struct {
	client       *storage.Client
	bucket       string
	dirStructure string
	env          map[string]string
	prefix       string
}

// NewGCSRemote builds a GCSRemote. prefix, if non-empty, is prepended
// to every object key ahead of the templated subdirectory.
func NewGCSRemote(client *storage.Client, bucket, dirStructure string, env map[string]string, prefix string) *GCSRemote {
	return &GCSRemote{client: client, bucket: bucket, dirStructure: dirStructure, env: env, prefix: strings.Trim(prefix, "/")}
}

func (r *GCSRemote) Name() string { return "hybrid-gcs" }

func (r *GCSRemote) Key(info upload.FileInfo) string {
	subdir := filestore.ExpandDirTemplate(r.dirStructure, info.CreatedAt, r.env)
	subdir = strings.TrimRight(subdir, "/")

	key := info.ID
	if subdir != "" {
		key = subdir + "/" + key
	}
	if r.prefix != "" {
		key = r.prefix + "/" + key
	}
	return key
}

func (r *GCSRemote) object(key string) *storage.ObjectHandle {
	return r.client.Bucket(r.bucket).Object(key)
}

func (r *GCSRemote) Put(ctx context.Context, key string, body io.Reader, size int64) error {
	writer := r.object(key).NewWriter(ctx)
	if _, err := io.Copy(writer, body); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

func (r *GCSRemote) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return r.object(key).NewReader(ctx)
}

func (r *GCSRemote) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.object(key).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return false, err
}

func (r *GCSRemote) Delete(ctx context.Context, key string) error {
	return r.object(key).Delete(ctx)
}

func (r *GCSRemote) SupportsConcat() bool { return true }

var _ Remote = (*GCSRemote)(nil)
