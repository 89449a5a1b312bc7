package objectstore

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/tusrelay/tusrelay/pkg/filestore"
	"github.com/tusrelay/tusrelay/pkg/upload"
)

// S3API is the subset of the AWS SDK's S3 client the hybrid backend
// needs, narrowed so tests can substitute a fake.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Remote is the S3-backed Remote for the hybrid DataStore. It does
// not support concat: S3 has no cheap server-side way to concatenate
// independently uploaded small objects outside its 5MB-minimum
// multipart API, which would defeat the purpose of a small-object
// hybrid store, so SupportsConcat reports false and Hybrid.Concat
// rejects final uploads with KindUnsupported.
type S3Remote struct {
	client       S3API
	bucket       string
	dirStructure string
	env          map[string]string
	prefix       string
}

// NewS3Remote builds an S3Remote. dirStructure/env follow the same
// directory-template semantics as the file DataStore. prefix, if
// non-empty, is prepended to every object key ahead of the templated
// subdirectory.
func NewS3Remote(client S3API, bucket, dirStructure string, env map[string]string, prefix string) *S3Remote {
	return &S3Remote{client: client, bucket: bucket, dirStructure: dirStructure, env: env, prefix: strings.Trim(prefix, "/")}
}

func (r *S3Remote) Name() string { return "hybrid-s3" }

func (r *S3Remote) Key(info upload.FileInfo) string {
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

func (r *S3Remote) Put(ctx context.Context, key string, body io.Reader, size int64) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	return err
}

func (r *S3Remote) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(r.bucket), Key: aws.String(key)})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (r *S3Remote) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(r.bucket), Key: aws.String(key)})
	if err == nil {
		return true, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
		return false, nil
	}
	return false, err
}

func (r *S3Remote) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(r.bucket), Key: aws.String(key)})
	return err
}

func (r *S3Remote) SupportsConcat() bool { return false }

var _ Remote = (*S3Remote)(nil)
