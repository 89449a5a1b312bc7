// Package objectstore implements the hybrid DataStore: a local staging
// FileStore composed with a remote object-store backend (S3 or GCS),
// promoting a payload to the remote store only once it is complete.
package objectstore

import (
	"context"
	"io"

	"github.com/tusrelay/tusrelay/pkg/filestore"
	"github.com/tusrelay/tusrelay/pkg/upload"
)

// Remote is the narrow interface a hybrid backend needs from its
// object-store client: put a whole object, get a reader over one,
// check existence, and delete one.
type Remote interface {
	Name() string
	Key(info upload.FileInfo) string
	Put(ctx context.Context, key string, body io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// SupportsConcat reports whether Hybrid.Concat may concatenate
	// parts in staging and promote the result for this backend; the S3
	// backend returns false (no cheap compose of independent small
	// objects), GCS returns true.
	SupportsConcat() bool
}

// Hybrid is the hybrid object-store DataStore described in
// SPEC_FULL.md §4.2. It stages every upload locally via Staging and
// promotes the payload to Remote once it is complete.
type Hybrid struct {
	Staging *filestore.FileStore
	Remote  Remote
}

// NewHybrid composes a local staging FileStore with a remote backend.
func NewHybrid(staging *filestore.FileStore, remote Remote) *Hybrid {
	return &Hybrid{Staging: staging, Remote: remote}
}

func (h *Hybrid) Name() string { return h.Remote.Name() }

func (h *Hybrid) Prepare(ctx context.Context) error {
	return h.Staging.Prepare(ctx)
}

func (h *Hybrid) Create(ctx context.Context, info *upload.FileInfo) error {
	return h.Staging.Create(ctx, info)
}

// promoteIfComplete uploads the staged payload to the remote backend
// and removes the staging copy, once info.Offset == *info.Length and
// the upload is not a partial input to a future concatenation.
//
// It is idempotent: it first checks whether the remote object already
// exists (e.g. because an earlier promotion attempt from a previous
// request succeeded but the staging delete failed, or because this is
// a retry of a previously failed promotion), and skips the upload step
// in that case. This is the resolution to the hybrid upload-on-complete
// failure recovery open question in SPEC_FULL.md §9: Stream re-attempts
// promotion whenever it is called with offset==length, and Append and
// Concat attempt it whenever they complete the upload, rather than
// requiring an out-of-band reconciliation job.
func (h *Hybrid) promoteIfComplete(ctx context.Context, info upload.FileInfo) error {
	if info.IsPartial || info.Length == nil || info.Offset != *info.Length {
		return nil
	}

	key := h.Remote.Key(info)

	exists, err := h.Remote.Exists(ctx, key)
	if err != nil {
		return upload.Wrap(err, upload.KindInternal, "failed to check remote object existence")
	}

	if !exists {
		file, _, _, err := h.Staging.Stream(ctx, info)
		if err != nil {
			// Staging file is already gone: a previous promotion must
			// have succeeded even though Exists raced it, or the
			// upload was already fully promoted and removed. Nothing
			// further to do.
			if upload.StatusCode(err) == 404 {
				return nil
			}
			return err
		}
		defer file.Close()

		if err := h.Remote.Put(ctx, key, file, info.Offset); err != nil {
			return upload.Wrap(err, upload.KindInternal, "failed to promote upload to remote store")
		}
	}

	if err := h.Staging.Remove(ctx, info); err != nil && upload.StatusCode(err) != 404 {
		return upload.Wrap(err, upload.KindInternal, "failed to remove staging file after promotion")
	}

	return nil
}

func (h *Hybrid) Append(ctx context.Context, info *upload.FileInfo, chunk io.Reader) (int64, error) {
	written, err := h.Staging.Append(ctx, info, chunk)
	if err != nil {
		return written, err
	}

	// info still carries the pre-append offset (the caller advances it
	// after Append returns), so check completion against the new one.
	completed := *info
	completed.Offset += written
	if err := h.promoteIfComplete(ctx, completed); err != nil {
		return written, err
	}

	return written, nil
}

func (h *Hybrid) Concat(ctx context.Context, info *upload.FileInfo, parts []upload.FileInfo) error {
	if !h.Remote.SupportsConcat() {
		return upload.NewError(upload.KindUnsupported,
			h.Remote.Name()+" does not support concatenation")
	}

	if err := h.Staging.Concat(ctx, info, parts); err != nil {
		return err
	}

	// The caller sets offset = length only after Concat returns; the
	// staged payload is already whole at this point.
	completed := *info
	if completed.Length != nil {
		completed.Offset = *completed.Length
	}
	return h.promoteIfComplete(ctx, completed)
}

func (h *Hybrid) Stream(ctx context.Context, info upload.FileInfo) (io.ReadCloser, string, string, error) {
	if info.Length != nil && info.Offset == *info.Length && !info.IsPartial {
		if err := h.promoteIfComplete(ctx, info); err != nil {
			return nil, "", "", err
		}

		key := h.Remote.Key(info)
		body, err := h.Remote.Get(ctx, key)
		if err != nil {
			return nil, "", "", upload.Wrap(err, upload.KindInternal, "failed to read remote object")
		}
		contentType, disposition := contentTypeAndDisposition(info)
		return body, contentType, disposition, nil
	}

	return h.Staging.Stream(ctx, info)
}

func (h *Hybrid) Remove(ctx context.Context, info upload.FileInfo) error {
	if info.Length != nil && info.Offset == *info.Length && !info.IsPartial {
		key := h.Remote.Key(info)
		exists, err := h.Remote.Exists(ctx, key)
		if err != nil {
			return upload.Wrap(err, upload.KindInternal, "failed to check remote object existence")
		}
		if exists {
			return h.Remote.Delete(ctx, key)
		}
	}

	return h.Staging.Remove(ctx, info)
}

func (h *Hybrid) SupportsConcat() bool { return h.Remote.SupportsConcat() }

var (
	_ upload.DataStore          = (*Hybrid)(nil)
	_ upload.ConcatCapableStore = (*Hybrid)(nil)
)
