package upload

import (
	"context"
	"io"
)

// InfoStore persists FileInfo records keyed by upload id. It owns the
// metadata plane exclusively: a DataStore never reads or writes
// through an InfoStore, and an InfoStore never touches payload bytes.
type InfoStore interface {
	// Prepare performs one-shot pre-serving setup, such as creating a
	// directory or pinging a backend. It is called once at startup.
	Prepare(ctx context.Context) error

	// Set atomically upserts info. If create is true, Set fails with an
	// Error (KindInternal in the file and Redis stores) when a record
	// for info.ID already exists, so a colliding creation is rejected.
	Set(ctx context.Context, info FileInfo, create bool) error

	// Get fails with KindNotFound if no record exists for id.
	Get(ctx context.Context, id string) (FileInfo, error)

	// Remove fails with KindNotFound if no record exists for id.
	Remove(ctx context.Context, id string) error
}

// DataStore manages the payload bytes of every upload it owns. It
// never persists FileInfo; the handler is responsible for keeping the
// InfoStore in sync with the side effects of each DataStore call.
type DataStore interface {
	// Name returns the identity tag written into FileInfo.Storage.
	Name() string

	// Prepare performs one-shot pre-serving setup.
	Prepare(ctx context.Context) error

	// Create reserves storage for a new upload and writes the backend
	// locator into info.Path. It fails if info.ID already has a
	// payload on this backend.
	Create(ctx context.Context, info *FileInfo) error

	// Append writes chunk to the tail of the upload's payload and
	// returns the number of bytes actually written before any error.
	// On success the bytes are durable.
	Append(ctx context.Context, info *FileInfo, chunk io.Reader) (int64, error)

	// Concat writes, in order, the payload of each part into info's
	// payload. info.Path must already have been set by Create.
	Concat(ctx context.Context, info *FileInfo, parts []FileInfo) error

	// Stream returns a reader over the upload's current payload plus a
	// content type and content disposition suitable for the get-file
	// response. The caller must close the reader.
	Stream(ctx context.Context, info FileInfo) (body io.ReadCloser, contentType string, contentDisposition string, err error)

	// Remove deletes the upload's payload. It fails with KindNotFound
	// if no payload exists.
	Remove(ctx context.Context, info FileInfo) error
}

// ConcatCapableStore is implemented by DataStores that can report
// whether their Concat operation is supported. The file store always
// reports true; the hybrid store forwards its remote backend's answer
// and, when that is false, returns a KindUnsupported error from Concat.
// The create handler does not consult it; an unsupported concat is
// discovered when Concat is called.
type ConcatCapableStore interface {
	DataStore
	SupportsConcat() bool
}
