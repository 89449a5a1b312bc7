// Package upload contains the core domain types of the tus protocol
// implementation: the FileInfo record, the InfoStore/DataStore/Notifier
// interfaces, the error taxonomy and the header codec. It has no
// dependency on net/http beyond the types needed to describe a request,
// so it can be exercised by storage and notifier packages without
// importing the HTTP handler.
package upload

import (
	"encoding/json"
	"time"
)

// FileInfo is the single per-upload metadata record. It is owned
// exclusively by the configured InfoStore; a DataStore must never
// persist it and may only read the fields it needs to perform a
// payload operation.
type FileInfo struct {
	ID string `json:"id"`

	Offset int64 `json:"offset"`

	// Length is nil iff the upload's size was never declared (deferred).
	Length *int64 `json:"length,omitempty"`

	// DeferredSize is true iff Length is nil. Kept as an explicit field,
	// rather than derived, because it round-trips through JSON storage
	// and the wire header independently of Length's presence.
	DeferredSize bool `json:"deferred_size"`

	// Path is the backend-specific locator: a filesystem path for the
	// file DataStore, an object key for a hybrid remote DataStore.
	Path string `json:"path,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// Storage is the Name() of the DataStore that owns this upload's
	// payload. Any handler that reads a FileInfo whose Storage does not
	// match the configured DataStore must treat the upload as NotFound.
	Storage string `json:"storage"`

	IsPartial bool `json:"is_partial"`
	IsFinal   bool `json:"is_final"`

	// Parts holds the source upload ids in concatenation order, present
	// iff IsFinal.
	Parts []string `json:"parts,omitempty"`

	MetaData MetaData `json:"metadata,omitempty"`
}

// MetaData is the client-supplied free-form key/value map parsed out of
// the Upload-Metadata header.
type MetaData map[string]string

// SizeIsDeferred reports whether the upload's total length is still
// unknown.
func (f FileInfo) SizeIsDeferred() bool {
	return f.Length == nil
}

// IsComplete reports whether every declared byte has been received.
// An upload with a deferred length is never complete.
func (f FileInfo) IsComplete() bool {
	return f.Length != nil && f.Offset == *f.Length
}

// BytesRemaining returns how many bytes are still expected, or -1 if
// the length has not been declared yet.
func (f FileInfo) BytesRemaining() int64 {
	if f.Length == nil {
		return -1
	}
	return *f.Length - f.Offset
}

// Filename extracts a reasonable download filename from metadata,
// checking the conventional "filename" key and falling back to the id.
func (f FileInfo) Filename() string {
	if name, ok := f.MetaData["filename"]; ok && name != "" {
		return name
	}
	if name, ok := f.MetaData["name"]; ok && name != "" {
		return name
	}
	return f.ID
}

// fileInfoAlias mirrors FileInfo but swaps CreatedAt for a plain int64
// so the info store's on-disk schema stores unix seconds rather than an
// RFC3339 string.
type fileInfoAlias struct {
	ID           string   `json:"id"`
	Offset       int64    `json:"offset"`
	Length       *int64   `json:"length,omitempty"`
	DeferredSize bool     `json:"deferred_size"`
	Path         string   `json:"path,omitempty"`
	CreatedAt    int64    `json:"created_at"`
	Storage      string   `json:"storage"`
	IsPartial    bool     `json:"is_partial"`
	IsFinal      bool     `json:"is_final"`
	Parts        []string `json:"parts,omitempty"`
	MetaData     MetaData `json:"metadata,omitempty"`
}

// MarshalJSON renders CreatedAt as unix seconds, per the file info
// store's on-disk schema.
func (f FileInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(fileInfoAlias{
		ID: f.ID, Offset: f.Offset, Length: f.Length, DeferredSize: f.DeferredSize,
		Path: f.Path, CreatedAt: f.CreatedAt.Unix(), Storage: f.Storage,
		IsPartial: f.IsPartial, IsFinal: f.IsFinal, Parts: f.Parts, MetaData: f.MetaData,
	})
}

// UnmarshalJSON reads CreatedAt back from unix seconds.
func (f *FileInfo) UnmarshalJSON(data []byte) error {
	var alias fileInfoAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*f = FileInfo{
		ID: alias.ID, Offset: alias.Offset, Length: alias.Length, DeferredSize: alias.DeferredSize,
		Path: alias.Path, CreatedAt: time.Unix(alias.CreatedAt, 0).UTC(), Storage: alias.Storage,
		IsPartial: alias.IsPartial, IsFinal: alias.IsFinal, Parts: alias.Parts, MetaData: alias.MetaData,
	}
	return nil
}
