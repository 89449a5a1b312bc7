// Package filestore implements the file-backed InfoStore and DataStore
// variants: one JSON file per upload's metadata, one file per upload's
// payload, both rooted under a configurable directory.
package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/tusrelay/tusrelay/pkg/upload"
)

// FileInfoStore persists FileInfo as one "<id>.info" JSON file per
// upload under Path.
type FileInfoStore struct {
	Path string
}

// NewFileInfoStore builds a FileInfoStore rooted at path.
func NewFileInfoStore(path string) *FileInfoStore {
	return &FileInfoStore{Path: path}
}

func (s *FileInfoStore) Prepare(ctx context.Context) error {
	return os.MkdirAll(s.Path, defaultDirectoryPerm)
}

func (s *FileInfoStore) infoPath(id string) string {
	return filepath.Join(s.Path, id+".info")
}

func (s *FileInfoStore) Set(ctx context.Context, info upload.FileInfo, create bool) error {
	path := s.infoPath(info.ID)

	if create {
		if _, err := os.Stat(path); err == nil {
			return upload.NewError(upload.KindInternal, "upload id already exists")
		}
	}

	data, err := json.Marshal(info)
	if err != nil {
		return upload.Wrap(err, upload.KindInternal, "failed to marshal file info")
	}

	if err := os.WriteFile(path, data, defaultFilePerm); err != nil {
		return upload.Wrap(err, upload.KindInternal, "failed to write file info")
	}

	return nil
}

func (s *FileInfoStore) Get(ctx context.Context, id string) (upload.FileInfo, error) {
	data, err := os.ReadFile(s.infoPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return upload.FileInfo{}, upload.ErrNotFound
		}
		return upload.FileInfo{}, upload.Wrap(err, upload.KindInternal, "failed to read file info")
	}

	var info upload.FileInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return upload.FileInfo{}, upload.Wrap(err, upload.KindInternal, "failed to parse file info")
	}

	return info, nil
}

func (s *FileInfoStore) Remove(ctx context.Context, id string) error {
	if err := os.Remove(s.infoPath(id)); err != nil {
		if os.IsNotExist(err) {
			return upload.ErrNotFound
		}
		return upload.Wrap(err, upload.KindInternal, "failed to remove file info")
	}
	return nil
}

var _ upload.InfoStore = (*FileInfoStore)(nil)
