package filestore

import (
	"context"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/tusrelay/tusrelay/pkg/upload"
)

var (
	defaultFilePerm      = os.FileMode(0664)
	defaultDirectoryPerm = os.FileMode(0754)
)

// mimeInlinePrefixes and mimeInlineExact list the content types safe
// to serve a GET response inline rather than as an attachment.
var mimeInlinePrefixes = []string{"image/", "text/", "audio/", "video/"}
var mimeInlineExact = map[string]bool{
	"application/javascript": true,
	"application/json":       true,
	"application/wasm":       true,
}

// FileStore is the file-backed DataStore. Payloads live under
// <Path>/<templated-subdir>/<id>; DirStructure is the template
// expanded via ExpandDirTemplate, and Env is the frozen environment
// snapshot it is expanded against.
type FileStore struct {
	Path         string
	DirStructure string
	Env          map[string]string
	ForceFsync   bool
}

// NewFileStore builds a FileStore rooted at path.
func NewFileStore(path, dirStructure string, env map[string]string, forceFsync bool) *FileStore {
	return &FileStore{Path: path, DirStructure: dirStructure, Env: env, ForceFsync: forceFsync}
}

func (s *FileStore) Name() string { return "file" }

func (s *FileStore) Prepare(ctx context.Context) error {
	return os.MkdirAll(s.Path, defaultDirectoryPerm)
}

// binPath computes the payload location for info, using info.CreatedAt
// (not time.Now) so resumed or re-derived locators stay stable across
// restarts. It does not read or write info.Path.
func (s *FileStore) binPath(info upload.FileInfo) string {
	subdir := ExpandDirTemplate(s.DirStructure, info.CreatedAt, s.Env)
	return filepath.Join(s.Path, subdir, info.ID)
}

func (s *FileStore) Create(ctx context.Context, info *upload.FileInfo) error {
	if info.ID == "" {
		info.ID = uuid.NewString()
	}

	path := s.binPath(*info)
	if err := os.MkdirAll(filepath.Dir(path), defaultDirectoryPerm); err != nil {
		return upload.Wrap(err, upload.KindInternal, "failed to create upload directory")
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, defaultFilePerm)
	if err != nil {
		if os.IsExist(err) {
			return upload.NewError(upload.KindInternal, "upload payload already exists")
		}
		return upload.Wrap(err, upload.KindInternal, "failed to create upload file")
	}
	defer file.Close()

	info.Path = path
	return nil
}

// healAppendOffset guards against the append-mode-without-seek
// corruption scenario described in SPEC_FULL.md §5 and §9: if a
// previous crashed append flushed more bytes to disk than the
// InfoStore recorded as acknowledged, truncate the file back down to
// the last acknowledged offset before appending the new chunk.
func healAppendOffset(file *os.File, expectedOffset int64) error {
	stat, err := file.Stat()
	if err != nil {
		return err
	}
	if stat.Size() > expectedOffset {
		return file.Truncate(expectedOffset)
	}
	return nil
}

func (s *FileStore) Append(ctx context.Context, info *upload.FileInfo, chunk io.Reader) (int64, error) {
	file, err := os.OpenFile(info.Path, os.O_WRONLY|os.O_APPEND, defaultFilePerm)
	if err != nil {
		return 0, upload.Wrap(err, upload.KindInternal, "failed to open upload file for append")
	}
	defer file.Close()

	if err := healAppendOffset(file, info.Offset); err != nil {
		return 0, upload.Wrap(err, upload.KindInternal, "failed to heal upload file offset")
	}

	written, err := io.Copy(file, chunk)
	if err != nil {
		return written, upload.Wrap(err, upload.KindInternal, "failed to write upload chunk")
	}

	if s.ForceFsync {
		if err := file.Sync(); err != nil {
			return written, upload.Wrap(err, upload.KindInternal, "failed to fsync upload file")
		}
	}

	return written, nil
}

func (s *FileStore) Concat(ctx context.Context, info *upload.FileInfo, parts []upload.FileInfo) error {
	file, err := os.OpenFile(info.Path, os.O_WRONLY|os.O_APPEND, defaultFilePerm)
	if err != nil {
		return upload.Wrap(err, upload.KindInternal, "failed to open final upload file")
	}
	defer file.Close()

	for _, part := range parts {
		partFile, err := os.Open(part.Path)
		if err != nil {
			return upload.Wrap(err, upload.KindInternal, "failed to open partial upload file")
		}

		_, err = io.Copy(file, partFile)
		partFile.Close()
		if err != nil {
			return upload.Wrap(err, upload.KindInternal, "failed to concatenate partial upload")
		}
	}

	if s.ForceFsync {
		if err := file.Sync(); err != nil {
			return upload.Wrap(err, upload.KindInternal, "failed to fsync final upload file")
		}
	}

	return nil
}

func (s *FileStore) Stream(ctx context.Context, info upload.FileInfo) (io.ReadCloser, string, string, error) {
	file, err := os.Open(info.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", "", upload.ErrNotFound
		}
		return nil, "", "", upload.Wrap(err, upload.KindInternal, "failed to open upload file")
	}

	contentType, disposition := contentTypeAndDisposition(info)
	return file, contentType, disposition, nil
}

func (s *FileStore) Remove(ctx context.Context, info upload.FileInfo) error {
	if err := os.Remove(info.Path); err != nil {
		if os.IsNotExist(err) {
			return upload.ErrNotFound
		}
		return upload.Wrap(err, upload.KindInternal, "failed to remove upload file")
	}
	return nil
}

func (s *FileStore) SupportsConcat() bool { return true }

// contentTypeAndDisposition derives the Content-Type and
// Content-Disposition for a get-file response, inlining the
// conventional browser-safe media types and forcing an attachment
// download for everything else.
func contentTypeAndDisposition(info upload.FileInfo) (string, string) {
	filename := info.Filename()
	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	disposition := "attachment"
	base := strings.SplitN(contentType, ";", 2)[0]
	if mimeInlineExact[base] {
		disposition = "inline"
	}
	for _, prefix := range mimeInlinePrefixes {
		if strings.HasPrefix(base, prefix) {
			disposition = "inline"
			break
		}
	}

	return contentType, disposition + `; filename="` + filename + `"`
}

var (
	_ upload.DataStore         = (*FileStore)(nil)
	_ upload.ConcatCapableStore = (*FileStore)(nil)
)
