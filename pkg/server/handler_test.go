package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusrelay/tusrelay/pkg/notify"
	"github.com/tusrelay/tusrelay/pkg/upload"
)

// memInfoStore is a minimal in-memory upload.InfoStore for exercising
// the handler without a real filesystem or Redis backend.
type memInfoStore struct {
	mu      sync.Mutex
	records map[string]upload.FileInfo
}

func newMemInfoStore() *memInfoStore {
	return &memInfoStore{records: make(map[string]upload.FileInfo)}
}

func (s *memInfoStore) Prepare(ctx context.Context) error { return nil }

func (s *memInfoStore) Set(ctx context.Context, info upload.FileInfo, create bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if create {
		if _, exists := s.records[info.ID]; exists {
			return upload.NewError(upload.KindWrongHeaderValue, "upload already exists")
		}
	}
	s.records[info.ID] = info
	return nil
}

func (s *memInfoStore) Get(ctx context.Context, id string) (upload.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.records[id]
	if !ok {
		return upload.FileInfo{}, upload.ErrNotFound
	}
	return info, nil
}

func (s *memInfoStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return upload.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// memDataStore is a minimal in-memory upload.DataStore.
type memDataStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemDataStore() *memDataStore {
	return &memDataStore{data: make(map[string][]byte)}
}

func (s *memDataStore) Name() string                      { return "mem" }
func (s *memDataStore) Prepare(ctx context.Context) error { return nil }

func (s *memDataStore) Create(ctx context.Context, info *upload.FileInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	info.Path = info.ID
	s.data[info.ID] = nil
	return nil
}

func (s *memDataStore) Append(ctx context.Context, info *upload.FileInfo, chunk io.Reader) (int64, error) {
	buf, err := io.ReadAll(chunk)
	if err != nil {
		return 0, upload.Wrap(err, upload.KindInternal, "read failed")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[info.ID] = append(s.data[info.ID], buf...)
	return int64(len(buf)), nil
}

func (s *memDataStore) Concat(ctx context.Context, info *upload.FileInfo, parts []upload.FileInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []byte
	for _, part := range parts {
		out = append(out, s.data[part.ID]...)
	}
	s.data[info.ID] = out
	return nil
}

func (s *memDataStore) Stream(ctx context.Context, info upload.FileInfo) (io.ReadCloser, string, string, error) {
	s.mu.Lock()
	buf := append([]byte(nil), s.data[info.ID]...)
	s.mu.Unlock()
	return io.NopCloser(bytes.NewReader(buf)), "application/octet-stream", "attachment; filename=\"" + info.Filename() + "\"", nil
}

func (s *memDataStore) Remove(ctx context.Context, info upload.FileInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[info.ID]; !ok {
		return upload.ErrNotFound
	}
	delete(s.data, info.ID)
	return nil
}

func newTestHandler() (*Handler, *memInfoStore, *memDataStore) {
	infoStore := newMemInfoStore()
	dataStore := newMemDataStore()
	cfg := Config{
		BasePath: "/files",
		Extensions: []Extension{
			ExtensionCreation, ExtensionCreationWithUpload, ExtensionCreationDeferLength,
			ExtensionTermination, ExtensionConcatenation, ExtensionGetting, ExtensionChecksum,
		},
		AllowEmpty: true,
		CORS:       DefaultCORSConfig,
		Logger:     zerolog.Nop(),
	}
	mgr := notify.NewManager(nil, notify.FormatDefault, zerolog.Nop())
	h := New(cfg, infoStore, dataStore, mgr, nil)
	return h, infoStore, dataStore
}

func TestCreateAndFetchUpload(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/files/", nil)
	req.Header.Set("Upload-Length", "5")
	req.Header.Set("Tus-Resumable", "1.0.0")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	location := rec.Header().Get("Location")
	require.NotEmpty(t, location)
	id := location[len(location)-36:]

	headReq := httptest.NewRequest(http.MethodHead, "/files/"+id, nil)
	headRec := httptest.NewRecorder()
	h.ServeHTTP(headRec, headReq)
	assert.Equal(t, http.StatusOK, headRec.Code)
	assert.Equal(t, "0", headRec.Header().Get("Upload-Offset"))
	assert.Equal(t, "5", headRec.Header().Get("Upload-Length"))
}

func TestPatchResumesAtCorrectOffset(t *testing.T) {
	h, _, dataStore := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/files/", nil)
	req.Header.Set("Upload-Length", "10")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	location := rec.Header().Get("Location")
	id := location[len(location)-36:]

	patchReq := httptest.NewRequest(http.MethodPatch, "/files/"+id, bytes.NewReader([]byte("hello")))
	patchReq.Header.Set("Content-Type", uploadContentType)
	patchReq.Header.Set("Upload-Offset", "0")
	patchRec := httptest.NewRecorder()
	h.ServeHTTP(patchRec, patchReq)
	require.Equal(t, http.StatusNoContent, patchRec.Code)
	assert.Equal(t, "5", patchRec.Header().Get("Upload-Offset"))

	wrongOffset := httptest.NewRequest(http.MethodPatch, "/files/"+id, bytes.NewReader([]byte("x")))
	wrongOffset.Header.Set("Content-Type", uploadContentType)
	wrongOffset.Header.Set("Upload-Offset", "0")
	wrongRec := httptest.NewRecorder()
	h.ServeHTTP(wrongRec, wrongOffset)
	assert.Equal(t, http.StatusConflict, wrongRec.Code)

	finishReq := httptest.NewRequest(http.MethodPatch, "/files/"+id, bytes.NewReader([]byte("world")))
	finishReq.Header.Set("Content-Type", uploadContentType)
	finishReq.Header.Set("Upload-Offset", "5")
	finishRec := httptest.NewRecorder()
	h.ServeHTTP(finishRec, finishReq)
	require.Equal(t, http.StatusNoContent, finishRec.Code)
	assert.Equal(t, "10", finishRec.Header().Get("Upload-Offset"))

	info, _, _, err := dataStore.Stream(context.Background(), upload.FileInfo{ID: id})
	require.NoError(t, err)
	body, _ := io.ReadAll(info)
	assert.Equal(t, "helloworld", string(body))
}

func TestDeferredLengthThenDeclare(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/files/", nil)
	req.Header.Set("Upload-Defer-Length", "1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	location := rec.Header().Get("Location")
	id := location[len(location)-36:]

	patchReq := httptest.NewRequest(http.MethodPatch, "/files/"+id, bytes.NewReader([]byte("abc")))
	patchReq.Header.Set("Content-Type", uploadContentType)
	patchReq.Header.Set("Upload-Offset", "0")
	patchReq.Header.Set("Upload-Length", "3")
	patchRec := httptest.NewRecorder()
	h.ServeHTTP(patchRec, patchReq)
	require.Equal(t, http.StatusNoContent, patchRec.Code)
	assert.Equal(t, "3", patchRec.Header().Get("Upload-Offset"))
}

func TestChecksumMismatchRejected(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/files/", nil)
	req.Header.Set("Upload-Length", "5")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	location := rec.Header().Get("Location")
	id := location[len(location)-36:]

	patchReq := httptest.NewRequest(http.MethodPatch, "/files/"+id, bytes.NewReader([]byte("hello")))
	patchReq.Header.Set("Content-Type", uploadContentType)
	patchReq.Header.Set("Upload-Offset", "0")
	patchReq.Header.Set("Upload-Checksum", "md5 bm90LWEtcmVhbC1kaWdlc3Q=")
	patchRec := httptest.NewRecorder()
	h.ServeHTTP(patchRec, patchReq)
	assert.Equal(t, 460, patchRec.Code)
}

func TestTerminateUpload(t *testing.T) {
	h, infoStore, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/files/", nil)
	req.Header.Set("Upload-Length", "5")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	location := rec.Header().Get("Location")
	id := location[len(location)-36:]

	delReq := httptest.NewRequest(http.MethodDelete, "/files/"+id, nil)
	delRec := httptest.NewRecorder()
	h.ServeHTTP(delRec, delReq)
	assert.Equal(t, http.StatusNoContent, delRec.Code)

	_, err := infoStore.Get(context.Background(), id)
	assert.ErrorIs(t, err, upload.ErrNotFound)
}

func TestGetFileStreamsUploadedBytes(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/files/", nil)
	req.Header.Set("Upload-Length", "5")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	location := rec.Header().Get("Location")
	id := location[len(location)-36:]

	patchReq := httptest.NewRequest(http.MethodPatch, "/files/"+id, bytes.NewReader([]byte("hello")))
	patchReq.Header.Set("Content-Type", uploadContentType)
	patchReq.Header.Set("Upload-Offset", "0")
	patchRec := httptest.NewRecorder()
	h.ServeHTTP(patchRec, patchReq)
	require.Equal(t, http.StatusNoContent, patchRec.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/files/"+id, nil)
	getRec := httptest.NewRecorder()
	h.ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusOK, getRec.Code)
	assert.Equal(t, "hello", getRec.Body.String())
}

func TestOptionsAdvertisesExtensions(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodOptions, "/files/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Tus-Extension"), "creation")
	assert.Equal(t, "1.0.0", rec.Header().Get("Tus-Version"))
}

func TestUnknownIDReturnsNotFound(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodHead, "/files/does-not-exist", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
