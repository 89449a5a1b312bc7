package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/tusrelay/tusrelay/pkg/upload"
)

// fileInfo implements HEAD /{id}, described in SPEC_FULL.md §4.3.3.
func (h *Handler) fileInfo(r *http.Request, id string) (response, error) {
	ctx := r.Context()
	info, err := h.loadInfo(ctx, id)
	if err != nil {
		return response{}, err
	}

	headers := header{
		"Cache-Control":  "no-store",
		"Upload-Offset":  strconv.FormatInt(info.Offset, 10),
		"Upload-Created": strconv.FormatInt(info.CreatedAt.Unix(), 10),
	}

	if info.Length != nil {
		headers["Upload-Length"] = strconv.FormatInt(*info.Length, 10)
		headers["Content-Length"] = strconv.FormatInt(info.Offset, 10)
	} else {
		headers["Upload-Defer-Length"] = "1"
	}

	if meta := upload.SerializeMetadataHeader(info.MetaData); meta != "" {
		headers["Upload-Metadata"] = meta
	}

	if info.IsPartial {
		headers["Upload-Concat"] = "partial"
	} else if info.IsFinal {
		urls := make([]string, len(info.Parts))
		for i, partID := range info.Parts {
			urls[i] = h.absoluteURL(r, partID)
		}
		concatValue := "final;"
		for _, u := range urls {
			concatValue += " " + u
		}
		headers["Upload-Concat"] = concatValue
	}

	return response{StatusCode: http.StatusOK, Header: headers}, nil
}

// loadInfo fetches a FileInfo and rejects cross-storage access as
// NotFound, per the storage ownership invariant in SPEC_FULL.md §3.3.
func (h *Handler) loadInfo(ctx context.Context, id string) (upload.FileInfo, error) {
	if !upload.ValidateUploadID(id) {
		return upload.FileInfo{}, upload.ErrNotFound
	}

	info, err := h.InfoStore.Get(ctx, id)
	if err != nil {
		return upload.FileInfo{}, err
	}

	if info.Storage != h.Data.Name() {
		return upload.FileInfo{}, upload.ErrNotFound
	}

	return info, nil
}
