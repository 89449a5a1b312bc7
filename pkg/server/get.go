package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/tusrelay/tusrelay/pkg/upload"
)

// getFile implements GET /{id}, described in SPEC_FULL.md §4.3.6. It
// writes directly to w since the response body is a stream, not a
// value ServeHTTP's common response dispatch can buffer.
func (h *Handler) getFile(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	if !h.Config.HasExtension(ExtensionGetting) {
		h.sendError(w, r, upload.NewError(upload.KindNotFound, "getting extension is not enabled"))
		return
	}

	info, err := h.loadInfo(ctx, id)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	body, contentType, contentDisposition, err := h.Data.Stream(ctx, info)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Tus-Resumable", tusResumableVersion)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", contentDisposition)
	if info.Length != nil {
		w.Header().Set("Content-Length", strconv.FormatInt(*info.Length, 10))
	}
	w.WriteHeader(http.StatusOK)

	io.Copy(w, body)
}
