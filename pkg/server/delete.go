package server

import (
	"net/http"

	"github.com/tusrelay/tusrelay/pkg/upload"
)

// terminateUpload implements DELETE /{id}, described in SPEC_FULL.md §4.3.5.
func (h *Handler) terminateUpload(r *http.Request, id string) (response, error) {
	ctx := r.Context()

	if !h.Config.HasExtension(ExtensionTermination) {
		return response{}, upload.NewError(upload.KindNotFound, "termination extension is not enabled")
	}

	info, err := h.loadInfo(ctx, id)
	if err != nil {
		return response{}, err
	}

	requestInfo := upload.RequestInfo{
		URI: r.URL.RequestURI(), Method: r.Method,
		RemoteAddr: upload.RemoteAddr(r, h.Config.BehindProxy), Header: r.Header,
	}
	message := upload.HookMessage{Request: requestInfo, Upload: info}

	if h.Config.HasHook(upload.HookPreTerminate) {
		if err := h.Notifier.Notify(ctx, upload.HookPreTerminate, message); err != nil {
			return response{}, err
		}
	}

	if err := h.Data.Remove(ctx, info); err != nil {
		return response{}, err
	}
	if err := h.InfoStore.Remove(ctx, info.ID); err != nil {
		return response{}, err
	}

	if h.Metrics != nil {
		h.Metrics.UploadTerminated()
	}

	if h.Config.HasHook(upload.HookPostTerminate) {
		h.Notifier.NotifyAsync(upload.HookPostTerminate, message)
	}

	return response{StatusCode: http.StatusNoContent}, nil
}
