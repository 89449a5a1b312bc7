package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tusrelay/tusrelay/pkg/upload"
)

// createUpload implements POST /, the create endpoint described in
// SPEC_FULL.md §4.3.2.
func (h *Handler) createUpload(r *http.Request) (response, error) {
	ctx := r.Context()

	concat, ok := upload.ParseConcatHeader(r.Header.Get("Upload-Concat"))
	if !ok || (concat.IsFinal && !h.Config.HasExtension(ExtensionConcatenation)) || (concat.IsPartial && !h.Config.HasExtension(ExtensionConcatenation)) {
		return response{}, upload.ErrWrongHeaderValue
	}

	lengthHeader := r.Header.Get("Upload-Length")
	deferHeader := r.Header.Get("Upload-Defer-Length")

	info := upload.FileInfo{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Storage:   h.Data.Name(),
		IsPartial: concat.IsPartial,
		IsFinal:   concat.IsFinal,
		MetaData:  upload.ParseMetadataHeader(r.Header.Get("Upload-Metadata")),
	}

	var parts []upload.FileInfo
	if concat.IsFinal {
		if len(concat.PartURLs) == 0 {
			return response{}, upload.ErrWrongHeaderValue
		}

		var finalSize int64
		for _, partURL := range concat.PartURLs {
			partID := upload.ExtractIDFromURL(partURL)
			part, err := h.InfoStore.Get(ctx, partID)
			if err != nil {
				return response{}, upload.NewError(upload.KindWrongHeaderValue, "referenced partial upload not found: "+partID)
			}
			if !part.IsPartial || part.Length == nil || part.Offset != *part.Length {
				return response{}, upload.NewError(upload.KindWrongHeaderValue, "referenced upload is not a complete partial upload: "+partID)
			}
			finalSize += *part.Length
			info.Parts = append(info.Parts, part.ID)
			parts = append(parts, part)
		}
		info.Length = &finalSize
	} else {
		switch {
		case lengthHeader != "" && deferHeader != "":
			return response{}, upload.ErrWrongHeaderValue
		case lengthHeader != "":
			length, err := strconv.ParseInt(lengthHeader, 10, 64)
			if err != nil || length < 0 {
				return response{}, upload.ErrWrongHeaderValue
			}
			if h.Config.MaxFileSize > 0 && length > h.Config.MaxFileSize {
				return response{}, upload.NewError(upload.KindWrongHeaderValue, "upload length exceeds configured maximum")
			}
			if length == 0 && !h.Config.AllowEmpty {
				return response{}, upload.NewError(upload.KindWrongHeaderValue, "empty uploads are not allowed")
			}
			info.Length = &length
		case deferHeader == "1" && h.Config.HasExtension(ExtensionCreationDeferLength):
			info.DeferredSize = true
		default:
			return response{}, upload.ErrWrongHeaderValue
		}
	}
	info.DeferredSize = info.Length == nil

	requestInfo := upload.RequestInfo{
		URI: r.URL.RequestURI(), Method: r.Method,
		RemoteAddr: upload.RemoteAddr(r, h.Config.BehindProxy), Header: r.Header,
	}

	if h.Config.HasHook(upload.HookPreCreate) {
		if err := h.Notifier.Notify(ctx, upload.HookPreCreate, upload.HookMessage{Request: requestInfo, Upload: info}); err != nil {
			return response{}, err
		}
	}

	if err := h.Data.Create(ctx, &info); err != nil {
		return response{}, err
	}

	if concat.IsFinal {
		if err := h.Data.Concat(ctx, &info, parts); err != nil {
			return response{}, err
		}
		info.Offset = *info.Length

		if h.Config.RemoveParts {
			for _, part := range parts {
				h.Data.Remove(ctx, part)
				h.InfoStore.Remove(ctx, part.ID)
			}
		}
	} else if h.Config.HasExtension(ExtensionCreationWithUpload) && r.ContentLength > 0 && r.Header.Get("Content-Type") == uploadContentType {
		written, err := h.Data.Append(ctx, &info, r.Body)
		if err != nil {
			return response{}, err
		}
		info.Offset += written
		if h.Metrics != nil {
			h.Metrics.BytesReceived(written)
		}
	}

	if err := h.InfoStore.Set(ctx, info, true); err != nil {
		return response{}, err
	}

	if h.Metrics != nil {
		h.Metrics.UploadCreated()
	}

	message := upload.HookMessage{Request: requestInfo, Upload: info}
	if info.IsComplete() || info.IsFinal {
		if h.Config.HasHook(upload.HookPostFinish) {
			h.Notifier.NotifyAsync(upload.HookPostFinish, message)
		}
		if h.Metrics != nil {
			h.Metrics.UploadFinished()
		}
	} else if h.Config.HasHook(upload.HookPostCreate) {
		h.Notifier.NotifyAsync(upload.HookPostCreate, message)
	}

	return response{
		StatusCode: http.StatusCreated,
		Header: header{
			"Location":      h.absoluteURL(r, info.ID),
			"Upload-Offset": strconv.FormatInt(info.Offset, 10),
		},
	}, nil
}
