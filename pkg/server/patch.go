package server

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/tusrelay/tusrelay/pkg/upload"
)

// appendUpload implements PATCH /{id}, described in SPEC_FULL.md §4.3.4.
func (h *Handler) appendUpload(r *http.Request, id string) (response, error) {
	ctx := r.Context()

	if r.Header.Get("Content-Type") != uploadContentType {
		return response{}, upload.NewError(upload.KindUnsupported, "Content-Type must be "+uploadContentType)
	}

	offsetHeader := r.Header.Get("Upload-Offset")
	offset, err := strconv.ParseInt(offsetHeader, 10, 64)
	if offsetHeader == "" || err != nil || offset < 0 {
		return response{}, upload.NewError(upload.KindUnsupported, "Upload-Offset header is missing or malformed")
	}

	info, err := h.loadInfo(ctx, id)
	if err != nil {
		return response{}, err
	}

	if info.IsFinal {
		return response{}, upload.ErrForbidden
	}

	if offset != info.Offset {
		return response{}, upload.ErrWrongOffset
	}

	if info.Length != nil && info.Offset == *info.Length {
		return response{}, upload.ErrFrozenFile
	}

	if lengthHeader := r.Header.Get("Upload-Length"); lengthHeader != "" {
		if !h.Config.HasExtension(ExtensionCreationDeferLength) || !info.SizeIsDeferred() {
			return response{}, upload.ErrSizeAlreadyKnown
		}
		length, err := strconv.ParseInt(lengthHeader, 10, 64)
		if err != nil || length < info.Offset {
			return response{}, upload.ErrWrongOffset
		}
		info.Length = &length
		info.DeferredSize = false
	}

	body := io.Reader(r.Body)
	var checksumAlgo string
	var checksumExpected []byte
	if h.Config.HasExtension(ExtensionChecksum) {
		if checksumHeader := r.Header.Get("Upload-Checksum"); checksumHeader != "" {
			algo, digest, ok := upload.ParseChecksumHeader(checksumHeader)
			if !ok {
				return response{}, upload.ErrWrongHeaderValue
			}
			if _, supported := upload.NewChecksumHash(algo); !supported {
				return response{}, upload.ErrUnknownHashAlgorithm
			}
			checksumAlgo = algo
			checksumExpected = digest

			chunk, err := io.ReadAll(r.Body)
			if err != nil {
				return response{}, upload.Wrap(err, upload.KindInternal, "failed to read request body")
			}
			if err := upload.VerifyChecksum(checksumAlgo, checksumExpected, chunk); err != nil {
				return response{}, err
			}
			body = bytes.NewReader(chunk)
		}
	}

	if info.Length != nil {
		remaining := *info.Length - info.Offset
		body = io.LimitReader(body, remaining)
	}

	written, err := h.Data.Append(ctx, &info, body)
	if err != nil {
		return response{}, err
	}
	info.Offset += written

	if h.Metrics != nil {
		h.Metrics.BytesReceived(written)
	}

	if err := h.InfoStore.Set(ctx, info, false); err != nil {
		return response{}, err
	}

	requestInfo := upload.RequestInfo{
		URI: r.URL.RequestURI(), Method: r.Method,
		RemoteAddr: upload.RemoteAddr(r, h.Config.BehindProxy), Header: r.Header,
	}
	message := upload.HookMessage{Request: requestInfo, Upload: info}

	if info.IsComplete() {
		if h.Config.HasHook(upload.HookPostFinish) {
			h.Notifier.NotifyAsync(upload.HookPostFinish, message)
		}
		if h.Metrics != nil {
			h.Metrics.UploadFinished()
		}
	} else if h.Config.HasHook(upload.HookPostReceive) {
		h.Notifier.NotifyAsync(upload.HookPostReceive, message)
	}

	return response{
		StatusCode: http.StatusNoContent,
		Header: header{
			"Upload-Offset": strconv.FormatInt(info.Offset, 10),
			"Cache-Control": "no-cache",
		},
	}, nil
}
