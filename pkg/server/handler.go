package server

import (
	"net/http"
	"strings"

	"github.com/tusrelay/tusrelay/pkg/notify"
	"github.com/tusrelay/tusrelay/pkg/upload"
)

const (
	tusResumableVersion = "1.0.0"
	uploadContentType   = "application/offset+octet-stream"
)

// Metrics is the narrow interface the handler reports request/upload
// lifecycle counters through; see pkg/metrics for the Prometheus
// implementation. A nil Metrics is valid and simply means "don't
// record metrics", since collecting metrics is explicitly left
// optional in the protocol surface.
type Metrics interface {
	RequestReceived(method string)
	ErrorOccurred(statusCode int, message string)
	BytesReceived(n int64)
	UploadCreated()
	UploadFinished()
	UploadTerminated()
}

// Handler implements the tus protocol state machine over an InfoStore
// and DataStore pair plus a notification Manager. It has no knowledge
// of routing beyond its own ServeHTTP dispatch table.
type Handler struct {
	Config    Config
	InfoStore upload.InfoStore
	Data      upload.DataStore
	Notifier  *notify.Manager
	Metrics   Metrics
}

// New builds a Handler. The caller is responsible for having already
// called Prepare on the InfoStore and DataStore.
func New(cfg Config, infoStore upload.InfoStore, dataStore upload.DataStore, notifier *notify.Manager, metrics Metrics) *Handler {
	return &Handler{Config: cfg, InfoStore: infoStore, Data: dataStore, Notifier: notifier, Metrics: metrics}
}

// ServeHTTP dispatches by method (after X-HTTP-Method-Override
// resolution) and path, matching the route table in SPEC_FULL.md §4.3.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := upload.ParseMethodOverride(r)

	if h.Metrics != nil {
		h.Metrics.RequestReceived(method)
	}

	h.applyCORS(w, r)
	if method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	w.Header().Set("Tus-Resumable", tusResumableVersion)
	w.Header().Set("Tus-Version", tusResumableVersion)

	base := h.Config.normalizedBasePath()
	path := strings.TrimPrefix(r.URL.Path, base)
	path = strings.Trim(path, "/")

	var resp response
	var err error

	switch {
	case method == http.MethodOptions && path == "":
		resp, err = h.serverInfo()
	case method == http.MethodPost && path == "":
		resp, err = h.createUpload(r)
	case method == http.MethodHead && path != "":
		resp, err = h.fileInfo(r, path)
	case method == http.MethodPatch && path != "":
		resp, err = h.appendUpload(r, path)
	case method == http.MethodDelete && path != "":
		resp, err = h.terminateUpload(r, path)
	case method == http.MethodGet && path != "":
		h.getFile(w, r, path)
		return
	default:
		err = upload.NewError(upload.KindNotFound, "no route for this method and path")
	}

	if err != nil {
		h.sendError(w, r, err)
		return
	}

	resp.writeTo(w)
}

func (h *Handler) sendError(w http.ResponseWriter, r *http.Request, err error) {
	status := upload.StatusCode(err)

	var upErr *upload.Error
	body := err.Error()
	contentType := "text/plain; charset=utf-8"
	if ok := asUploadError(err, &upErr); ok && upErr.Kind == upload.KindHookFailure {
		body = upErr.HookBody
		if upErr.HookContentType != "" {
			contentType = upErr.HookContentType
		}
	}

	if h.Metrics != nil {
		h.Metrics.ErrorOccurred(status, body)
	}

	h.Config.Logger.Warn().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")

	w.Header().Set("Tus-Resumable", tusResumableVersion)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Connection", "close")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func asUploadError(err error, target **upload.Error) bool {
	if e, ok := err.(*upload.Error); ok {
		*target = e
		return true
	}
	return false
}

func (h *Handler) applyCORS(w http.ResponseWriter, r *http.Request) {
	cors := h.Config.CORS
	if cors.Disable {
		return
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}

	allowOrigin := cors.AllowOrigin
	if allowOrigin == "" {
		allowOrigin = origin
	}

	w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
	if cors.Credentials {
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}

	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", cors.AllowMethods)
		w.Header().Set("Access-Control-Allow-Headers", cors.AllowHeaders)
		w.Header().Set("Access-Control-Max-Age", cors.MaxAge)
	} else {
		w.Header().Set("Access-Control-Expose-Headers", cors.ExposeHeaders)
	}
}

// absoluteURL builds the absolute Location for an upload id, honoring
// forwarded host/proto headers when the handler is configured as
// behind a proxy.
func (h *Handler) absoluteURL(r *http.Request, id string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host

	if h.Config.BehindProxy {
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		if forwardedHost := r.Header.Get("X-Forwarded-Host"); forwardedHost != "" {
			host = forwardedHost
		}
	}

	base := h.Config.normalizedBasePath()
	return scheme + "://" + host + base + "/" + id
}
