// Package notify implements the hook notification fabric: message
// formatting in three wire shapes and the six notifier transports
// (HTTP, subprocess-file, subprocess-dir, AMQP, Kafka, NATS) fanned out
// by a NotificationManager.
package notify

import (
	"encoding/json"
	"fmt"

	"github.com/tusrelay/tusrelay/pkg/upload"
)

// Format selects the wire shape used to serialize a HookMessage.
type Format string

const (
	FormatDefault Format = "default"
	FormatV2      Format = "v2"
	FormatTusd    Format = "tusd"
)

// defaultRequest and defaultUpload define the snake_case default
// wire shape for hook messages.
type defaultRequest struct {
	URI        string              `json:"URI"`
	Method     string              `json:"method"`
	RemoteAddr string              `json:"remote_addr"`
	Header     map[string][]string `json:"header"`
}

type defaultMessage struct {
	Upload  defaultUpload  `json:"upload"`
	Request defaultRequest `json:"request"`
}

type defaultUpload struct {
	ID           string            `json:"id"`
	Offset       int64             `json:"offset"`
	Length       *int64            `json:"length"`
	DeferredSize bool              `json:"deferred_size"`
	Path         string            `json:"path,omitempty"`
	IsPartial    bool              `json:"is_partial"`
	IsFinal      bool              `json:"is_final"`
	Parts        []string          `json:"parts,omitempty"`
	Storage      string            `json:"storage"`
	MetaData     map[string]string `json:"metadata,omitempty"`
}

// v2Message flattens the default shape: no "request"/"upload" wrapper
// keys, everything at the top level with lower-cased field names. This
// shape is a documented synthesis (see DESIGN.md) filling in a third
// format the grounding material does not itself enumerate.
type v2Message struct {
	URI          string            `json:"uri"`
	Method       string            `json:"method"`
	RemoteAddr   string            `json:"remote_addr"`
	ID           string            `json:"id"`
	Offset       int64             `json:"offset"`
	Length       *int64            `json:"length"`
	DeferredSize bool              `json:"deferred_size"`
	Path         string            `json:"path,omitempty"`
	IsPartial    bool              `json:"is_partial"`
	IsFinal      bool              `json:"is_final"`
	Parts        []string          `json:"parts,omitempty"`
	Storage      string            `json:"storage"`
	MetaData     map[string]string `json:"metadata,omitempty"`
}

// tusdMessage matches the PascalCase shape tusd's own HTTP hooks emit,
// so existing tusd hook receivers can subscribe unmodified.
type tusdMessage struct {
	Upload      tusdUpload      `json:"Upload"`
	HTTPRequest tusdHTTPRequest `json:"HTTPRequest"`
}

type tusdHTTPRequest struct {
	Method     string              `json:"Method"`
	URI        string              `json:"URI"`
	RemoteAddr string              `json:"RemoteAddr"`
	Header     map[string][]string `json:"Header"`
}

type tusdUpload struct {
	ID             string            `json:"ID"`
	Size           int64             `json:"Size"`
	SizeIsDeferred bool              `json:"SizeIsDeferred"`
	Offset         int64             `json:"Offset"`
	MetaData       map[string]string `json:"MetaData"`
	IsPartial      bool              `json:"IsPartial"`
	IsFinal        bool              `json:"IsFinal"`
	PartialUploads []string          `json:"PartialUploads,omitempty"`
	Storage        tusdStorage       `json:"Storage"`
}

type tusdStorage struct {
	Type string `json:"Type"`
	Path string `json:"Path"`
}

// FormatMessage serializes message in the requested shape.
func FormatMessage(format Format, message upload.HookMessage) ([]byte, error) {
	switch format {
	case FormatV2:
		return json.Marshal(toV2(message))
	case FormatTusd:
		return json.Marshal(toTusd(message))
	case FormatDefault, "":
		return json.Marshal(toDefault(message))
	default:
		return nil, fmt.Errorf("notify: unknown hook format %q", format)
	}
}

func toDefault(m upload.HookMessage) defaultMessage {
	return defaultMessage{
		Upload: defaultUpload{
			ID: m.Upload.ID, Offset: m.Upload.Offset, Length: m.Upload.Length,
			DeferredSize: m.Upload.DeferredSize, Path: m.Upload.Path,
			IsPartial: m.Upload.IsPartial, IsFinal: m.Upload.IsFinal,
			Parts: m.Upload.Parts, Storage: m.Upload.Storage,
			MetaData: m.Upload.MetaData,
		},
		Request: defaultRequest{
			URI: m.Request.URI, Method: m.Request.Method,
			RemoteAddr: m.Request.RemoteAddr, Header: m.Request.Header,
		},
	}
}

func toV2(m upload.HookMessage) v2Message {
	return v2Message{
		URI: m.Request.URI, Method: m.Request.Method, RemoteAddr: m.Request.RemoteAddr,
		ID: m.Upload.ID, Offset: m.Upload.Offset, Length: m.Upload.Length,
		DeferredSize: m.Upload.DeferredSize, Path: m.Upload.Path,
		IsPartial: m.Upload.IsPartial, IsFinal: m.Upload.IsFinal,
		Parts: m.Upload.Parts, Storage: m.Upload.Storage,
		MetaData: m.Upload.MetaData,
	}
}

func toTusd(m upload.HookMessage) tusdMessage {
	size := int64(0)
	if m.Upload.Length != nil {
		size = *m.Upload.Length
	}
	return tusdMessage{
		Upload: tusdUpload{
			ID: m.Upload.ID, Size: size, SizeIsDeferred: m.Upload.DeferredSize,
			Offset: m.Upload.Offset, MetaData: m.Upload.MetaData,
			IsPartial: m.Upload.IsPartial, IsFinal: m.Upload.IsFinal,
			PartialUploads: m.Upload.Parts,
			Storage: tusdStorage{Type: m.Upload.Storage, Path: m.Upload.Path},
		},
		HTTPRequest: tusdHTTPRequest{
			Method: m.Request.Method, URI: m.Request.URI,
			RemoteAddr: m.Request.RemoteAddr, Header: m.Request.Header,
		},
	}
}
