// Package server implements the tus protocol state machine: the six
// HTTP endpoints, header codec wiring, CORS/middleware, and the
// orchestration between an InfoStore, a DataStore and a notification
// Manager kept as three separate concerns.
package server

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/tusrelay/tusrelay/pkg/notify"
	"github.com/tusrelay/tusrelay/pkg/upload"
)

// Extension names an optionally-enabled tus protocol capability.
type Extension string

const (
	ExtensionCreation            Extension = "creation"
	ExtensionCreationWithUpload  Extension = "creation-with-upload"
	ExtensionCreationDeferLength Extension = "creation-defer-length"
	ExtensionTermination         Extension = "termination"
	ExtensionConcatenation       Extension = "concatenation"
	ExtensionGetting             Extension = "getting"
	ExtensionChecksum            Extension = "checksum"
)

// CORSConfig controls the CORS middleware.
type CORSConfig struct {
	Disable       bool
	AllowOrigin   string
	AllowMethods  string
	AllowHeaders  string
	ExposeHeaders string
	MaxAge        string
	Credentials   bool
}

// DefaultCORSConfig holds the CORS header values used when a
// deployment does not override them.
var DefaultCORSConfig = CORSConfig{
	AllowMethods: "POST, HEAD, PATCH, OPTIONS, GET, DELETE",
	AllowHeaders: "Authorization, Origin, X-Requested-With, X-Request-ID, X-HTTP-Method-Override, " +
		"Content-Type, Upload-Length, Upload-Offset, Tus-Resumable, Upload-Metadata, " +
		"Upload-Defer-Length, Upload-Concat, Upload-Checksum, X-Forwarded-Host, X-Forwarded-Proto",
	ExposeHeaders: "Location, Upload-Offset, Upload-Length, Tus-Version, Tus-Resumable, " +
		"Tus-Max-Size, Tus-Extension, Tus-Checksum-Algorithm, Upload-Metadata, Upload-Defer-Length, " +
		"Upload-Concat, Upload-Checksum",
	MaxAge: "86400",
}

// Config bundles every per-deployment setting for the handler.
type Config struct {
	BasePath string

	Extensions []Extension

	Hooks       []upload.Hook
	HooksFormat notify.Format

	MaxFileSize int64 // 0 means unbounded
	AllowEmpty  bool
	RemoveParts bool
	BehindProxy bool

	CORS CORSConfig

	Logger zerolog.Logger
}

// HasExtension reports whether ext is enabled.
func (c Config) HasExtension(ext Extension) bool {
	for _, e := range c.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// HasHook reports whether hook is configured to fire.
func (c Config) HasHook(hook upload.Hook) bool {
	for _, h := range c.Hooks {
		if h == hook {
			return true
		}
	}
	return false
}

// ExtensionsHeader renders the enabled extensions as the
// Tus-Extension response header value.
func (c Config) ExtensionsHeader() string {
	names := make([]string, len(c.Extensions))
	for i, e := range c.Extensions {
		names[i] = string(e)
	}
	return strings.Join(names, ",")
}

// normalizedBasePath strips any trailing slash so path construction
// can always append "/<id>" without doubling slashes.
func (c Config) normalizedBasePath() string {
	return strings.TrimRight(c.BasePath, "/")
}
