package server

import (
	"net/http"
	"strconv"
	"strings"
)

// serverInfo implements OPTIONS /, advertising enabled extensions,
// supported checksum algorithms and the configured max file size.
func (h *Handler) serverInfo() (response, error) {
	headers := header{
		"Tus-Version":   tusResumableVersion,
		"Tus-Extension": h.Config.ExtensionsHeader(),
	}

	if h.Config.HasExtension(ExtensionChecksum) {
		headers["Tus-Checksum-Algorithm"] = strings.Join([]string{"md5", "sha1", "sha256", "sha512"}, ",")
	}

	if h.Config.MaxFileSize > 0 {
		headers["Tus-Max-Size"] = strconv.FormatInt(h.Config.MaxFileSize, 10)
	}

	return response{StatusCode: http.StatusNoContent, Header: headers}, nil
}
