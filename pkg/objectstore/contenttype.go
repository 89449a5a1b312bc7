package objectstore

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/tusrelay/tusrelay/pkg/upload"
)

var mimeInlinePrefixes = []string{"image/", "text/", "audio/", "video/"}
var mimeInlineExact = map[string]bool{
	"application/javascript": true,
	"application/json":       true,
	"application/wasm":       true,
}

// contentTypeAndDisposition mirrors filestore's helper of the same
// name; kept as a small unexported duplicate rather than an exported
// shared dependency so that objectstore and filestore remain
// independently usable DataStore packages with no import cycle risk.
func contentTypeAndDisposition(info upload.FileInfo) (string, string) {
	filename := info.Filename()
	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	disposition := "attachment"
	base := strings.SplitN(contentType, ";", 2)[0]
	if mimeInlineExact[base] {
		disposition = "inline"
	}
	for _, prefix := range mimeInlinePrefixes {
		if strings.HasPrefix(base, prefix) {
			disposition = "inline"
			break
		}
	}

	return contentType, disposition + `; filename="` + filename + `"`
}
