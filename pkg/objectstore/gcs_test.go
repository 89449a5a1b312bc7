package objectstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tusrelay/tusrelay/pkg/upload"
)

func TestGCSRemoteKey(t *testing.T) {
	when := time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC)
	info := upload.FileInfo{ID: "abc123", CreatedAt: when}

	plain := NewGCSRemote(nil, "bucket", "", nil, "")
	assert.Equal(t, "abc123", plain.Key(info))

	withPrefix := NewGCSRemote(nil, "bucket", "{year}/{month}", nil, "uploads")
	assert.Equal(t, "uploads/2026/03/abc123", withPrefix.Key(info))
}

func TestGCSRemoteSupportsConcat(t *testing.T) {
	r := NewGCSRemote(nil, "bucket", "", nil, "")
	assert.True(t, r.SupportsConcat())
}
