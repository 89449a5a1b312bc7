package upload

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64ptr(v int64) *int64 { return &v }

func TestFileInfoSizeIsDeferred(t *testing.T) {
	assert.True(t, FileInfo{}.SizeIsDeferred())
	assert.False(t, FileInfo{Length: int64ptr(10)}.SizeIsDeferred())
}

func TestFileInfoIsComplete(t *testing.T) {
	assert.False(t, FileInfo{}.IsComplete())
	assert.False(t, FileInfo{Length: int64ptr(10), Offset: 5}.IsComplete())
	assert.True(t, FileInfo{Length: int64ptr(10), Offset: 10}.IsComplete())
}

func TestFileInfoBytesRemaining(t *testing.T) {
	assert.EqualValues(t, -1, FileInfo{}.BytesRemaining())
	assert.EqualValues(t, 4, FileInfo{Length: int64ptr(10), Offset: 6}.BytesRemaining())
}

func TestFileInfoFilename(t *testing.T) {
	assert.Equal(t, "abc", FileInfo{ID: "abc"}.Filename())
	assert.Equal(t, "report.pdf", FileInfo{ID: "abc", MetaData: MetaData{"filename": "report.pdf"}}.Filename())
	assert.Equal(t, "report.pdf", FileInfo{ID: "abc", MetaData: MetaData{"name": "report.pdf"}}.Filename())
}

func TestFileInfoJSONStoresCreatedAtAsUnixSeconds(t *testing.T) {
	when := time.Date(2026, time.March, 5, 9, 7, 0, 0, time.UTC)
	info := FileInfo{ID: "abc", CreatedAt: when}

	raw, err := json.Marshal(info)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.EqualValues(t, when.Unix(), decoded["created_at"])

	var roundTripped FileInfo
	require.NoError(t, json.Unmarshal(raw, &roundTripped))
	assert.True(t, when.Equal(roundTripped.CreatedAt))
}
