package notify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusrelay/tusrelay/pkg/upload"
)

func sampleMessage() upload.HookMessage {
	length := int64(100)
	return upload.HookMessage{
		Request: upload.RequestInfo{
			URI: "/files/abc", Method: "PATCH", RemoteAddr: "127.0.0.1",
		},
		Upload: upload.FileInfo{
			ID: "abc", Offset: 50, Length: &length,
			MetaData: upload.MetaData{"filename": "report.pdf"},
		},
	}
}

func TestFormatMessageDefault(t *testing.T) {
	raw, err := FormatMessage(FormatDefault, sampleMessage())
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "upload")
	assert.Contains(t, decoded, "request")

	var upl map[string]interface{}
	require.NoError(t, json.Unmarshal(decoded["upload"], &upl))
	assert.Equal(t, "abc", upl["id"])
	assert.EqualValues(t, 50, upl["offset"])
}

func TestFormatMessageV2(t *testing.T) {
	raw, err := FormatMessage(FormatV2, sampleMessage())
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "abc", decoded["id"])
	assert.Equal(t, "/files/abc", decoded["uri"])
	_, hasWrapper := decoded["upload"]
	assert.False(t, hasWrapper)
}

func TestFormatMessageTusd(t *testing.T) {
	raw, err := FormatMessage(FormatTusd, sampleMessage())
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "Upload")
	assert.Contains(t, decoded, "HTTPRequest")

	var upl map[string]interface{}
	require.NoError(t, json.Unmarshal(decoded["Upload"], &upl))
	assert.EqualValues(t, 100, upl["Size"])
}

func TestFormatMessageUnknown(t *testing.T) {
	_, err := FormatMessage(Format("bogus"), sampleMessage())
	assert.Error(t, err)
}
