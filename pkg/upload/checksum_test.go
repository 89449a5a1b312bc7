package upload

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewChecksumHash(t *testing.T) {
	for _, algo := range SupportedChecksumAlgorithms {
		h, ok := NewChecksumHash(algo)
		assert.True(t, ok, algo)
		assert.NotNil(t, h)
	}

	_, ok := NewChecksumHash("crc32")
	assert.False(t, ok)
}

func TestParseChecksumHeader(t *testing.T) {
	digest := sha256.Sum256([]byte("hello"))
	header := "sha256 " + base64.StdEncoding.EncodeToString(digest[:])

	algo, got, ok := ParseChecksumHeader(header)
	assert.True(t, ok)
	assert.Equal(t, "sha256", algo)
	assert.Equal(t, digest[:], got)

	_, _, ok = ParseChecksumHeader("sha256")
	assert.False(t, ok)

	_, _, ok = ParseChecksumHeader("sha256 not-base64!!!")
	assert.False(t, ok)
}

func TestVerifyChecksum(t *testing.T) {
	chunk := []byte("hello")
	digest := sha256.Sum256(chunk)

	assert.NoError(t, VerifyChecksum("sha256", digest[:], chunk))
	assert.ErrorIs(t, VerifyChecksum("sha256", []byte("wrong"), chunk), ErrWrongChecksum)
	assert.ErrorIs(t, VerifyChecksum("crc32", digest[:], chunk), ErrUnknownHashAlgorithm)
}
