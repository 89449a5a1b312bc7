package filestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpandDirTemplate(t *testing.T) {
	when := time.Date(2026, time.March, 5, 9, 7, 0, 0, time.UTC)
	env := map[string]string{"REGION": "us-east-1"}

	assert.Equal(t, "", ExpandDirTemplate("", when, env))
	assert.Equal(t, "2026/03/05", ExpandDirTemplate("{year}/{month}/{day}", when, env))
	assert.Equal(t, "2026030509", ExpandDirTemplate("{year}{month}{day}{hour}", when, env))
	assert.Equal(t, "us-east-1/2026", ExpandDirTemplate("env[REGION]/{year}", when, env))
	assert.Equal(t, "/2026", ExpandDirTemplate("env[MISSING]/{year}", when, env))
}
