package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectAll(t *testing.T, c *Collector) []*dto.Metric {
	t.Helper()
	ch := make(chan prometheus.Metric, 16)
	c.Collect(ch)
	close(ch)

	var out []*dto.Metric
	for m := range ch {
		pb := &dto.Metric{}
		require.NoError(t, m.Write(pb))
		out = append(out, pb)
	}
	return out
}

func TestCollectorCounters(t *testing.T) {
	c := New()
	c.RequestReceived("POST")
	c.RequestReceived("POST")
	c.RequestReceived("PATCH")
	c.ErrorOccurred(409, "upload offset mismatch")
	c.BytesReceived(1024)
	c.BytesReceived(512)
	c.UploadCreated()
	c.UploadFinished()
	c.UploadTerminated()

	metrics := collectAll(t, c)

	var foundPOST, foundBytes bool
	for _, m := range metrics {
		for _, lbl := range m.GetLabel() {
			if lbl.GetName() == "method" && lbl.GetValue() == "POST" {
				assert.Equal(t, float64(2), m.GetCounter().GetValue())
				foundPOST = true
			}
		}
		if m.GetCounter() != nil && len(m.GetLabel()) == 0 && m.GetCounter().GetValue() == 1536 {
			foundBytes = true
		}
	}
	assert.True(t, foundPOST, "expected a requests_total sample labeled method=POST")
	assert.True(t, foundBytes, "expected bytes_received to equal 1536")
}

func TestCollectorDescribe(t *testing.T) {
	c := New()
	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)

	var count int
	for range ch {
		count++
	}
	assert.Equal(t, 6, count)
}
