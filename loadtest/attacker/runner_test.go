package attacker

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vegeta "github.com/tsenart/vegeta/v12/lib"
)

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "GET /kvs", endpoint("GET", "http://localhost:8080/kvs/k000001"))
	assert.Equal(t, "PUT /kvs", endpoint("PUT", "http://localhost:8080/kvs/k000002"))
	assert.Equal(t, "GET /badges", endpoint("GET", "http://localhost:8080/badges"))
}

func TestSummarize(t *testing.T) {
	now := time.Now()
	results := make(chan *vegeta.Result, 4)
	results <- &vegeta.Result{Method: "GET", URL: "http://x/kvs/a", Code: 200, Timestamp: now, Latency: time.Millisecond}
	results <- &vegeta.Result{Method: "GET", URL: "http://x/kvs/b", Code: 404, Timestamp: now, Latency: time.Millisecond}
	results <- &vegeta.Result{Method: "PUT", URL: "http://x/kvs/a", Code: 500, Timestamp: now, Latency: time.Millisecond}
	results <- &vegeta.Result{Method: "GET", URL: "http://x/badges", Code: 200, Timestamp: now, Latency: time.Millisecond}
	close(results)

	var buf bytes.Buffer
	s, err := Summarize(results, &buf)
	require.NoError(t, err)

	assert.Equal(t, uint64(4), s.Requests)
	assert.Equal(t, EndpointSummary{Requests: 2}, s.Endpoints["GET /kvs"])
	assert.Equal(t, EndpointSummary{Requests: 1, Failures: 1}, s.Endpoints["PUT /kvs"])
	assert.Equal(t, EndpointSummary{Requests: 1}, s.Endpoints["GET /badges"])
	assert.NotZero(t, buf.Len())
}
