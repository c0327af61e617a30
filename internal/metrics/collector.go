// Package metrics keeps in-process request counters and a latency
// histogram and renders them in the Prometheus text exposition format.
package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Result is the outcome of one webhook delivery.
type Result string

const (
	ResultCreated          Result = "created"
	ResultDuplicate        Result = "duplicate"
	ResultInvalidSignature Result = "invalid_signature"
	ResultValidationError  Result = "validation_error"
	ResultError            Result = "error"
)

// latencyBuckets are the finite histogram upper bounds in milliseconds.
var latencyBuckets = []float64{100, 500}

type httpKey struct {
	path   string
	status int
}

// Collector is safe for concurrent use. Create one per process and pass
// it to the handlers that record into it.
type Collector struct {
	mu      sync.Mutex
	http    map[httpKey]uint64
	webhook map[Result]uint64
	// buckets[i] counts observations <= latencyBuckets[i].
	buckets  []uint64
	observed uint64
}

func NewCollector() *Collector {
	return &Collector{
		http:    make(map[httpKey]uint64),
		webhook: make(map[Result]uint64),
		buckets: make([]uint64, len(latencyBuckets)),
	}
}

func (c *Collector) RecordHTTPRequest(path string, status int) {
	c.mu.Lock()
	c.http[httpKey{path: path, status: status}]++
	c.mu.Unlock()
}

func (c *Collector) RecordWebhookResult(result Result) {
	c.mu.Lock()
	c.webhook[result]++
	c.mu.Unlock()
}

// RecordLatency adds one observation in milliseconds.
func (c *Collector) RecordLatency(ms float64) {
	c.mu.Lock()
	for i, le := range latencyBuckets {
		if ms <= le {
			c.buckets[i]++
		}
	}
	c.observed++
	c.mu.Unlock()
}

// ExportText renders every series. Output is sorted so it is stable
// between calls with the same state.
func (c *Collector) ExportText() string {
	c.mu.Lock()
	httpKeys := make([]httpKey, 0, len(c.http))
	for k := range c.http {
		httpKeys = append(httpKeys, k)
	}
	httpCounts := make(map[httpKey]uint64, len(c.http))
	for k, v := range c.http {
		httpCounts[k] = v
	}
	results := make([]Result, 0, len(c.webhook))
	webhookCounts := make(map[Result]uint64, len(c.webhook))
	for k, v := range c.webhook {
		results = append(results, k)
		webhookCounts[k] = v
	}
	bucketCounts := append([]uint64(nil), c.buckets...)
	observed := c.observed
	c.mu.Unlock()

	sort.Slice(httpKeys, func(i, j int) bool {
		if httpKeys[i].path != httpKeys[j].path {
			return httpKeys[i].path < httpKeys[j].path
		}
		return httpKeys[i].status < httpKeys[j].status
	})
	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })

	var b strings.Builder
	b.WriteString("# TYPE http_requests_total counter\n")
	for _, k := range httpKeys {
		fmt.Fprintf(&b, "http_requests_total{path=%q,status=\"%d\"} %d\n", k.path, k.status, httpCounts[k])
	}
	b.WriteString("# TYPE webhook_requests_total counter\n")
	for _, r := range results {
		fmt.Fprintf(&b, "webhook_requests_total{result=%q} %d\n", string(r), webhookCounts[r])
	}
	b.WriteString("# TYPE request_latency_ms histogram\n")
	for i, le := range latencyBuckets {
		fmt.Fprintf(&b, "request_latency_ms_bucket{le=%q} %d\n", strconv.FormatFloat(le, 'f', -1, 64), bucketCounts[i])
	}
	fmt.Fprintf(&b, "request_latency_ms_bucket{le=\"+Inf\"} %d\n", observed)
	fmt.Fprintf(&b, "request_latency_ms_count %d\n", observed)
	return b.String()
}
