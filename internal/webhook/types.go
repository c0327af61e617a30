package webhook

import (
	"context"

	"github.com/mattjoyce/msgwebhook/internal/message"
	"github.com/mattjoyce/msgwebhook/internal/metrics"
	"github.com/mattjoyce/msgwebhook/internal/store"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks github.com/mattjoyce/msgwebhook/internal/webhook MessageStore

// MessageStore is the write side the handler needs from the store.
type MessageStore interface {
	Insert(ctx context.Context, msg message.Message) (store.InsertResult, error)
}

// Recorder receives the per-request metric events.
type Recorder interface {
	RecordHTTPRequest(path string, status int)
	RecordWebhookResult(result metrics.Result)
	RecordLatency(ms float64)
}

// Config holds webhook endpoint configuration.
type Config struct {
	// Path labels metrics and log lines (default: "/webhook").
	Path string

	// Secret is the HMAC secret for signature verification. When empty
	// every delivery is rejected as unsigned.
	Secret string

	// SignatureHeader carries the hex HMAC (default: "X-Signature").
	SignatureHeader string

	// MaxBodySize is the maximum allowed request body size in bytes (default: 1MB).
	MaxBodySize int64
}

// StatusResponse is the JSON body for accepted deliveries.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the JSON body for rejected deliveries.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Default values
const (
	DefaultPath            = "/webhook"
	DefaultSignatureHeader = "X-Signature"
	DefaultMaxBodySize     = 1048576 // 1 MB
)
