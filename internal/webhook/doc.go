// Package webhook implements the signed message ingestion endpoint.
//
// Senders POST a JSON message and sign the raw body with HMAC-SHA256 using
// a pre-shared secret. The hex digest travels in the signature header
// (X-Signature by default, optionally prefixed with "sha256=").
//
// # Request Flow
//
//  1. Body read, capped at MaxBodySize (400 if unreadable or too large)
//  2. Signature verified in constant time (401 on mismatch or absence)
//  3. Payload validated by package message (422 with the rule text)
//  4. Message inserted if absent (200 for both created and duplicate)
//  5. Store faults answer 500 with a generic detail; the cause is only logged
//
// Every request produces one http_requests_total sample, one latency sample
// and one structured "request" log line. All outcomes except an unreadable
// body also produce a webhook_requests_total sample.
//
// # Example Usage
//
//	h := webhook.NewHandler(webhook.Config{
//		Secret:          os.Getenv("WEBHOOK_SECRET"),
//		SignatureHeader: "X-Signature",
//	}, st, collector, logger)
//	router.Method(http.MethodPost, "/webhook", h)
package webhook
