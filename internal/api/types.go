package api

import "github.com/mattjoyce/msgwebhook/internal/store"

// StatusResponse is returned by the health probes.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// MessageItem is one entry of GET /messages.
type MessageItem struct {
	MessageID  string  `json:"message_id"`
	FromMSISDN string  `json:"from_msisdn"`
	ToMSISDN   string  `json:"to_msisdn"`
	TS         string  `json:"ts"`
	Text       *string `json:"text"`
}

// MessagesResponse is returned by GET /messages
type MessagesResponse struct {
	Data   []MessageItem `json:"data"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// StatsResponse is returned by GET /stats.
type StatsResponse struct {
	TotalMessages     int                 `json:"total_messages"`
	SendersCount      int                 `json:"senders_count"`
	MessagesPerSender []store.SenderCount `json:"messages_per_sender"`
	FirstMessageTS    *string             `json:"first_message_ts"`
	LastMessageTS     *string             `json:"last_message_ts"`
}
