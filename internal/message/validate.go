package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	msisdnPattern = regexp.MustCompile(`^\+\d+$`)
	tsPattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`)
)

// ValidationError reports the first rule an inbound payload violated.
// Error() is safe to return to the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Validate parses a raw webhook body and checks every field rule.
// On success the returned Message has no CreatedAt.
func Validate(raw []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Message{}, &ValidationError{Reason: fmt.Sprintf("invalid JSON payload: %v", err)}
	}
	// json.Unmarshal accepts a literal null into a struct.
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return Message{}, &ValidationError{Reason: "invalid JSON payload: expected an object"}
	}

	if env.MessageID == nil {
		return Message{}, required("message_id")
	}
	if strings.TrimSpace(*env.MessageID) == "" {
		return Message{}, &ValidationError{Field: "message_id", Reason: "message_id must not be empty"}
	}

	if env.From == nil {
		return Message{}, required("from")
	}
	if !msisdnPattern.MatchString(*env.From) {
		return Message{}, &ValidationError{Field: "from", Reason: "from must be in E.164 format (e.g. +919876543210)"}
	}

	if env.To == nil {
		return Message{}, required("to")
	}
	if !msisdnPattern.MatchString(*env.To) {
		return Message{}, &ValidationError{Field: "to", Reason: "to must be in E.164 format (e.g. +14155550100)"}
	}

	if env.TS == nil {
		return Message{}, required("ts")
	}
	if !tsPattern.MatchString(*env.TS) {
		return Message{}, &ValidationError{Field: "ts", Reason: "ts must be ISO-8601 UTC (e.g. 2025-01-15T10:00:00Z)"}
	}

	if env.Text != nil && utf8.RuneCountInString(*env.Text) > MaxTextLength {
		return Message{}, &ValidationError{Field: "text", Reason: fmt.Sprintf("text must not exceed %d characters", MaxTextLength)}
	}

	return Message{
		ID:         *env.MessageID,
		FromMSISDN: *env.From,
		ToMSISDN:   *env.To,
		TS:         *env.TS,
		Text:       env.Text,
	}, nil
}

func required(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: field + ": field required"}
}
