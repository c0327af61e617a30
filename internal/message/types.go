package message

// MaxTextLength is the maximum number of characters allowed in Message.Text.
const MaxTextLength = 4096

// Message is a single inbound message event.
type Message struct {
	ID         string  `json:"message_id"`
	FromMSISDN string  `json:"from_msisdn"`
	ToMSISDN   string  `json:"to_msisdn"`
	TS         string  `json:"ts"`
	Text       *string `json:"text"`
	// CreatedAt is assigned by the store on first insert.
	CreatedAt string `json:"-"`
}

// envelope is the wire shape of the webhook body. Pointers distinguish
// missing fields from empty ones.
type envelope struct {
	MessageID *string `json:"message_id"`
	From      *string `json:"from"`
	To        *string `json:"to"`
	TS        *string `json:"ts"`
	Text      *string `json:"text"`
}
