package models

import (
	"time"
)

// Message is the normalized email envelope accepted by every send backend.
// It is constructed once per request and never mutated after construction.
type Message struct {
	ID      string   `json:"id"`
	From    string   `json:"from"`
	To      []string `json:"to"`
	CC      []string `json:"cc,omitempty"`
	BCC     []string `json:"bcc,omitempty"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	HTML    bool     `json:"html"`

	// UserID identifies the tenant whose credentials should be used.
	// Empty for single-tenant sends using the shared configuration.
	UserID string `json:"user_id,omitempty"`
}

// Recipients returns every envelope recipient (To + CC + BCC).
func (m *Message) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.CC)+len(m.BCC))
	out = append(out, m.To...)
	out = append(out, m.CC...)
	out = append(out, m.BCC...)
	return out
}

type SendStatus string

const (
	SendStatusSuccess SendStatus = "success"
	SendStatusFailed  SendStatus = "failed"
)

// Error kinds carried on a failed SendResult. Callers branch on the kind,
// never on the error text.
const (
	ErrorKindNotConnected = "not_connected"
	ErrorKindConfig       = "configuration"
	ErrorKindSend         = "send"
)

// SendResult is the normalized outcome of one send attempt. Backends always
// return a result, never an error; failures are data.
type SendResult struct {
	Status    SendStatus `json:"status"`
	Provider  string     `json:"provider"`
	MessageID string     `json:"message_id,omitempty"`
	Error     string     `json:"error,omitempty"`
	ErrorKind string     `json:"error_kind,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Succeeded reports whether the send attempt completed.
func (r *SendResult) Succeeded() bool {
	return r.Status == SendStatusSuccess
}
