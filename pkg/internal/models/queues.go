package models

import jsoniter "github.com/json-iterator/go"

// DeliverJobData is the payload of one queued outbound delivery: the sending
// account, a single destination inbox and the rendered activity.
type DeliverJobData struct {
	AccountID uint                `json:"account_id"`
	InboxURI  string              `json:"inbox_uri"`
	Activity  jsoniter.RawMessage `json:"activity"`
}

// SignatureMetadata preserves everything the inbox worker needs to re-run the
// cryptographic verification of an already-gated request.
type SignatureMetadata struct {
	KeyID     string            `json:"key_id"`
	Algorithm string            `json:"algorithm"`
	Method    string            `json:"method"`
	Path      string            `json:"path"`
	Headers   map[string]string `json:"headers"`
}

type InboxJobData struct {
	Signature SignatureMetadata   `json:"signature"`
	Body      jsoniter.RawMessage `json:"body"`
}
