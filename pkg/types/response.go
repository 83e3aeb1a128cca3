package types

import "time"

// SendResponse is what a delivery provider (webhook endpoint, mail API)
// reports back after an attempt.
type SendResponse struct {
	Provider    string
	ProviderID  string
	Status      string
	RawResponse []byte
	Timestamp   time.Time
}
