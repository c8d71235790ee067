package request

import "encoding/json"

// GatewayWebhookRequest is the payment gateway's delivery envelope.
type GatewayWebhookRequest struct {
	EventID     string          `json:"event_id" binding:"required"`
	Kind        string          `json:"kind" binding:"required"`
	ProviderRef string          `json:"provider_ref"`
	AmountCents int64           `json:"amount_cents"`
	Currency    string          `json:"currency"`
	Data        json.RawMessage `json:"data"`
}
