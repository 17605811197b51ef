package gateway

// SubscribeMsg is sent by clients to add (SUBSCRIBE) or drop (UNSUBSCRIBE)
// symbols from their feed.
type SubscribeMsg struct {
	Type    string   `json:"type"`
	ReqID   string   `json:"req_id,omitempty"`
	Symbols []string `json:"symbols"`
}

// SubscribedMsg acknowledges a subscription change with the resulting set.
// An empty set means the client receives every symbol.
type SubscribedMsg struct {
	Type    string   `json:"type"`
	ReqID   string   `json:"req_id,omitempty"`
	Symbols []string `json:"symbols"`
}

// StatusMsg is broadcast periodically with the forex session status.
type StatusMsg struct {
	Type         string `json:"type"`
	Clients      int    `json:"clients"`
	MarketOpen   bool   `json:"marketOpen"`
	MarketStatus string `json:"marketStatus"`
	TS           string `json:"ts"`
}

// ErrorResponse is sent to a client when a request fails.
type ErrorResponse struct {
	Type  string `json:"type"`
	ReqID string `json:"req_id,omitempty"`
	Error string `json:"error"`
}
