package entity

import "time"

const (
	TurnOriginUser      = "user"
	TurnOriginAssistant = "assistant"
)

// ChatTurn is one exchange unit in an assistant transcript. Persisted order
// must equal chronological order; timestamps serialize as RFC 3339.
type ChatTurn struct {
	Origin     string     `json:"origin"`
	Text       string     `json:"text"`
	Timestamp  time.Time  `json:"timestamp"`
	VehicleIDs []string   `json:"vehicle_ids,omitempty"`
	Vehicles   []*Vehicle `json:"vehicles,omitempty"`
}

// AssistantReply is the raw result of a remote assistant invocation before
// vehicle enrichment.
type AssistantReply struct {
	Text       string
	VehicleIDs []string
}
