package amqp

import (
	"encoding/json"
	"time"
)

// RebuildRequest asks the worker to rebuild the daily summary. The worker
// always rebuilds from the live grid, so the message carries provenance only.
type RebuildRequest struct {
	Reason      string    `json:"reason"`
	RequestedBy string    `json:"requested_by"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewRebuildRequest(reason, requestedBy string) *RebuildRequest {
	return &RebuildRequest{
		Reason:      reason,
		RequestedBy: requestedBy,
		Timestamp:   time.Now(),
	}
}

func (m *RebuildRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RebuildRequestFromJSON(data []byte) (*RebuildRequest, error) {
	var msg RebuildRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
