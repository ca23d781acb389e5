package events

// JobEvent is emitted on every ledger transition a reconciliation applies.
type JobEvent struct {
	JobID    string `json:"job_id"`
	ItemID   string `json:"item_id"`
	Kind     string `json:"kind"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`
}
