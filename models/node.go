package models

// NodeStatus is the confirmation state of a block.
type NodeStatus string

const (
	StatusConfirmed NodeStatus = "confirmed"
	StatusPending   NodeStatus = "pending"
	StatusOrphaned  NodeStatus = "orphaned"
)

// Valid reports whether s is one of the known statuses.
func (s NodeStatus) Valid() bool {
	switch s {
	case StatusConfirmed, StatusPending, StatusOrphaned:
		return true
	}
	return false
}

// Node is one block of the DAG as delivered by the block source.
type Node struct {
	ID               string     `json:"id"`                // unique id
	Label            string     `json:"label"`             // display label
	Level            int        `json:"level"`             // DAG depth, 0 for genesis
	Timestamp        int64      `json:"timestamp"`         // unix timestamp in ms
	ValidatorID      string     `json:"validator_id"`      // producing validator
	TransactionCount int        `json:"transaction_count"` // transactions in the block
	Status           NodeStatus `json:"status"`
	Hash             string     `json:"hash,omitempty"`
	ParentHashes     []string   `json:"parent_hashes"` // parent node IDs
}

// Edge is a directed parent -> child link.
type Edge struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	Color string  `json:"color,omitempty"`
	Width float64 `json:"width,omitempty"`
}

// Snapshot is a complete replacement of the DAG contents.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}
