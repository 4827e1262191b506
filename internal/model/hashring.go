package model

// StorageNode represents a physical storage node known to the membership source
type StorageNode struct {
	NodeID string     `json:"node_id"`
	Host   string     `json:"host"`
	Port   int        `json:"port"`
	Status NodeStatus `json:"status"`
}

// NodeStatus represents the status of a storage node
type NodeStatus string

const (
	// NodeStatusActive indicates node is active and owns ring points
	NodeStatusActive NodeStatus = "active"
	// NodeStatusDraining indicates node is leaving and no longer receives placements
	NodeStatusDraining NodeStatus = "draining"
	// NodeStatusInactive indicates node is inactive
	NodeStatusInactive NodeStatus = "inactive"
)

// IsActive reports whether the node should be placed on the ring
func (n *StorageNode) IsActive() bool {
	return n.Status == NodeStatusActive
}

// RingPoint is one virtual node: a ring position and the node owning it
type RingPoint struct {
	Position string `json:"position"`
	Owner    string `json:"owner"`
}

// RingInfo is a diagnostic snapshot of a hash ring
type RingInfo struct {
	VirtualPoints int      `json:"total_virtual_nodes"`
	PhysicalNodes int      `json:"physical_nodes"`
	Replicas      int      `json:"replicas_per_node"`
	Positions     []string `json:"sorted_keys"`
}
