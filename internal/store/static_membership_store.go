package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/devrev/pairdb/placement/internal/model"
)

// StaticMembershipStore implements MembershipStore in memory
type StaticMembershipStore struct {
	nodes map[string]*model.StorageNode
	mu    sync.RWMutex
}

// NewStaticMembershipStore creates a store holding the given node IDs as active nodes
func NewStaticMembershipStore(nodeIDs []string) *StaticMembershipStore {
	s := &StaticMembershipStore{
		nodes: make(map[string]*model.StorageNode, len(nodeIDs)),
	}
	for _, id := range nodeIDs {
		s.nodes[id] = &model.StorageNode{NodeID: id, Status: model.NodeStatusActive}
	}
	return s
}

// ListStorageNodes returns copies of the registered nodes
func (s *StaticMembershipStore) ListStorageNodes(ctx context.Context) ([]*model.StorageNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]*model.StorageNode, 0, len(s.nodes))
	for _, node := range s.nodes {
		n := *node
		nodes = append(nodes, &n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].NodeID < nodes[j].NodeID })

	return nodes, nil
}

// AddStorageNode registers or replaces a node
func (s *StaticMembershipStore) AddStorageNode(ctx context.Context, node *model.StorageNode) error {
	if node == nil || node.NodeID == "" {
		return fmt.Errorf("storage node requires a node ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := *node
	s.nodes[node.NodeID] = &n
	return nil
}

// RemoveStorageNode unregisters a node
func (s *StaticMembershipStore) RemoveStorageNode(ctx context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[nodeID]; !exists {
		return fmt.Errorf("storage node %s: %w", nodeID, ErrNotFound)
	}
	delete(s.nodes, nodeID)
	return nil
}

// Ping always succeeds
func (s *StaticMembershipStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (s *StaticMembershipStore) Close() error {
	return nil
}
