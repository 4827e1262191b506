package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/devrev/pairdb/placement/internal/algorithm"
	"github.com/devrev/pairdb/placement/internal/hashtable"
	"github.com/devrev/pairdb/placement/internal/metrics"
	"github.com/devrev/pairdb/placement/internal/model"
	"github.com/devrev/pairdb/placement/internal/store"
	"go.uber.org/zap"
)

var (
	// ErrNoOwner is returned when the ring has no nodes
	ErrNoOwner = errors.New("hash ring is empty")
	// ErrInsufficientNodes is returned when fewer distinct nodes exist than requested
	ErrInsufficientNodes = errors.New("insufficient storage nodes")
)

// PlacementService keeps a hash ring in sync with a membership store and
// resolves keys to storage nodes
type PlacementService struct {
	membership      store.MembershipStore
	ring            *algorithm.HashRing
	directory       *hashtable.Table[*model.StorageNode]
	metrics         *metrics.Metrics
	refreshInterval time.Duration
	mu              sync.RWMutex
	logger          *zap.Logger
}

// NewPlacementService creates a new placement service around ring
func NewPlacementService(
	membership store.MembershipStore,
	ring *algorithm.HashRing,
	m *metrics.Metrics,
	refreshInterval time.Duration,
	logger *zap.Logger,
) *PlacementService {
	return &PlacementService{
		membership:      membership,
		ring:            ring,
		directory:       hashtable.New[*model.StorageNode](hashtable.DefaultCapacity, hashtable.DefaultLoadFactor),
		metrics:         m,
		refreshInterval: refreshInterval,
		logger:          logger,
	}
}

// GetOwner returns the storage node owning key
func (s *PlacementService) GetOwner(ctx context.Context, key string) (*model.StorageNode, error) {
	start := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	nodeID, ok := s.ring.GetNode(key)
	if !ok {
		s.metrics.RecordLookup("get_owner", metrics.ResultEmpty, time.Since(start).Seconds())
		return nil, ErrNoOwner
	}

	node := s.lookupNode(nodeID)
	s.metrics.RecordLookup("get_owner", metrics.ResultHit, time.Since(start).Seconds())

	return node, nil
}

// GetReplicas returns the first n distinct storage nodes clockwise from key
func (s *PlacementService) GetReplicas(ctx context.Context, key string, n int) ([]*model.StorageNode, error) {
	start := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	nodeIDs := s.ring.GetNodes(key, n)
	if len(nodeIDs) < n {
		s.metrics.RecordLookup("get_replicas", metrics.ResultInsufficient, time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: need %d, got %d", ErrInsufficientNodes, n, len(nodeIDs))
	}

	nodes := make([]*model.StorageNode, 0, len(nodeIDs))
	for _, nodeID := range nodeIDs {
		nodes = append(nodes, s.lookupNode(nodeID))
	}

	s.metrics.RecordLookup("get_replicas", metrics.ResultHit, time.Since(start).Seconds())

	s.logger.Debug("Resolved replicas",
		zap.String("key", key),
		zap.Int("requested", n),
		zap.Int("resolved_nodes", len(nodes)))

	return nodes, nil
}

// Run refreshes the ring immediately and then on every tick until ctx is done
func (s *PlacementService) Run(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Error("Failed initial hash ring load", zap.Error(err))
	}

	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Error("Failed to update hash ring", zap.Error(err))
			}
		case <-ctx.Done():
			s.logger.Info("Placement service stopped")
			return nil
		}
	}
}

// Refresh reconciles the ring with the active nodes in the membership store.
// Only joining and leaving nodes touch the ring, so other keys keep their owner.
func (s *PlacementService) Refresh(ctx context.Context) error {
	nodes, err := s.membership.ListStorageNodes(ctx)
	if err != nil {
		s.metrics.RecordRefresh("error")
		return fmt.Errorf("failed to list storage nodes: %w", err)
	}

	active := make(map[string]*model.StorageNode, len(nodes))
	for _, node := range nodes {
		if node.IsActive() {
			active[node.NodeID] = node
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, nodeID := range s.ring.Nodes() {
		if _, ok := active[nodeID]; !ok {
			s.ring.RemoveNode(nodeID)
			s.metrics.RecordMembershipChange("removed")
			removed++
		}
	}
	for _, nodeID := range s.directory.Keys() {
		if _, ok := active[nodeID]; !ok {
			s.directory.Delete(nodeID)
		}
	}

	added := 0
	for _, node := range nodes {
		if !node.IsActive() {
			continue
		}
		if !s.ring.Contains(node.NodeID) {
			s.ring.AddNode(node.NodeID)
			s.metrics.RecordMembershipChange("added")
			added++
		}
		s.directory.Put(node.NodeID, node)
	}

	s.updateRingMetrics()
	s.metrics.RecordRefresh("success")

	s.logger.Info("Hash ring updated",
		zap.Int("total_nodes", len(nodes)),
		zap.Int("active_nodes", len(active)),
		zap.Int("added", added),
		zap.Int("removed", removed))

	return nil
}

// AddNode registers a storage node and places it on the ring if it is active
func (s *PlacementService) AddNode(ctx context.Context, node *model.StorageNode) error {
	if node == nil || node.NodeID == "" {
		return errors.New("storage node requires a node ID")
	}

	if err := s.membership.AddStorageNode(ctx, node); err != nil {
		return fmt.Errorf("failed to register storage node %s: %w", node.NodeID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !node.IsActive() {
		s.removeFromRing(node.NodeID)
		s.updateRingMetrics()
		return nil
	}

	n := *node
	s.directory.Put(n.NodeID, &n)
	if !s.ring.Contains(n.NodeID) {
		s.ring.AddNode(n.NodeID)
		s.metrics.RecordMembershipChange("added")
	}
	s.updateRingMetrics()

	s.logger.Info("Added node to hash ring",
		zap.String("node_id", n.NodeID),
		zap.String("host", n.Host),
		zap.Int("port", n.Port))

	return nil
}

// RemoveNode unregisters a storage node and removes it from the ring.
// Removing an unknown node is not an error.
func (s *PlacementService) RemoveNode(ctx context.Context, nodeID string) error {
	if err := s.membership.RemoveStorageNode(ctx, nodeID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to unregister storage node %s: %w", nodeID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeFromRing(nodeID)
	s.updateRingMetrics()

	s.logger.Info("Removed node from hash ring",
		zap.String("node_id", nodeID))

	return nil
}

// RingInfo returns a diagnostic snapshot of the ring
func (s *PlacementService) RingInfo() model.RingInfo {
	return s.ring.Info()
}

// ListNodes returns the storage nodes currently on the ring, sorted by node ID
func (s *PlacementService) ListNodes() []*model.StorageNode {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodeIDs := s.ring.Nodes()
	nodes := make([]*model.StorageNode, 0, len(nodeIDs))
	for _, nodeID := range nodeIDs {
		nodes = append(nodes, s.lookupNode(nodeID))
	}
	return nodes
}

// lookupNode resolves a ring owner to a copy of its directory entry.
// Callers must hold s.mu.
func (s *PlacementService) lookupNode(nodeID string) *model.StorageNode {
	if node, ok := s.directory.Get(nodeID); ok {
		n := *node
		return &n
	}
	return &model.StorageNode{NodeID: nodeID, Status: model.NodeStatusActive}
}

// removeFromRing drops a node from the ring and directory. Callers must hold s.mu.
func (s *PlacementService) removeFromRing(nodeID string) {
	if s.ring.Contains(nodeID) {
		s.ring.RemoveNode(nodeID)
		s.metrics.RecordMembershipChange("removed")
	}
	s.directory.Delete(nodeID)
}

func (s *PlacementService) updateRingMetrics() {
	info := s.ring.Info()
	s.metrics.UpdateRingSize(info.VirtualPoints, info.PhysicalNodes)
}
