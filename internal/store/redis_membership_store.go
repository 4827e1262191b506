package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/devrev/pairdb/placement/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisMembershipStore implements MembershipStore with a single Redis hash:
// one field per node ID holding the JSON encoded node.
type RedisMembershipStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisMembershipStore creates a new Redis membership store
func NewRedisMembershipStore(host string, port int, password string, db int, key string, logger *zap.Logger) (*RedisMembershipStore, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisMembershipStore{
		client: client,
		key:    key,
		logger: logger,
	}, nil
}

// ListStorageNodes retrieves all storage nodes
func (s *RedisMembershipStore) ListStorageNodes(ctx context.Context) ([]*model.StorageNode, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list storage nodes: %w", err)
	}

	nodes := make([]*model.StorageNode, 0, len(fields))
	for nodeID, data := range fields {
		var node model.StorageNode
		if err := json.Unmarshal([]byte(data), &node); err != nil {
			// malformed entries are skipped, not fatal
			s.logger.Warn("Skipping malformed storage node entry",
				zap.String("node_id", nodeID),
				zap.Error(err))
			continue
		}
		node.NodeID = nodeID
		nodes = append(nodes, &node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].NodeID < nodes[j].NodeID })

	return nodes, nil
}

// AddStorageNode registers or replaces a storage node
func (s *RedisMembershipStore) AddStorageNode(ctx context.Context, node *model.StorageNode) error {
	data, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("failed to marshal storage node: %w", err)
	}

	return s.client.HSet(ctx, s.key, node.NodeID, data).Err()
}

// RemoveStorageNode removes a storage node
func (s *RedisMembershipStore) RemoveStorageNode(ctx context.Context, nodeID string) error {
	removed, err := s.client.HDel(ctx, s.key, nodeID).Result()
	if err != nil {
		return fmt.Errorf("failed to remove storage node %s: %w", nodeID, err)
	}
	if removed == 0 {
		return fmt.Errorf("storage node %s: %w", nodeID, ErrNotFound)
	}
	return nil
}

// Ping checks the Redis connection
func (s *RedisMembershipStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (s *RedisMembershipStore) Close() error {
	return s.client.Close()
}
