package store

import (
	"context"
	"errors"

	"github.com/devrev/pairdb/placement/internal/model"
)

// ErrNotFound is returned when a storage node is not registered
var ErrNotFound = errors.New("not found")

// MembershipStore is the source of truth for which storage nodes exist.
// It holds membership only; ring positions are always recomputed locally.
type MembershipStore interface {
	// ListStorageNodes returns registered nodes sorted by node ID
	ListStorageNodes(ctx context.Context) ([]*model.StorageNode, error)
	AddStorageNode(ctx context.Context, node *model.StorageNode) error
	RemoveStorageNode(ctx context.Context, nodeID string) error

	// Health check
	Ping(ctx context.Context) error
	Close() error
}
