package store

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/devrev/pairdb/placement/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresMembershipStore implements MembershipStore for PostgreSQL
type PostgresMembershipStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresMembershipStore creates a new PostgreSQL membership store
func NewPostgresMembershipStore(
	ctx context.Context,
	host string,
	port int,
	database, user, password string,
	maxConns, minConns int,
	logger *zap.Logger,
) (*PostgresMembershipStore, error) {
	config, err := pgxpool.ParseConfig(connString(host, port, database, user, password, maxConns, minConns))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to membership database",
		zap.String("host", host),
		zap.Int("port", port),
		zap.String("database", database))

	return &PostgresMembershipStore{
		pool:   pool,
		logger: logger,
	}, nil
}

// connString builds a postgres:// URL so credentials are escaped rather than
// split on whitespace
func connString(host string, port int, database, user, password string, maxConns, minConns int) string {
	query := url.Values{}
	query.Set("pool_max_conns", strconv.Itoa(maxConns))
	query.Set("pool_min_conns", strconv.Itoa(minConns))

	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		Path:     "/" + database,
		RawQuery: query.Encode(),
	}
	return u.String()
}

// ListStorageNodes retrieves all storage nodes
func (s *PostgresMembershipStore) ListStorageNodes(ctx context.Context) ([]*model.StorageNode, error) {
	query := `
		SELECT node_id, host, port, status
		FROM storage_nodes
		ORDER BY node_id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list storage nodes: %w", err)
	}
	defer rows.Close()

	nodes := make([]*model.StorageNode, 0)
	for rows.Next() {
		var node model.StorageNode
		if err := rows.Scan(&node.NodeID, &node.Host, &node.Port, &node.Status); err != nil {
			return nil, fmt.Errorf("failed to scan storage node: %w", err)
		}
		nodes = append(nodes, &node)
	}

	return nodes, rows.Err()
}

// AddStorageNode registers a storage node, updating it if it already exists
func (s *PostgresMembershipStore) AddStorageNode(ctx context.Context, node *model.StorageNode) error {
	query := `
		INSERT INTO storage_nodes (node_id, host, port, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (node_id) DO UPDATE
		SET host = EXCLUDED.host, port = EXCLUDED.port, status = EXCLUDED.status, updated_at = NOW()
	`

	_, err := s.pool.Exec(ctx, query,
		node.NodeID,
		node.Host,
		node.Port,
		node.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to add storage node %s: %w", node.NodeID, err)
	}

	return nil
}

// RemoveStorageNode removes a storage node
func (s *PostgresMembershipStore) RemoveStorageNode(ctx context.Context, nodeID string) error {
	query := `DELETE FROM storage_nodes WHERE node_id = $1`
	result, err := s.pool.Exec(ctx, query, nodeID)
	if err != nil {
		return fmt.Errorf("failed to remove storage node %s: %w", nodeID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("storage node %s: %w", nodeID, ErrNotFound)
	}

	return nil
}

// Ping checks database connectivity
func (s *PostgresMembershipStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool
func (s *PostgresMembershipStore) Close() error {
	s.pool.Close()
	return nil
}
