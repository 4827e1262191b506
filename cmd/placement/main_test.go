package main

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/devrev/pairdb/placement/internal/config"
	"github.com/devrev/pairdb/placement/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitLogger(t *testing.T) {
	logger, err := initLogger(config.LoggingConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = initLogger(config.LoggingConfig{Level: "warn", Format: "console"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = initLogger(config.LoggingConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
}

func TestNewMembershipStore_Static(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.HashRing.Nodes = []string{"node-a", "node-b"}

	s, nodes, err := newMembershipStore(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &store.StaticMembershipStore{}, s)
	assert.Equal(t, []string{"node-a", "node-b"}, nodes)

	listed, err := s.ListStorageNodes(context.Background())
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestNewMembershipStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.DefaultConfig()
	cfg.Membership.Source = config.MembershipRedis
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port = mustPort(t, mr.Port())
	cfg.HashRing.Nodes = []string{"ignored"}

	s, nodes, err := newMembershipStore(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &store.RedisMembershipStore{}, s)
	assert.Empty(t, nodes)
}

func TestNewMembershipStore_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	port := mustPort(t, mr.Port())
	mr.Close()

	cfg := config.DefaultConfig()
	cfg.Membership.Source = config.MembershipRedis
	cfg.Redis.Host = "127.0.0.1"
	cfg.Redis.Port = port

	_, _, err := newMembershipStore(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func mustPort(t *testing.T, port string) int {
	t.Helper()
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return p
}
