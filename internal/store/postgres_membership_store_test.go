package store

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnString_ParsesAsPoolConfig(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{name: "plain password", password: "secret"},
		{name: "empty password", password: ""},
		{name: "password with space", password: "p w"},
		{name: "password with reserved characters", password: `it's@a/b:c?d#e\f`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := pgxpool.ParseConfig(connString("db.internal", 5433, "pairdb_metadata", "placement", tt.password, 12, 3))
			require.NoError(t, err)

			assert.Equal(t, "db.internal", cfg.ConnConfig.Host)
			assert.Equal(t, uint16(5433), cfg.ConnConfig.Port)
			assert.Equal(t, "pairdb_metadata", cfg.ConnConfig.Database)
			assert.Equal(t, "placement", cfg.ConnConfig.User)
			assert.Equal(t, tt.password, cfg.ConnConfig.Password)
			assert.Equal(t, int32(12), cfg.MaxConns)
			assert.Equal(t, int32(3), cfg.MinConns)
		})
	}
}
