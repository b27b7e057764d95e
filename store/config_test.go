package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty URI", mutate: func(c *Config) { c.URI = "" }, wantErr: true},
		{name: "empty username", mutate: func(c *Config) { c.Username = "" }, wantErr: true},
		{name: "empty password", mutate: func(c *Config) { c.Password = "" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.ConnectionTimeout = 0 }, wantErr: true},
		{name: "negative retry", mutate: func(c *Config) { c.MaxTransactionRetryTime = -time.Second }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNeo4jClientNotConnected(t *testing.T) {
	c, err := NewNeo4jClient(DefaultConfig(), nil)
	require.NoError(t, err)

	_, err = c.Query(context.Background(), "RETURN 1", nil)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, c.Execute(context.Background(), "RETURN 1", nil), ErrNotConnected)
	assert.False(t, c.Health(context.Background()).IsHealthy())
	assert.NoError(t, c.Close(context.Background()))

	_, err = NewNeo4jClient(Config{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
