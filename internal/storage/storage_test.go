package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zencounsel/counsel-api/internal/config"
)

func TestOpenMemory(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: config.DriverMemory}}

	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer s.Close()

	assert.NotNil(t, s.Appointments)
	assert.NotNil(t, s.Counsellors)
	assert.NotNil(t, s.Consultations)
	assert.NotNil(t, s.Assessments)
	assert.NotNil(t, s.Seekers)
	assert.NotNil(t, s.Outbox)
	assert.Empty(t, s.Checks)
	assert.False(t, s.Shared())
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{Store: config.StoreConfig{Driver: "sqlite"}})
	assert.Error(t, err)
}
