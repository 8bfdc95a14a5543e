package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/fanrelay/internal/model"
	"github.com/m3rciful/fanrelay/internal/storage"
	"github.com/m3rciful/fanrelay/internal/storage/storagetest"
)

func TestContract(t *testing.T) {
	storagetest.Run(t, func(*testing.T) storage.Store { return New() })
}

func TestInteractionsRequireKnownUser(t *testing.T) {
	s := New()
	ctx := context.Background()
	assert.Error(t, s.LogInteraction(ctx, 1, "orphan"))

	require.NoError(t, s.UpsertUser(ctx, model.User{TelegramID: 1, Username: "a", ChatID: 1}))
	require.NoError(t, s.LogInteraction(ctx, 1, "handshake"))
	log := s.Interactions()
	require.Len(t, log, 1)
	assert.Equal(t, "handshake", log[0].Message)
}
