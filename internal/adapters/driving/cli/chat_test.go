package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
)

func TestChatCmd_Use(t *testing.T) {
	assert.Equal(t, "chat", chatCmd.Use)
	assert.Contains(t, chatCmd.Aliases, "tui")
	assert.Contains(t, chatCmd.Long, "Ctrl+L")
}

func TestChatCmd_HasRetrieveFlags(t *testing.T) {
	for _, name := range []string{"k", "mode", "strategy", "collection"} {
		assert.NotNil(t, chatCmd.Flags().Lookup(name), name)
	}
}

func TestChatCmd_NoAskService(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	askService = nil

	_, err := execute(t, "chat")

	assert.EqualError(t, err, "ask service not configured")
}

func TestChatCmd_InvalidMode(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "chat", "--mode", "semantic")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
