package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMCPServeCmd_PortFlag(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "p", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
}

func TestMCPServeCmd_Long(t *testing.T) {
	assert.Contains(t, mcpServeCmd.Long, "find_procedure")
	assert.Contains(t, mcpServeCmd.Long, "procedure://{proc_id}")
}

func TestMCPServeCmd_NoRetrievalService(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	retrievalService = nil

	_, err := execute(t, "mcp", "serve")

	assert.EqualError(t, err, "retrieval service not configured")
}
