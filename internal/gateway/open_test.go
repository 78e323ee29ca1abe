package gateway

import (
	"testing"

	"github.com/stretchr/testify/require"

	"timerbar/internal/gateway/jsonrpc"
	"timerbar/internal/gateway/memory"
)

func TestOpenWithoutServerUsesMemory(t *testing.T) {
	backend, err := Open(Config{})

	require.NoError(t, err)
	require.IsType(t, &memory.Gateway{}, backend)
}

func TestOpenWithServerUsesJSONRPC(t *testing.T) {
	backend, err := Open(Config{ServerURL: "https://erp.example.com", SessionID: "abc"})

	require.NoError(t, err)
	require.IsType(t, &jsonrpc.Client{}, backend)
}

func TestOpenRejectsBadURL(t *testing.T) {
	_, err := Open(Config{ServerURL: "erp.example.com"})

	require.ErrorContains(t, err, "open gateway")
}
