package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/40acres/htlcswap/chain"
	"github.com/stretchr/testify/require"
)

const validConfig = `{
	"mnemonic": "test test test test test test test test test test test junk",
	"src": {
		"name": "sepolia",
		"kind": "evm",
		"rpc_url": "http://localhost:8545",
		"chain_id": 11155111,
		"factory": "0x00000000000000000000000000000000000fac70",
		"src_implementation": "0x0000000000000000000000000000000000005c00",
		"dst_implementation": "0x0000000000000000000000000000000000005d00",
		"resolver_contract": "0x0000000000000000000000000000000000000e50",
		"confirmations": 2
	},
	"dst": {
		"name": "objectchain",
		"kind": "object",
		"backend": "memory"
	},
	"poll_interval": "3s"
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	require.Equal(t, "sepolia", cfg.Src.Name)
	require.Equal(t, BackendRPC, cfg.Src.Backend)
	require.Equal(t, uint64(2), cfg.Src.Confirmations)
	require.Equal(t, chain.KindObject, cfg.Dst.Kind)
	require.Equal(t, BackendMemory, cfg.Dst.Backend)
	require.Nil(t, cfg.Telegram)

	resolverCfg := cfg.Resolver()
	require.Equal(t, 3*time.Second, resolverCfg.PollInterval)
	require.Equal(t, 10*time.Minute, resolverCfg.RetryMaxElapsed)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing mnemonic",
			content: `{"src": {"name": "a", "kind": "evm", "backend": "memory"}, "dst": {"name": "b", "kind": "object", "backend": "memory"}}`,
			wantErr: "mnemonic is required",
		},
		{
			name:    "same chain twice",
			content: `{"mnemonic": "m", "src": {"name": "a", "kind": "evm", "backend": "memory"}, "dst": {"name": "a", "kind": "object", "backend": "memory"}}`,
			wantErr: "different chains",
		},
		{
			name:    "object chain over rpc",
			content: `{"mnemonic": "m", "src": {"name": "a", "kind": "evm", "backend": "memory"}, "dst": {"name": "b", "kind": "object", "rpc_url": "http://x"}}`,
			wantErr: "only evm chains have an rpc backend",
		},
		{
			name:    "unknown kind",
			content: `{"mnemonic": "m", "src": {"name": "a", "kind": "utxo"}, "dst": {"name": "b", "kind": "object", "backend": "memory"}}`,
			wantErr: "src.kind must be",
		},
		{
			name:    "rpc without contracts",
			content: `{"mnemonic": "m", "src": {"name": "a", "kind": "evm", "rpc_url": "http://x", "chain_id": 1}, "dst": {"name": "b", "kind": "object", "backend": "memory"}}`,
			wantErr: "factory and both implementations are required",
		},
		{
			name:    "half configured telegram",
			content: `{"mnemonic": "m", "src": {"name": "a", "kind": "evm", "backend": "memory"}, "dst": {"name": "b", "kind": "object", "backend": "memory"}, "telegram": {"token": "t"}}`,
			wantErr: "telegram needs token and chat_id",
		},
		{
			name:    "bad duration",
			content: `{"mnemonic": "m", "poll_interval": "soon"}`,
			wantErr: "failed to parse config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
