// Package config loads the JSON file describing the two chains the resolver
// works between.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/40acres/htlcswap/chain"
	"github.com/40acres/htlcswap/resolver"
	"github.com/ethereum/go-ethereum/common"
)

type Backend string

const (
	// BackendRPC talks to a node over JSON-RPC. Only EVM chains support it.
	BackendRPC Backend = "rpc"
	// BackendMemory keeps the chain in process, for dry runs.
	BackendMemory Backend = "memory"
)

// Duration reads "5s" style strings.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)

	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

type Chain struct {
	Name    string     `json:"name"`
	Kind    chain.Kind `json:"kind"`
	Backend Backend    `json:"backend"`
	RPCURL  string     `json:"rpc_url"`
	ChainID uint64     `json:"chain_id"`

	Factory           common.Address `json:"factory"`
	SrcImplementation common.Address `json:"src_implementation"`
	DstImplementation common.Address `json:"dst_implementation"`
	ResolverContract  common.Address `json:"resolver_contract"`

	Confirmations uint64 `json:"confirmations"`
	GasLimit      uint64 `json:"gas_limit"`
	AutoApprove   bool   `json:"auto_approve"`
}

type Telegram struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
}

type Config struct {
	// BIP39 mnemonic the resolver key is derived from
	Mnemonic     string `json:"mnemonic"`
	AccountIndex uint32 `json:"account_index"`

	Src Chain `json:"src"`
	Dst Chain `json:"dst"`

	// Optional operator notifications
	Telegram *Telegram `json:"telegram,omitempty"`

	PollInterval    Duration `json:"poll_interval"`
	RetryMaxElapsed Duration `json:"retry_max_elapsed"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Mnemonic == "" {
		return fmt.Errorf("mnemonic is required")
	}
	if err := c.Src.validate("src"); err != nil {
		return err
	}
	if err := c.Dst.validate("dst"); err != nil {
		return err
	}
	if c.Src.Name == c.Dst.Name {
		return fmt.Errorf("src and dst must be different chains")
	}
	if c.Telegram != nil && (c.Telegram.Token == "" || c.Telegram.ChatID == 0) {
		return fmt.Errorf("telegram needs token and chat_id")
	}

	return c.Resolver().Validate()
}

func (c *Chain) validate(side string) error {
	if c.Name == "" {
		return fmt.Errorf("%s.name is required", side)
	}
	if !c.Kind.IsValid() {
		return fmt.Errorf("%s.kind must be 'evm' or 'object'", side)
	}
	if c.Backend == "" {
		c.Backend = BackendRPC
	}

	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendRPC:
	default:
		return fmt.Errorf("%s.backend must be 'rpc' or 'memory'", side)
	}

	if c.Kind != chain.KindEVM {
		return fmt.Errorf("%s: only evm chains have an rpc backend", side)
	}
	if c.RPCURL == "" {
		return fmt.Errorf("%s.rpc_url is required", side)
	}
	if c.ChainID == 0 {
		return fmt.Errorf("%s.chain_id is required", side)
	}
	zero := common.Address{}
	if c.Factory == zero || c.SrcImplementation == zero || c.DstImplementation == zero {
		return fmt.Errorf("%s: factory and both implementations are required", side)
	}
	if c.ResolverContract == zero {
		return fmt.Errorf("%s.resolver_contract is required", side)
	}

	return nil
}

// Resolver returns the orchestrator settings, defaults where unset.
func (c *Config) Resolver() *resolver.Config {
	cfg := resolver.NewConfig()
	if c.PollInterval > 0 {
		cfg.PollInterval = time.Duration(c.PollInterval)
	}
	if c.RetryMaxElapsed > 0 {
		cfg.RetryMaxElapsed = time.Duration(c.RetryMaxElapsed)
	}

	return cfg
}
