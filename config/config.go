package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"bankchain/core"
	"bankchain/crypto"
)

// Allocation funds an account with a BNK balance at genesis. Balances are
// decimal strings in base units.
type Allocation struct {
	Address string `toml:"Address"`
	Balance string `toml:"Balance"`
}

type Config struct {
	RPCAddress        string       `toml:"RPCAddress"`
	DataDir           string       `toml:"DataDir"`
	Environment       string       `toml:"Environment"`
	RPCToken          string       `toml:"RPCToken"`
	Owner             string       `toml:"Owner"`
	OracleAdmin       string       `toml:"OracleAdmin"`
	AnnualRatePercent uint64       `toml:"AnnualRatePercent"`
	LoanFeeBps        uint64       `toml:"LoanFeeBps"`
	Allocations       []Allocation `toml:"Allocations"`
}

const defaultConfig = `RPCAddress = ":8645"
DataDir = "./bankchain-data"
Environment = "local"
AnnualRatePercent = 10
`

// Load reads the configuration at path, writing a default file when none
// exists. The RPC token may also come from BANKCHAIN_RPC_TOKEN.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createDefault(path); err != nil {
			return nil, err
		}
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./bankchain-data"
	}
	if cfg.AnnualRatePercent == 0 {
		cfg.AnnualRatePercent = 10
	}
	if cfg.RPCToken == "" {
		cfg.RPCToken = strings.TrimSpace(os.Getenv("BANKCHAIN_RPC_TOKEN"))
	}
	return cfg, nil
}

func createDefault(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(defaultConfig), 0o644)
}

// Genesis resolves the configured addresses and allocations into the node's
// genesis document.
func (c *Config) Genesis() (core.Genesis, error) {
	genesis := core.Genesis{
		AnnualRatePercent: c.AnnualRatePercent,
		LoanFeeBps:        c.LoanFeeBps,
	}
	if strings.TrimSpace(c.Owner) == "" {
		return core.Genesis{}, fmt.Errorf("config: Owner address is required")
	}
	owner, err := crypto.DecodeAddress(strings.TrimSpace(c.Owner))
	if err != nil {
		return core.Genesis{}, fmt.Errorf("config: invalid Owner: %w", err)
	}
	genesis.Owner = owner

	if admin := strings.TrimSpace(c.OracleAdmin); admin != "" {
		decoded, err := crypto.DecodeAddress(admin)
		if err != nil {
			return core.Genesis{}, fmt.Errorf("config: invalid OracleAdmin: %w", err)
		}
		genesis.OracleAdmin = decoded
	}

	for i, alloc := range c.Allocations {
		addr, err := crypto.DecodeAddress(strings.TrimSpace(alloc.Address))
		if err != nil {
			return core.Genesis{}, fmt.Errorf("config: allocation %d: %w", i, err)
		}
		balance, ok := new(big.Int).SetString(strings.TrimSpace(alloc.Balance), 10)
		if !ok || balance.Sign() < 0 {
			return core.Genesis{}, fmt.Errorf("config: allocation %d: invalid balance %q", i, alloc.Balance)
		}
		genesis.Allocations = append(genesis.Allocations, core.GenesisAlloc{Address: addr, Balance: balance})
	}
	return genesis, nil
}
