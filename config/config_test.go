package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"bankchain/crypto"
)

func testAddress(suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.NewAddress(raw)
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != ":8645" {
		t.Fatalf("unexpected RPC address: %q", cfg.RPCAddress)
	}
	if cfg.AnnualRatePercent != 10 {
		t.Fatalf("unexpected annual rate: %d", cfg.AnnualRatePercent)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
}

func TestGenesisResolvesAddresses(t *testing.T) {
	owner := testAddress(0x01)
	investor := testAddress(0x02)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `RPCAddress = ":8645"
DataDir = "/tmp/bankchain"
Owner = "` + owner.String() + `"
AnnualRatePercent = 12
LoanFeeBps = 150

[[Allocations]]
Address = "` + investor.String() + `"
Balance = "1000000000000000000"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	genesis, err := cfg.Genesis()
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	if !genesis.Owner.Equal(owner) {
		t.Fatalf("owner mismatch: %s", genesis.Owner)
	}
	if genesis.AnnualRatePercent != 12 || genesis.LoanFeeBps != 150 {
		t.Fatalf("rate config mismatch: %+v", genesis)
	}
	if len(genesis.Allocations) != 1 {
		t.Fatalf("expected one allocation")
	}
	expected, _ := new(big.Int).SetString("1000000000000000000", 10)
	if genesis.Allocations[0].Balance.Cmp(expected) != 0 {
		t.Fatalf("allocation balance mismatch: %s", genesis.Allocations[0].Balance)
	}
}

func TestGenesisRequiresOwner(t *testing.T) {
	cfg := &Config{AnnualRatePercent: 10}
	if _, err := cfg.Genesis(); err == nil {
		t.Fatalf("expected an error for a missing owner")
	}
}

func TestGenesisRejectsBadAllocation(t *testing.T) {
	cfg := &Config{
		Owner:             testAddress(0x01).String(),
		AnnualRatePercent: 10,
		Allocations:       []Allocation{{Address: testAddress(0x02).String(), Balance: "not-a-number"}},
	}
	if _, err := cfg.Genesis(); err == nil {
		t.Fatalf("expected an error for an invalid balance")
	}
}
