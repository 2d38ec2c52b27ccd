package crypto

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/btcsuite/btcutil/bech32"
)

func TestAddressBech32RoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.PubKey().Address()

	encoded := addr.String()
	if !strings.HasPrefix(encoded, AddressHRP+"1") {
		t.Fatalf("unexpected prefix: %q", encoded)
	}
	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Equal(addr) {
		t.Fatalf("round trip mismatch: %s != %s", decoded, addr)
	}
}

func TestDecodeAddressRejectsWrongPrefix(t *testing.T) {
	raw := make([]byte, AddressLength)
	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		t.Fatalf("convert bits: %v", err)
	}
	foreign, err := bech32.Encode("btc", conv)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeAddress(foreign); err == nil {
		t.Fatalf("expected an error for a foreign prefix")
	}
	if _, err := DecodeAddress("not-bech32"); err == nil {
		t.Fatalf("expected an error for malformed input")
	}
}

func TestDeriveModuleAddressIsStable(t *testing.T) {
	first := DeriveModuleAddress("bank/module/vault")
	second := DeriveModuleAddress("bank/module/vault")
	if !first.Equal(second) {
		t.Fatalf("derivation must be deterministic")
	}
	other := DeriveModuleAddress("bank/module/fees")
	if first.Equal(other) {
		t.Fatalf("distinct names must derive distinct addresses")
	}
}

func TestAddressJSONRoundTrip(t *testing.T) {
	raw := make([]byte, AddressLength)
	raw[AddressLength-1] = 0x2a
	addr := NewAddress(raw)

	encoded, err := json.Marshal(addr)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Address
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.Equal(addr) {
		t.Fatalf("round trip mismatch")
	}
}

func TestPrivateKeyBytesRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	restored, err := PrivateKeyFromBytes(key.Bytes())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !restored.PubKey().Address().Equal(key.PubKey().Address()) {
		t.Fatalf("restored key derives a different address")
	}
}
