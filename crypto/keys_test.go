package crypto

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte{0xab}, AddressLength)
	addr, err := NewAddress(ARCPrefix, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	encoded := addr.String()
	if !strings.HasPrefix(encoded, string(ARCPrefix)+"1") {
		t.Fatalf("unexpected encoding prefix: %s", encoded)
	}
	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode address: %v", err)
	}
	if decoded.Prefix() != ARCPrefix {
		t.Fatalf("unexpected prefix: got %s want %s", decoded.Prefix(), ARCPrefix)
	}
	if !bytes.Equal(decoded.Bytes(), raw) {
		t.Fatalf("unexpected payload: got %x want %x", decoded.Bytes(), raw)
	}
}

func TestNewAddressRejectsShortPayload(t *testing.T) {
	if _, err := NewAddress(ARCPrefix, []byte{0x01, 0x02}); err == nil {
		t.Fatal("expected error for short payload")
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	if _, err := DecodeAddress("not-a-bech32-string"); err == nil {
		t.Fatal("expected error for malformed input")
	}
}

func TestPrivateKeyAddressDerivation(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.PubKey().Address()
	if addr.Prefix() != ARCPrefix {
		t.Fatalf("unexpected prefix: %s", addr.Prefix())
	}
	if len(addr.Bytes()) != AddressLength {
		t.Fatalf("unexpected payload length: %d", len(addr.Bytes()))
	}

	restored, err := PrivateKeyFromBytes(key.Bytes())
	if err != nil {
		t.Fatalf("restore key: %v", err)
	}
	if restored.PubKey().Address().String() != addr.String() {
		t.Fatal("restored key derives a different address")
	}
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	path := filepath.Join(t.TempDir(), "keys", "node.keystore")
	if err := SaveToKeystore(path, key, "open sesame"); err != nil {
		t.Fatalf("save keystore: %v", err)
	}

	loaded, err := LoadFromKeystore(path, "open sesame")
	if err != nil {
		t.Fatalf("load keystore: %v", err)
	}
	if loaded.PubKey().Address().String() != key.PubKey().Address().String() {
		t.Fatal("loaded key does not match saved key")
	}

	if _, err := LoadFromKeystore(path, "wrong passphrase"); err == nil {
		t.Fatal("expected error for wrong passphrase")
	}
}
