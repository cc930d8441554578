package main

import (
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/0gfoundation/0g-points-relay/internal/auth"
)

func TestResolveDigest(t *testing.T) {
	msg := []byte{0x01, 0x02, 0x03}
	want := crypto.Keccak256Hash(msg)

	got, err := resolveDigest(hexutil.Encode(msg), "")
	if err != nil || got != want {
		t.Fatalf("from message: %x %v", got, err)
	}
	got, err = resolveDigest("", want.Hex())
	if err != nil || got != want {
		t.Fatalf("from digest: %x %v", got, err)
	}
	if _, err := resolveDigest("", "0x1234"); err == nil {
		t.Error("short digest should fail")
	}
	if _, err := resolveDigest("zz", ""); err == nil {
		t.Error("bad hex should fail")
	}
}

func TestResolveDigest_RoundTripsSigner(t *testing.T) {
	s, err := auth.NewSigner("ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	if err != nil {
		t.Fatal(err)
	}
	digest, _ := resolveDigest("0xdeadbeef", "")
	sig, err := s.Sign(digest)
	if err != nil {
		t.Fatal(err)
	}
	addr, err := auth.RecoverDigest(digest, sig)
	if err != nil || addr != s.Address() {
		t.Errorf("recovered %s, want %s (%v)", addr.Hex(), s.Address().Hex(), err)
	}
}
