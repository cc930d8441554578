package auth

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/0gfoundation/0g-points-relay/internal/errs"
)

// Signer holds one actor's private key. It only ever reads the key, so a
// Signer may be shared between goroutines.
type Signer struct {
	privKey *ecdsa.PrivateKey
	addr    common.Address
}

// NewSigner parses a hex private key, with or without the 0x prefix.
func NewSigner(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, errs.Format("<private key>", "invalid private key")
	}
	return FromKey(key), nil
}

// FromKey wraps an existing key.
func FromKey(key *ecdsa.PrivateKey) *Signer {
	return &Signer{privKey: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

// Address is the account derived from the key.
func (s *Signer) Address() common.Address { return s.addr }

// Sign returns the 65-byte R || S || V signature over the EIP-191 prefixed
// digest, with V in {27,28}.
func (s *Signer) Sign(digest [32]byte) ([]byte, error) {
	sig, err := crypto.Sign(HashDigest(digest), s.privKey)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// SignHex is Sign rendered as 0x-prefixed hex, the form the relay accepts.
func (s *Signer) SignHex(digest [32]byte) (string, error) {
	sig, err := s.Sign(digest)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(sig), nil
}
