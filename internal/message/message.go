// Package message builds the canonical byte encoding of every action the
// relay verifies. Each action is a fixed, ordered tuple of ABI-typed fields
// packed with the standard head/tail layout; the relay recomputes the same
// bytes, hashes them with keccak256 and recovers the signer.
package message

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/0gfoundation/0g-points-relay/internal/amount"
	"github.com/0gfoundation/0g-points-relay/internal/errs"
)

// Message is the canonical encoding of one action.
type Message struct {
	Action  string
	Encoded []byte
}

// Digest is keccak256 over the canonical encoding. This is the value the
// actor signs (after the EIP-191 prefix is applied by auth.Signer).
func (m Message) Digest() [32]byte {
	return crypto.Keccak256Hash(m.Encoded)
}

// Hex returns the 0x-prefixed canonical encoding.
func (m Message) Hex() string {
	return "0x" + hex.EncodeToString(m.Encoded)
}

var (
	tString       = mustType("string")
	tUint256      = mustType("uint256")
	tBytes32      = mustType("bytes32")
	tAddress      = mustType("address")
	tBytes32Array = mustType("bytes32[]")
)

func mustType(t string) abi.Type {
	ty, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return ty
}

func arguments(types ...abi.Type) abi.Arguments {
	out := make(abi.Arguments, len(types))
	for i, t := range types {
		out[i] = abi.Argument{Type: t}
	}
	return out
}

// fields validates caller input while a message is assembled. The first
// failure is kept and returned from pack.
type fields struct {
	op  string
	err error
}

func (f *fields) bytes32(name, s string) [32]byte {
	var out [32]byte
	if f.err != nil {
		return out
	}
	raw := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	b, err := hex.DecodeString(raw)
	if err != nil {
		f.err = errs.Format(s, name+" is not hex")
		return out
	}
	if len(b) != 32 {
		f.err = errs.Protocol(f.op, "%s must be 32 bytes, got %d", name, len(b))
		return out
	}
	copy(out[:], b)
	return out
}

func (f *fields) address(name, s string) common.Address {
	if f.err != nil {
		return common.Address{}
	}
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		f.err = errs.Format(s, name+" is not an address")
		return common.Address{}
	}
	return common.HexToAddress(s)
}

func (f *fields) uint(name string, v *big.Int) *big.Int {
	if f.err != nil {
		return nil
	}
	if v == nil {
		f.err = errs.Protocol(f.op, "%s is missing", name)
		return nil
	}
	if _, ok := amount.ToUint256(v); !ok {
		f.err = errs.Protocol(f.op, "%s out of uint256 range: %s", name, v)
		return nil
	}
	return new(big.Int).Set(v)
}

func (f *fields) flag(v bool) *big.Int {
	if v {
		return big.NewInt(1)
	}
	return big.NewInt(0)
}

func (f *fields) pack(args abi.Arguments, values ...any) (Message, error) {
	if f.err != nil {
		return Message{}, f.err
	}
	encoded, err := args.Pack(values...)
	if err != nil {
		return Message{}, errs.Protocol(f.op, "abi pack: %v", err)
	}
	return Message{Action: f.op, Encoded: encoded}, nil
}

var phoneArgs = arguments(tString, tString)

// PhoneHash is the 32-byte identifier the ledger uses for a phone number.
// The phone must already be in international notation.
func PhoneHash(phone string) common.Hash {
	encoded, err := phoneArgs.Pack("BOSagora Phone Number", phone)
	if err != nil {
		// string/string packing cannot fail
		panic(err)
	}
	return crypto.Keccak256Hash(encoded)
}
