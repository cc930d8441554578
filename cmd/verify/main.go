// cmd/verify/main.go checks a signature over a canonical action message.
//
// Usage examples:
//
//	# recover the signer of an encoded message
//	go run ./cmd/verify/ --message 0x<abi-encoded> --signature 0x<65 bytes>
//
//	# check against an expected signer, starting from the digest
//	go run ./cmd/verify/ --digest 0x<32 bytes> --signature 0x... --signer 0x...
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/0gfoundation/0g-points-relay/internal/auth"
)

func main() {
	msgHex := flag.String("message", "", "canonical encoding of the message (hex)")
	digestHex := flag.String("digest", "", "keccak256 digest of the message (hex); alternative to --message")
	sigHex := flag.String("signature", "", "65-byte EIP-191 signature (hex, required)")
	signer := flag.String("signer", "", "expected signer address (optional)")
	flag.Parse()

	if *sigHex == "" || (*msgHex == "") == (*digestHex == "") {
		fmt.Fprintln(os.Stderr, "error: --signature and exactly one of --message or --digest are required")
		os.Exit(1)
	}

	digest, err := resolveDigest(*msgHex, *digestHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	sig, err := hexutil.Decode(*sigHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode signature: %v\n", err)
		os.Exit(1)
	}

	addr, err := auth.RecoverDigest(digest, sig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\n✗ Recover failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Digest : %s\n", common.Hash(digest).Hex())
	fmt.Printf("Signer : %s\n", addr.Hex())

	if *signer == "" {
		return
	}
	if !common.IsHexAddress(*signer) {
		fmt.Fprintf(os.Stderr, "invalid --signer %q\n", *signer)
		os.Exit(1)
	}
	if addr != common.HexToAddress(*signer) {
		fmt.Fprintf(os.Stderr, "\n✗ Signature does not match %s\n", *signer)
		os.Exit(1)
	}
	fmt.Printf("\n✓ Signature valid\n")
}

// resolveDigest hashes the message, or decodes a digest given directly.
func resolveDigest(msgHex, digestHex string) ([32]byte, error) {
	var digest [32]byte
	if msgHex != "" {
		msg, err := hexutil.Decode(msgHex)
		if err != nil {
			return digest, fmt.Errorf("decode message: %w", err)
		}
		return crypto.Keccak256Hash(msg), nil
	}
	b, err := hexutil.Decode(digestHex)
	if err != nil {
		return digest, fmt.Errorf("decode digest: %w", err)
	}
	if len(b) != 32 {
		return digest, fmt.Errorf("digest must be 32 bytes, got %d", len(b))
	}
	copy(digest[:], b)
	return digest, nil
}
