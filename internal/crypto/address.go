package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required: wire-level address contract, not a general-purpose hash choice
)

// btcBase58Alphabet mirrors github.com/mr-tron/base58's BTCAlphabet. The
// library's Encode/Decode pair treats its input as a byte string and gives
// leading 0x00 bytes the Bitcoin leading-'1' treatment; the address
// contract below instead base58-encodes the *integer value* of a hex
// string that happens to start with a "00" version nibble pair, which
// carries no numeric weight. Reproducing mr-tron/base58's byte-oriented
// Encode here would silently break every address on the network, so the
// integer encoder is hand-rolled against the same alphabet the dependency
// exposes; Decode is reused as-is for inspection and round-trip checks.
const btcBase58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// Address derives the network address string for a hex-encoded public key:
// SHA-256 over the public key's hex text with its first two characters
// dropped, RIPEMD-160 over the resulting hex text, a "00" version prefix,
// an 8-hex-character double-SHA-256 checksum, and finally base58 over the
// integer value of the assembled hex string.
func Address(publicKeyHex string) (string, error) {
	if len(publicKeyHex) < 2 {
		return "", fmt.Errorf("crypto: public key hex too short: %q", publicKeyHex)
	}

	stage1 := sha256Hex(publicKeyHex[2:])

	ripe := ripemd160.New()
	ripe.Write([]byte(stage1))
	stage2 := hex.EncodeToString(ripe.Sum(nil))

	versioned := "00" + stage2
	checksum := DoubleSHA256(versioned)[:8]
	payload := versioned + checksum

	n, ok := new(big.Int).SetString(payload, 16)
	if !ok {
		return "", fmt.Errorf("crypto: address payload is not valid hex: %q", payload)
	}
	return encodeBase58Int(n), nil
}

// DecodeAddress reverses the base58 step only, returning the payload's
// integer value as big-endian bytes (RIPEMD-160 hash + checksum) for
// diagnostic display. The "00" version byte, and any further leading zero
// bytes, carry no weight in the integer encoding above and are not
// returned.
func DecodeAddress(address string) ([]byte, error) {
	return base58.Decode(address)
}

func sha256Hex(text string) string {
	// Single round, hex-encoded: the first leg of the address derivation,
	// distinct from DoubleSHA256's two-round construction.
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

func encodeBase58Int(n *big.Int) string {
	if n.Sign() == 0 {
		return string(btcBase58Alphabet[0])
	}

	base := big.NewInt(58)
	mod := new(big.Int)
	work := new(big.Int).Set(n)

	var out []byte
	for work.Sign() > 0 {
		work.DivMod(work, base, mod)
		out = append([]byte{btcBase58Alphabet[mod.Int64()]}, out...)
	}
	return string(out)
}
