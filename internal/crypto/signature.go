package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// GenerateKeyPair returns a fresh secp256k1 key pair, hex-encoded.
func GenerateKeyPair() (privateKeyHex, publicKeyHex string, err error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return "", "", fmt.Errorf("crypto: generate key: %w", err)
	}
	return hex.EncodeToString(priv.Serialize()), hex.EncodeToString(priv.PubKey().SerializeUncompressed()), nil
}

// KeyPairFromSeed derives a secp256k1 key pair deterministically from
// arbitrary seed material (e.g. a BIP-39 seed), reducing the seed's first
// 32 bytes modulo the curve order.
func KeyPairFromSeed(seed []byte) (privateKeyHex, publicKeyHex string, err error) {
	if len(seed) < 32 {
		return "", "", fmt.Errorf("crypto: seed too short: need 32 bytes, got %d", len(seed))
	}
	priv, pub := btcec.PrivKeyFromBytes(seed[:32])
	return hex.EncodeToString(priv.Serialize()), hex.EncodeToString(pub.SerializeUncompressed()), nil
}

// Sign signs the UTF-8 bytes of msg with the given hex-encoded secp256k1
// private key and returns a hex-encoded DER signature.
func Sign(privateKeyHex, msg string) (string, error) {
	keyBytes, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return "", fmt.Errorf("crypto: decode private key: %w", err)
	}
	priv, _ := btcec.PrivKeyFromBytes(keyBytes)

	digest := sha256Digest(msg)
	sig := btcecdsa.Sign(priv, digest)
	return hex.EncodeToString(sig.Serialize()), nil
}

// Verify reports whether signatureHex is a valid secp256k1 signature over
// the UTF-8 bytes of msg under the hex-encoded public key.
func Verify(publicKeyHex, msg, signatureHex string) bool {
	pubBytes, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return false
	}
	pub, err := btcec.ParsePubKey(pubBytes)
	if err != nil {
		return false
	}
	sigBytes, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	sig, err := btcecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false
	}

	digest := sha256Digest(msg)
	return sig.Verify(digest, pub)
}

func sha256Digest(msg string) []byte {
	sum := sha256.Sum256([]byte(msg))
	return sum[:]
}
