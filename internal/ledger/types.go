// Package ledger implements the replicated transaction/block ledger: the
// UTXO state machine, block assembly and validation, fork resolution, and
// the mempool that feeds mining.
package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/byc-ledger/node/internal/crypto"
)

// Timestamp preserves the exact decimal text used to build a hash preimage.
// Round-tripping a float through Go's json package can reformat it
// (trailing zeros, exponent form); the wire contract requires the
// original text to survive unchanged, so Timestamp stores it verbatim
// and marshals back out the same bytes it was given.
type Timestamp string

// NewTimestamp formats seconds-since-epoch the way the preimage expects:
// a plain decimal with microsecond precision, matching the source's
// time.time() text.
func NewTimestamp(seconds float64) Timestamp {
	return Timestamp(strconv.FormatFloat(seconds, 'f', 6, 64))
}

func (t Timestamp) String() string {
	return string(t)
}

// MarshalJSON emits the stored text as a bare JSON number, not a string.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t == "" {
		return []byte("0"), nil
	}
	return []byte(t), nil
}

// UnmarshalJSON captures the literal numeric text instead of parsing and
// reformatting it, so a value round-tripped through JSON still hashes
// identically to the one that produced it.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	*t = Timestamp(strings.TrimSpace(string(data)))
	return nil
}

// PrevBlockHash holds either a 64-character hex digest or the genesis
// block's literal JSON integer 0. The two are distinguished on the wire,
// not just in value, so a dedicated type carries that distinction instead
// of collapsing "0" and the all-zero hex string together.
type PrevBlockHash struct {
	Hex      string
	IsGenesis bool
}

// GenesisPrevBlockHash is the sentinel previous-block hash for block 0.
func GenesisPrevBlockHash() PrevBlockHash { return PrevBlockHash{IsGenesis: true} }

func PrevBlockHashFromHex(hex string) PrevBlockHash { return PrevBlockHash{Hex: hex} }

func (p PrevBlockHash) MarshalJSON() ([]byte, error) {
	if p.IsGenesis {
		return []byte("0"), nil
	}
	return json.Marshal(p.Hex)
}

func (p *PrevBlockHash) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "0" {
		*p = PrevBlockHash{IsGenesis: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("ledger: hash_prev_block neither 0 nor a string: %w", err)
	}
	*p = PrevBlockHash{Hex: s}
	return nil
}

func (p PrevBlockHash) String() string {
	if p.IsGenesis {
		return "0"
	}
	return p.Hex
}

// SpendAddress holds either a wallet address or the coinbase marker,
// the literal integer 0. UnspentOutput.From and TransactionInput
// provenance both need this distinction preserved across the wire.
type SpendAddress struct {
	Address    string
	IsCoinbase bool
}

func CoinbaseSpendAddress() SpendAddress { return SpendAddress{IsCoinbase: true} }

func SpendAddressFromString(addr string) SpendAddress { return SpendAddress{Address: addr} }

func (s SpendAddress) MarshalJSON() ([]byte, error) {
	if s.IsCoinbase {
		return []byte("0"), nil
	}
	return json.Marshal(s.Address)
}

func (s *SpendAddress) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "0" {
		*s = SpendAddress{IsCoinbase: true}
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("ledger: from address neither 0 nor a string: %w", err)
	}
	*s = SpendAddress{Address: str}
	return nil
}

func (s SpendAddress) String() string {
	if s.IsCoinbase {
		return "0"
	}
	return s.Address
}

// OutPoint references a single output of a prior transaction.
type OutPoint struct {
	Hash string `json:"hash"`
	N    int    `json:"n"`
}

// TransactionInput spends one prior output; Sig is a signature over the
// canonical serialization of PrevOut alone, under PublicKey.
type TransactionInput struct {
	PrevOut   OutPoint `json:"prev_out"`
	PublicKey string   `json:"public_key"`
	Sig       string   `json:"sig"`
}

// TransactionOutput pays Value units to Recipient at output index N.
type TransactionOutput struct {
	N         int    `json:"n"`
	Recipient string `json:"recipient"`
	Value     int64  `json:"value"`
}

// Transaction is the unit the mempool and blocks carry. Hash is the
// double-SHA-256 of the exact preimage built from Timestamp, In and Out;
// callers that construct a Transaction by hand must set Hash from
// ComputeHash, or Hash will silently stop matching its preimage.
type Transaction struct {
	Hash      string              `json:"hash"`
	Timestamp Timestamp           `json:"timestamp"`
	In        []TransactionInput  `json:"in"`
	Out       []TransactionOutput `json:"out"`
}

// IsCoinbase reports whether tx has no inputs, the structural marker for
// a block's first transaction. It does not validate placement or reward.
func (tx Transaction) IsCoinbase() bool {
	return len(tx.In) == 0
}

// preimage builds the exact string double-SHA-256 is applied to: the
// timestamp's literal text, followed by canonical JSON of In and Out.
func (tx Transaction) preimage() (string, error) {
	inJSON, err := crypto.Canonical(tx.In)
	if err != nil {
		return "", fmt.Errorf("ledger: canonicalize tx inputs: %w", err)
	}
	outJSON, err := crypto.Canonical(tx.Out)
	if err != nil {
		return "", fmt.Errorf("ledger: canonicalize tx outputs: %w", err)
	}
	return tx.Timestamp.String() + inJSON + outJSON, nil
}

// ComputeHash recomputes the transaction's hash from its current fields,
// independent of whatever is currently stored in tx.Hash.
func (tx Transaction) ComputeHash() (string, error) {
	pre, err := tx.preimage()
	if err != nil {
		return "", err
	}
	return crypto.DoubleSHA256(pre), nil
}

// BlockHeader carries the fields that participate in proof-of-work and
// chain linkage.
type BlockHeader struct {
	Timestamp      Timestamp     `json:"timestamp"`
	HashPrevBlock  PrevBlockHash `json:"hash_prev_block"`
	HashMerkleRoot string        `json:"hash_merkle_root"`
	Nonce          int64         `json:"nonce"`
}

// Block is a header plus its ordered transaction list; Tx[0] is always
// the coinbase.
type Block struct {
	Header BlockHeader   `json:"header"`
	Tx     []Transaction `json:"tx"`
}

// CanonicalHash is the double-SHA-256 of the block's canonical
// serialization, the value the next block's HashPrevBlock must carry.
func (b Block) CanonicalHash() (string, error) {
	text, err := crypto.Canonical(b)
	if err != nil {
		return "", fmt.Errorf("ledger: canonicalize block: %w", err)
	}
	return crypto.DoubleSHA256(text), nil
}

// proofPreimage builds the string hashed to check proof-of-work: the
// timestamp text, hash_prev_block text, merkle root and nonce text,
// concatenated in header-field order.
func (h BlockHeader) proofPreimage() string {
	return h.Timestamp.String() + h.HashPrevBlock.String() + h.HashMerkleRoot + strconv.FormatInt(h.Nonce, 10)
}

// ProofDigest is the double-SHA-256 checked against the proof-of-work
// threshold.
func (h BlockHeader) ProofDigest() string {
	return crypto.DoubleSHA256(h.proofPreimage())
}

// proofWorkPrefix is the required leading hex digits of a valid header
// digest, pinned at four zeros per the wire contract.
const proofWorkPrefix = "0000"

// ValidProof reports whether h's digest satisfies the proof-of-work
// threshold.
func (h BlockHeader) ValidProof() bool {
	return strings.HasPrefix(h.ProofDigest(), proofWorkPrefix)
}

// CoinbaseReward is the fixed block subsidy; validators accept any
// coinbase output value up to and including this amount.
const CoinbaseReward int64 = 20

// UnspentOutput is the UTXO index's stored record: the derived fields of
// an output, not a reference back into the transaction that produced it.
type UnspentOutput struct {
	N     int          `json:"n"`
	From  SpendAddress `json:"from"`
	To    string       `json:"to"`
	Value int64        `json:"value"`
}
