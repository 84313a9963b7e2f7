package ledger

import (
	"fmt"

	"github.com/byc-ledger/node/internal/crypto"
)

// MiningSnapshot is the read-only state a nonce search runs against: the
// mempool's current contents and the tip needed to link the candidate
// block. It is taken under a read lock and then the search itself runs
// unlocked, so mining never holds the ledger's exclusive lock across its
// CPU-bound loop.
type MiningSnapshot struct {
	Mempool      []Transaction
	TipHash      PrevBlockHash
	TipKnown     bool
	minerAddress string
	resolver     resolver
}

// AssembleCandidate builds the coinbase-prepended transaction list and an
// unsolved header (nonce 0, merkle root computed) from the snapshot. The
// mempool is filtered down to the subset that actually validates against
// the snapshotted chain state first: if two pending transactions spend the
// same output, only the first survives into the candidate, and the block
// still gets mined rather than the whole mine failing over a tx that was
// never going to make it in anyway.
func (s MiningSnapshot) AssembleCandidate(now Timestamp) (Block, error) {
	coinbase := Transaction{
		Timestamp: now,
		In:        nil,
		Out:       []TransactionOutput{{N: 0, Recipient: s.minerAddress, Value: CoinbaseReward}},
	}
	hash, err := coinbase.ComputeHash()
	if err != nil {
		return Block{}, fmt.Errorf("ledger: hash coinbase: %w", err)
	}
	coinbase.Hash = hash

	pending := filterValidForBlock(s.Mempool, s.resolver)
	txs := append([]Transaction{coinbase}, pending...)

	hashes := make([]string, len(txs))
	for i, tx := range txs {
		hashes[i] = tx.Hash
	}

	header := BlockHeader{
		Timestamp:      now,
		HashPrevBlock:  s.TipHash,
		HashMerkleRoot: crypto.MerkleRoot(hashes),
		Nonce:          0,
	}
	return Block{Header: header, Tx: txs}, nil
}

// SearchNonce increments candidate's nonce until its header satisfies
// proof-of-work, mutating and returning the same block. Expected cost at
// the pinned four-hex-zero threshold is on the order of 2^16 hashes.
func SearchNonce(candidate Block) Block {
	for !candidate.Header.ValidProof() {
		candidate.Header.Nonce++
	}
	return candidate
}
