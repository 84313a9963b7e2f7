package ledger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/byc-ledger/node/internal/crypto"
	"github.com/byc-ledger/node/internal/logger"
	"github.com/byc-ledger/node/internal/metrics"
)

// Ledger owns the chain, UTXO index and mempool as one logical unit. All
// mutation of those three goes through its single RWMutex; the mining
// nonce search is the one operation deliberately designed to run outside
// any lock, per the snapshot/install split below.
type Ledger struct {
	mu    sync.RWMutex
	chain []Block
	utxo  *UTXOIndex
	pool  *Mempool
}

// New builds an empty ledger with no genesis block. The first call to
// ReceiveBlock or InstallMinedBlock establishes genesis.
func New() (*Ledger, error) {
	idx, err := NewUTXOIndex()
	if err != nil {
		return nil, fmt.Errorf("ledger: init: %w", err)
	}
	return &Ledger{utxo: idx, pool: NewMempool()}, nil
}

// ChainLength returns the current committed chain length under a read
// lock.
func (l *Ledger) ChainLength() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.chain)
}

// ChainSnapshot returns a copy of the committed chain.
func (l *Ledger) ChainSnapshot() []Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Block, len(l.chain))
	copy(out, l.chain)
	return out
}

// UTXOSnapshot returns every unspent output paying to address, the
// snapshot a wallet balance query reads.
func (l *Ledger) UTXOSnapshot(address string) []OutputRecord {
	return l.utxo.ForAddress(address)
}

// UTXOIndex exposes the live UTXO index for callers, such as a wallet,
// that need to build and size a spend against current chain state. The
// index guards its own state with its own lock.
func (l *Ledger) UTXOIndex() *UTXOIndex {
	return l.utxo
}

// MempoolSize reports the current mempool length.
func (l *Ledger) MempoolSize() int {
	return l.pool.Size()
}

// ReceiveTx appends tx to the mempool after recomputing its hash. It does
// not run full valid_tx_list checks against the chain: spend validity
// is only meaningful once a transaction's position relative to other
// pending spends is fixed, which happens at block assembly time.
func (l *Ledger) ReceiveTx(tx Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	wantHash, err := tx.ComputeHash()
	if err != nil {
		return WrapLedgerError(TxHashMismatch, "recompute tx hash", err)
	}
	if wantHash != tx.Hash {
		logger.Warn("rejected transaction", zap.String("kind", TxHashMismatch.String()), zap.String("hash", tx.Hash))
		return NewLedgerError(TxHashMismatch, tx.Hash)
	}
	if !l.pool.Add(tx) {
		return nil
	}
	metrics.SetMempoolSize(l.pool.Size())
	return nil
}

// Snapshot takes a read lock, copies the mempool and the tip hash, and
// releases it. The caller then builds and solves a candidate block with
// no lock held.
func (l *Ledger) Snapshot(minerAddress string) MiningSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := MiningSnapshot{
		Mempool:      l.pool.Snapshot(),
		minerAddress: minerAddress,
		resolver:     utxoResolver{l.utxo},
	}
	if len(l.chain) > 0 {
		tipHash, err := l.chain[len(l.chain)-1].CanonicalHash()
		if err == nil {
			snap.TipHash = PrevBlockHashFromHex(tipHash)
			snap.TipKnown = true
		}
	} else {
		snap.TipHash = GenesisPrevBlockHash()
	}
	return snap
}

// InstallMinedBlock commits a solved block if the chain tip has not moved
// since the snapshot it was built from. Returns ErrTipChanged if it has,
// leaving the ledger untouched for the caller to retry or abandon.
func (l *Ledger) InstallMinedBlock(block Block, fromSnapshot MiningSnapshot) (Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.chain) > 0 {
		tipHash, err := l.chain[len(l.chain)-1].CanonicalHash()
		if err != nil {
			return Block{}, fmt.Errorf("ledger: hash current tip: %w", err)
		}
		if !fromSnapshot.TipKnown || fromSnapshot.TipHash.Hex != tipHash {
			return Block{}, ErrTipChanged
		}
	} else if fromSnapshot.TipKnown {
		return Block{}, ErrTipChanged
	}

	if err := ValidTxList(block.Tx, utxoResolver{l.utxo}); err != nil {
		return Block{}, err
	}

	l.applyUTXOLocked(block.Tx)
	l.pool.RemoveIncluded(block.Tx)
	l.chain = append(l.chain, block)

	metrics.SetChainHeight(len(l.chain))
	metrics.IncBlocksMined()
	metrics.SetMempoolSize(l.pool.Size())
	logger.Info("mined block installed", zap.Int("height", len(l.chain)-1), zap.Int("tx_count", len(block.Tx)))
	return block, nil
}

// ReceiveBlock validates and, if accepted, commits an inbound peer block
// on top of the current tip.
func (l *Ledger) ReceiveBlock(block Block) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !block.Header.ValidProof() {
		logger.Warn("rejected block", zap.String("kind", InvalidProofOfWork.String()))
		return NewLedgerError(InvalidProofOfWork, "inbound block")
	}

	if len(l.chain) > 0 {
		tipHash, err := l.chain[len(l.chain)-1].CanonicalHash()
		if err != nil {
			return fmt.Errorf("ledger: hash local tip: %w", err)
		}
		if block.Header.HashPrevBlock.IsGenesis || block.Header.HashPrevBlock.Hex != tipHash {
			logger.Warn("rejected block", zap.String("kind", PrevBlockMismatch.String()))
			return NewLedgerError(PrevBlockMismatch, "inbound block does not extend local tip")
		}
	}

	hashes := make([]string, len(block.Tx))
	for i, tx := range block.Tx {
		hashes[i] = tx.Hash
	}
	if block.Header.HashMerkleRoot != crypto.MerkleRoot(hashes) {
		logger.Warn("rejected block", zap.String("kind", MerkleMismatch.String()))
		return NewLedgerError(MerkleMismatch, "inbound block merkle root mismatch")
	}

	if err := ValidTxList(block.Tx, utxoResolver{l.utxo}); err != nil {
		logger.Warn("rejected block", zap.String("kind", "invalid tx list"), zap.Error(err))
		return err
	}

	l.applyUTXOLocked(block.Tx)
	l.pool.RemoveIncluded(block.Tx)
	l.chain = append(l.chain, block)

	metrics.SetChainHeight(len(l.chain))
	metrics.SetMempoolSize(l.pool.Size())
	logger.Info("received block accepted", zap.Int("height", len(l.chain)-1))
	return nil
}

// ResolveConflicts replaces the local chain with candidate iff it is
// strictly longer, fully valid, and shares the local genesis. On
// replacement the UTXO index is rebuilt from scratch by full replay.
func (l *Ledger) ResolveConflicts(candidate []Block) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(candidate) <= len(l.chain) {
		return NewLedgerError(ShorterChain, "candidate chain not longer than local")
	}
	if len(l.chain) > 0 {
		localGenesis, err := crypto.Canonical(l.chain[0])
		if err != nil {
			return fmt.Errorf("ledger: canonicalize local genesis: %w", err)
		}
		candidateGenesis, err := crypto.Canonical(candidate[0])
		if err != nil {
			return fmt.Errorf("ledger: canonicalize candidate genesis: %w", err)
		}
		if localGenesis != candidateGenesis {
			logger.Warn("rejected fork", zap.String("kind", UnknownGenesis.String()))
			return NewLedgerError(UnknownGenesis, "candidate genesis differs from local")
		}
	}
	if err := ValidChain(candidate); err != nil {
		logger.Warn("rejected fork", zap.String("kind", "invalid chain"), zap.Error(err))
		return err
	}

	l.utxo.Reset()
	for _, block := range candidate {
		l.applyUTXOLocked(block.Tx)
	}
	l.chain = append([]Block(nil), candidate...)
	l.pool.RemoveIncluded(allTransactions(candidate))

	metrics.SetChainHeight(len(l.chain))
	metrics.SetMempoolSize(l.pool.Size())
	logger.Info("chain replaced via fork resolution", zap.Int("new_height", len(l.chain)-1))
	return nil
}

// applyUTXOLocked performs update_utxo over an already-validated
// transaction list. Callers must hold l.mu for writing.
func (l *Ledger) applyUTXOLocked(txs []Transaction) {
	for _, tx := range txs {
		signAddress := CoinbaseSpendAddress()
		if len(tx.In) > 0 {
			if addr, err := crypto.Address(tx.In[0].PublicKey); err == nil {
				signAddress = SpendAddressFromString(addr)
			}
		}

		for _, in := range tx.In {
			l.utxo.Spend(in.PrevOut.Hash, in.PrevOut.N)
		}

		outputs := make([]UnspentOutput, len(tx.Out))
		for i, out := range tx.Out {
			outputs[i] = UnspentOutput{N: out.N, From: signAddress, To: out.Recipient, Value: out.Value}
		}
		l.utxo.Insert(tx.Hash, outputs)
	}
}

func allTransactions(blocks []Block) []Transaction {
	var out []Transaction
	for _, b := range blocks {
		out = append(out, b.Tx...)
	}
	return out
}
