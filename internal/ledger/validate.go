package ledger

import "github.com/byc-ledger/node/internal/crypto"

// resolver looks up a previously committed output by (hash, n), the
// get_out_value / get_out_recipient role. The ledger validates against
// the live UTXOIndex (utxoResolver). chainResolver also satisfies it but
// is not called anywhere: fork resolution uses ValidChain, which checks
// links, Merkle roots and proof-of-work and resolves no outputs.
type resolver interface {
	Resolve(hash string, n int) (UnspentOutput, bool)
}

// utxoResolver adapts a UTXOIndex to resolver.
type utxoResolver struct{ idx *UTXOIndex }

func (r utxoResolver) Resolve(hash string, n int) (UnspentOutput, bool) {
	return r.idx.Lookup(hash, n)
}

// chainResolver scans committed blocks directly, the literal linear-scan
// semantics the spec requires as the ground truth that any index must
// agree with.
type chainResolver struct{ blocks []Block }

func (r chainResolver) Resolve(hash string, n int) (UnspentOutput, bool) {
	for _, block := range r.blocks {
		for _, tx := range block.Tx {
			if tx.Hash != hash {
				continue
			}
			for i, out := range tx.Out {
				if i == n {
					from := CoinbaseSpendAddress()
					if len(tx.In) > 0 {
						addr, err := crypto.Address(tx.In[0].PublicKey)
						if err == nil {
							from = SpendAddressFromString(addr)
						}
					}
					return UnspentOutput{N: out.N, From: from, To: out.Recipient, Value: out.Value}, true
				}
			}
		}
	}
	return UnspentOutput{}, false
}

// ValidTxList checks a candidate transaction list against already
// committed state, exposed via r. An empty list is always valid.
func ValidTxList(txs []Transaction, r resolver) error {
	if len(txs) == 0 {
		return nil
	}

	coinbase := txs[0]
	if len(coinbase.Out) == 0 {
		return NewLedgerError(TxHashMismatch, "coinbase has no outputs")
	}
	if coinbase.Out[0].Value > CoinbaseReward {
		return NewLedgerError(CoinbaseOverReward, "coinbase output exceeds fixed reward")
	}
	if len(coinbase.In) != 0 {
		return NewLedgerError(CoinbaseHasInputs, "coinbase carries inputs")
	}
	wantHash, err := coinbase.ComputeHash()
	if err != nil {
		return WrapLedgerError(TxHashMismatch, "coinbase hash recomputation", err)
	}
	if wantHash != coinbase.Hash {
		return NewLedgerError(TxHashMismatch, "coinbase hash does not match recomputation")
	}

	spentWithinBlock := make(map[string]bool)
	for _, tx := range txs[1:] {
		if err := validateSpendingTx(tx, r, spentWithinBlock); err != nil {
			return err
		}
	}
	return nil
}

// validateSpendingTx checks tx against already-committed state via r and
// against outputs already claimed earlier in the same candidate list,
// tracked in spentWithinBlock: two transactions in one block spending the
// same prior output is a double-spend the ground-truth resolver alone
// cannot catch, since neither has been applied yet. spentWithinBlock is
// only updated once every input has cleared every check, so a tx rejected
// partway through never poisons an output its first, failing input merely
// referenced.
func validateSpendingTx(tx Transaction, r resolver, spentWithinBlock map[string]bool) error {
	wantHash, err := tx.ComputeHash()
	if err != nil {
		return WrapLedgerError(TxHashMismatch, "tx hash recomputation", err)
	}
	if wantHash != tx.Hash {
		return NewLedgerError(TxHashMismatch, tx.Hash)
	}

	claims := make([]string, 0, len(tx.In))
	var inputTotal int64
	for _, in := range tx.In {
		key := outpointKey(in.PrevOut.Hash, in.PrevOut.N)
		if spentWithinBlock[key] {
			return NewLedgerError(InsufficientInputs, "output already spent earlier in this block: "+key)
		}

		prior, ok := r.Resolve(in.PrevOut.Hash, in.PrevOut.N)
		if !ok {
			return NewLedgerError(OutputNotFound, "referenced output does not exist: "+in.PrevOut.Hash)
		}

		addr, err := crypto.Address(in.PublicKey)
		if err != nil {
			return WrapLedgerError(OwnershipMismatch, "derive address from input public key", err)
		}
		if addr != prior.To {
			return NewLedgerError(OwnershipMismatch, tx.Hash)
		}

		preimage, err := crypto.Canonical(in.PrevOut)
		if err != nil {
			return WrapLedgerError(SignatureInvalid, "canonicalize prev_out", err)
		}
		if !crypto.Verify(in.PublicKey, preimage, in.Sig) {
			return NewLedgerError(SignatureInvalid, tx.Hash)
		}

		claims = append(claims, key)
		inputTotal += prior.Value
	}

	var outputTotal int64
	for _, out := range tx.Out {
		outputTotal += out.Value
	}
	if inputTotal < outputTotal {
		return NewLedgerError(InsufficientInputs, tx.Hash)
	}

	for _, key := range claims {
		spentWithinBlock[key] = true
	}
	return nil
}

// filterValidForBlock keeps, in order, every transaction in txs that
// validates against r and against its own predecessors already kept,
// dropping the rest. This is how a self-assembled candidate block resolves
// two pending transactions that spend the same output: the first one seen
// is kept, the later one is left out (and stays pending in the mempool for
// a future block, in case it turns out not to conflict with anything by
// then), mirroring how the mempool's own spend only ever gets applied
// once.
func filterValidForBlock(txs []Transaction, r resolver) []Transaction {
	spentWithinBlock := make(map[string]bool)
	kept := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if err := validateSpendingTx(tx, r, spentWithinBlock); err != nil {
			continue
		}
		kept = append(kept, tx)
	}
	return kept
}

// ValidChain checks every block at index >= 1 against its predecessor and
// its own proof-of-work and Merkle root. Block 0 is trusted and never
// inspected here.
func ValidChain(blocks []Block) error {
	for i := 1; i < len(blocks); i++ {
		prev := blocks[i-1]
		cur := blocks[i]

		prevHash, err := prev.CanonicalHash()
		if err != nil {
			return WrapLedgerError(ChainLinkBroken, "hash predecessor block", err)
		}
		if cur.Header.HashPrevBlock.IsGenesis || cur.Header.HashPrevBlock.Hex != prevHash {
			return NewLedgerError(ChainLinkBroken, "block prev-hash does not match predecessor")
		}

		hashes := make([]string, len(cur.Tx))
		for j, tx := range cur.Tx {
			hashes[j] = tx.Hash
		}
		if cur.Header.HashMerkleRoot != crypto.MerkleRoot(hashes) {
			return NewLedgerError(MerkleMismatch, "block merkle root recomputation mismatch")
		}

		if !cur.Header.ValidProof() {
			return NewLedgerError(InvalidProofOfWork, "block header digest below threshold")
		}
	}
	return nil
}
