package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
)

// UTXOIndex maps a transaction hash to the list of its still-unspent
// outputs. No key ever maps to an empty list; the last entry's removal
// deletes the key.
type UTXOIndex struct {
	mu      sync.RWMutex
	entries map[string][]UnspentOutput
	cache   *bigcache.BigCache
}

// NewUTXOIndex builds an empty index backed by a bigcache instance used
// to accelerate (txHash, n) -> output lookups, the scan get_out_value
// and get_out_recipient otherwise perform over the whole chain.
func NewUTXOIndex() (*UTXOIndex, error) {
	cfg := bigcache.DefaultConfig(10 * time.Minute)
	cfg.Shards = 256
	cfg.HardMaxCacheSize = 64
	cache, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("ledger: build utxo cache: %w", err)
	}
	return &UTXOIndex{entries: make(map[string][]UnspentOutput), cache: cache}, nil
}

func outpointKey(hash string, n int) string {
	return fmt.Sprintf("%s:%d", hash, n)
}

// Lookup resolves a referenced prior output, first through the cache and
// falling back to a scan of the authoritative map on a miss (the entry
// may have expired out of the cache, or never been spent fresh enough to
// be cached on this node).
func (u *UTXOIndex) Lookup(hash string, n int) (UnspentOutput, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.lookupLocked(hash, n)
}

func (u *UTXOIndex) lookupLocked(hash string, n int) (UnspentOutput, bool) {
	if data, err := u.cache.Get(outpointKey(hash, n)); err == nil {
		var cached UnspentOutput
		if json.Unmarshal(data, &cached) == nil {
			return cached, true
		}
	}

	for _, out := range u.entries[hash] {
		if out.N == n {
			return out, true
		}
	}
	return UnspentOutput{}, false
}

// Insert adds the outputs produced by tx, indexed by txHash, and primes
// the cache entry for each one.
func (u *UTXOIndex) Insert(txHash string, outputs []UnspentOutput) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.entries[txHash] = append([]UnspentOutput(nil), outputs...)
	for _, out := range outputs {
		u.cacheSet(txHash, out)
	}
}

// Spend removes the entry (hash, n) from the index, dropping the key
// entirely once its list empties.
func (u *UTXOIndex) Spend(hash string, n int) {
	u.mu.Lock()
	defer u.mu.Unlock()

	list := u.entries[hash]
	for i, out := range list {
		if out.N == n {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(u.entries, hash)
	} else {
		u.entries[hash] = list
	}
	_ = u.cache.Delete(outpointKey(hash, n))
}

// Reset empties the index, used before replaying a replacement chain
// during fork resolution.
func (u *UTXOIndex) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.entries = make(map[string][]UnspentOutput)
	_ = u.cache.Reset()
}

// OutputRecord identifies one unspent output by its owning transaction
// hash and index, the (tx_hash, n, value) triple wallet balance queries
// report.
type OutputRecord struct {
	TxHash string
	N      int
	Value  int64
}

// ForAddress returns every unspent output paying to address, in the
// iteration order of the underlying map. Go randomizes that order, so it
// can differ between two calls on the same index; callers that need a
// deterministic order (the wallet) sort the result themselves.
func (u *UTXOIndex) ForAddress(address string) []OutputRecord {
	u.mu.RLock()
	defer u.mu.RUnlock()

	var out []OutputRecord
	for txHash, list := range u.entries {
		for _, entry := range list {
			if entry.To == address {
				out = append(out, OutputRecord{TxHash: txHash, N: entry.N, Value: entry.Value})
			}
		}
	}
	return out
}

// All returns every entry in the index keyed by owning transaction
// hash, a full dump for operator inspection.
func (u *UTXOIndex) All() map[string][]UnspentOutput {
	u.mu.RLock()
	defer u.mu.RUnlock()

	out := make(map[string][]UnspentOutput, len(u.entries))
	for hash, list := range u.entries {
		out[hash] = append([]UnspentOutput(nil), list...)
	}
	return out
}

// Count returns the total number of unspent output records, summed
// across all keys.
func (u *UTXOIndex) Count() int {
	u.mu.RLock()
	defer u.mu.RUnlock()

	total := 0
	for _, list := range u.entries {
		total += len(list)
	}
	return total
}

func (u *UTXOIndex) cacheSet(hash string, out UnspentOutput) {
	data, err := json.Marshal(out)
	if err != nil {
		return
	}
	_ = u.cache.Set(outpointKey(hash, out.N), data)
}
