// Package wallet holds one signing key, derives its address, and builds
// signed spend transactions against a caller-supplied UTXO snapshot.
package wallet

import (
	"fmt"
	"sort"

	"github.com/tyler-smith/go-bip39"

	"github.com/byc-ledger/node/internal/crypto"
	"github.com/byc-ledger/node/internal/ledger"
)

// Wallet holds exactly one signing key pair and its derived address.
type Wallet struct {
	Mnemonic      string
	PrivateKeyHex string
	PublicKeyHex  string
	Address       string
}

// New generates a fresh 24-word mnemonic, derives a seed from it, and
// builds the wallet's single key pair from that seed.
func New() (*Wallet, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return nil, fmt.Errorf("wallet: generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("wallet: generate mnemonic: %w", err)
	}

	w, err := FromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// FromMnemonic rebuilds a wallet's key pair from a previously generated
// mnemonic, the recoverability the source's raw-keygen account lacks.
func FromMnemonic(mnemonic string) (*Wallet, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("wallet: invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, "")

	privHex, pubHex, err := crypto.KeyPairFromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("wallet: derive key pair: %w", err)
	}

	addr, err := crypto.Address(pubHex)
	if err != nil {
		return nil, fmt.Errorf("wallet: derive address: %w", err)
	}

	return &Wallet{
		Mnemonic:      mnemonic,
		PrivateKeyHex: privHex,
		PublicKeyHex:  pubHex,
		Address:       addr,
	}, nil
}

// FromKeyPair rebuilds a wallet from raw hex key material, the shape the
// collaborator key-storage layer hands back on load.
func FromKeyPair(privateKeyHex, publicKeyHex string) (*Wallet, error) {
	addr, err := crypto.Address(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("wallet: derive address: %w", err)
	}
	return &Wallet{PrivateKeyHex: privateKeyHex, PublicKeyHex: publicKeyHex, Address: addr}, nil
}

// BalanceAndRecords sums every UTXO entry paying this wallet's address
// and returns the records backing it, sorted by transaction hash and then
// output index so that Transfer's greedy selection is deterministic.
func (w *Wallet) BalanceAndRecords(utxo *ledger.UTXOIndex) (int64, []ledger.OutputRecord) {
	records := utxo.ForAddress(w.Address)
	sort.Slice(records, func(i, j int) bool {
		if records[i].TxHash != records[j].TxHash {
			return records[i].TxHash < records[j].TxHash
		}
		return records[i].N < records[j].N
	})

	var total int64
	for _, r := range records {
		total += r.Value
	}
	return total, records
}

// Transfer builds, signs and hashes a transaction paying amount to
// destination, sourced by greedily consuming this wallet's UTXO records
// in order until the accumulated value covers amount.
func (w *Wallet) Transfer(destination string, amount int64, utxo *ledger.UTXOIndex, now ledger.Timestamp) (ledger.Transaction, error) {
	if amount <= 0 {
		return ledger.Transaction{}, ledger.NewLedgerError(ledger.NonPositiveAmount, "transfer amount must be positive")
	}

	balance, records := w.BalanceAndRecords(utxo)
	if balance < amount {
		return ledger.Transaction{}, ledger.NewLedgerError(ledger.InsufficientBalance, "transfer exceeds wallet balance")
	}

	var accumulated int64
	var spent []ledger.OutputRecord
	for _, r := range records {
		spent = append(spent, r)
		accumulated += r.Value
		if accumulated >= amount {
			break
		}
	}

	inputs := make([]ledger.TransactionInput, len(spent))
	for i, r := range spent {
		prevOut := ledger.OutPoint{Hash: r.TxHash, N: r.N}
		preimage, err := crypto.Canonical(prevOut)
		if err != nil {
			return ledger.Transaction{}, fmt.Errorf("wallet: canonicalize prev_out: %w", err)
		}
		sig, err := crypto.Sign(w.PrivateKeyHex, preimage)
		if err != nil {
			return ledger.Transaction{}, fmt.Errorf("wallet: sign input: %w", err)
		}
		inputs[i] = ledger.TransactionInput{PrevOut: prevOut, PublicKey: w.PublicKeyHex, Sig: sig}
	}

	outputs := []ledger.TransactionOutput{{N: 0, Recipient: destination, Value: amount}}
	if change := accumulated - amount; change > 0 {
		outputs = append(outputs, ledger.TransactionOutput{N: 1, Recipient: w.Address, Value: change})
	}

	tx := ledger.Transaction{Timestamp: now, In: inputs, Out: outputs}
	hash, err := tx.ComputeHash()
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("wallet: hash transaction: %w", err)
	}
	tx.Hash = hash
	return tx, nil
}
