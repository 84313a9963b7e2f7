package wallet

import (
	"testing"

	"github.com/byc-ledger/node/internal/crypto"
	"github.com/byc-ledger/node/internal/ledger"
)

func TestNewWalletHasRecoverableMnemonic(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}
	if w.Mnemonic == "" {
		t.Fatal("expected a mnemonic to be generated")
	}

	restored, err := FromMnemonic(w.Mnemonic)
	if err != nil {
		t.Fatalf("restore from mnemonic: %v", err)
	}
	if restored.Address != w.Address || restored.PrivateKeyHex != w.PrivateKeyHex {
		t.Fatal("expected restoring from the same mnemonic to reproduce the same key pair")
	}
}

func TestFromMnemonicRejectsInvalid(t *testing.T) {
	if _, err := FromMnemonic("not a real mnemonic phrase"); err == nil {
		t.Fatal("expected invalid mnemonic to be rejected")
	}
}

func TestFromKeyPairDerivesAddress(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}
	w, err := FromKeyPair(priv, pub)
	if err != nil {
		t.Fatalf("from key pair: %v", err)
	}
	wantAddr, err := crypto.Address(pub)
	if err != nil {
		t.Fatalf("derive address: %v", err)
	}
	if w.Address != wantAddr {
		t.Fatalf("expected address %s, got %s", wantAddr, w.Address)
	}
}

func TestTransferRejectsNonPositiveAmount(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}
	idx, err := ledger.NewUTXOIndex()
	if err != nil {
		t.Fatalf("new utxo index: %v", err)
	}

	if _, err := w.Transfer("someone", 0, idx, ledger.NewTimestamp(1700000000)); err == nil {
		t.Fatal("expected non-positive amount to be rejected")
	}
}

func TestTransferRejectsInsufficientBalance(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}
	idx, err := ledger.NewUTXOIndex()
	if err != nil {
		t.Fatalf("new utxo index: %v", err)
	}

	if _, err := w.Transfer("someone", 100, idx, ledger.NewTimestamp(1700000000)); err == nil {
		t.Fatal("expected transfer exceeding balance to be rejected")
	}
}

func TestTransferBuildsSignedSpendableTransaction(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}
	idx, err := ledger.NewUTXOIndex()
	if err != nil {
		t.Fatalf("new utxo index: %v", err)
	}
	idx.Insert("fundingtx", []ledger.UnspentOutput{
		{N: 0, From: ledger.CoinbaseSpendAddress(), To: w.Address, Value: 20},
	})

	tx, err := w.Transfer("destination-address", 12, idx, ledger.NewTimestamp(1700000000))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if len(tx.In) != 1 || tx.In[0].PrevOut.Hash != "fundingtx" {
		t.Fatalf("expected spend to reference the funding output, got %+v", tx.In)
	}
	if len(tx.Out) != 2 {
		t.Fatalf("expected a destination output and a change output, got %+v", tx.Out)
	}
	if tx.Out[0].Recipient != "destination-address" || tx.Out[0].Value != 12 {
		t.Fatalf("unexpected destination output: %+v", tx.Out[0])
	}
	if tx.Out[1].Recipient != w.Address || tx.Out[1].Value != 8 {
		t.Fatalf("unexpected change output: %+v", tx.Out[1])
	}

	wantHash, err := tx.ComputeHash()
	if err != nil {
		t.Fatalf("compute hash: %v", err)
	}
	if tx.Hash != wantHash {
		t.Fatal("expected stored hash to match recomputation")
	}

	preimage, err := crypto.Canonical(tx.In[0].PrevOut)
	if err != nil {
		t.Fatalf("canonicalize prev_out: %v", err)
	}
	if !crypto.Verify(w.PublicKeyHex, preimage, tx.In[0].Sig) {
		t.Fatal("expected input signature to verify under the wallet's public key")
	}
}

func TestBalanceAndRecordsSumsAllOutputs(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}
	idx, err := ledger.NewUTXOIndex()
	if err != nil {
		t.Fatalf("new utxo index: %v", err)
	}
	idx.Insert("tx1", []ledger.UnspentOutput{{N: 0, From: ledger.CoinbaseSpendAddress(), To: w.Address, Value: 20}})
	idx.Insert("tx2", []ledger.UnspentOutput{{N: 0, From: ledger.CoinbaseSpendAddress(), To: w.Address, Value: 5}})

	balance, records := w.BalanceAndRecords(idx)
	if balance != 25 {
		t.Fatalf("expected balance 25, got %d", balance)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}
