package main

import (
	"fmt"

	"github.com/byc-ledger/node/internal/ledger"
)

func (s *session) debugMenu() {
	for {
		fmt.Println("1 View Chain\n2 View UTXO\n3 View Mempool\n4 Validate Current Chain\n5 Exit Debug")
		switch s.readLine(">") {
		case "1":
			for i, block := range s.ledger.ChainSnapshot() {
				hash, _ := block.CanonicalHash()
				fmt.Printf("#%d hash=%s tx_count=%d nonce=%d\n", i, hash, len(block.Tx), block.Header.Nonce)
			}
		case "2":
			for txHash, outputs := range s.ledger.UTXOIndex().All() {
				for _, out := range outputs {
					fmt.Printf("%s:%d -> %s (%d) from %s\n", txHash, out.N, out.To, out.Value, out.From.String())
				}
			}
		case "3":
			fmt.Printf("mempool size: %d\n", s.ledger.MempoolSize())
		case "4":
			if err := ledger.ValidChain(s.ledger.ChainSnapshot()); err != nil {
				fmt.Printf("chain invalid: %v\n", err)
			} else {
				fmt.Println("chain valid")
			}
		case "5":
			return
		default:
			fmt.Println("Out of Range")
		}
	}
}
