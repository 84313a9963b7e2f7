package main

import (
	"fmt"
	"strconv"

	"github.com/byc-ledger/node/internal/protocol"
)

func (s *session) transfer() {
	if s.current == nil {
		fmt.Println("No account available")
		return
	}

	destination := s.readLine("input the payee's address:")
	amountStr := s.readLine("input the amount:")
	amount, err := strconv.ParseInt(amountStr, 10, 64)
	if err != nil {
		fmt.Println("invalid amount")
		return
	}

	tx, err := s.current.Transfer(destination, amount, s.ledger.UTXOIndex(), nowTimestamp())
	if err != nil {
		fmt.Printf("transaction failed: %v\n", err)
		return
	}

	if err := s.ledger.ReceiveTx(tx); err != nil {
		fmt.Printf("transaction failed: %v\n", err)
		return
	}

	msg, err := protocol.NewBroadcastTxMessage(tx)
	if err != nil {
		fmt.Printf("encode transaction: %v\n", err)
		return
	}
	if err := s.udp.Broadcast(msg); err != nil {
		fmt.Printf("broadcast transaction: %v\n", err)
	}
	fmt.Printf("Transaction %s submitted\n", tx.Hash)
}

func (s *session) requestChain() {
	msg, err := protocol.NewRequestChainMessage(s.ledger.ChainLength())
	if err != nil {
		fmt.Printf("encode request: %v\n", err)
		return
	}
	if err := s.udp.Broadcast(msg); err != nil {
		fmt.Printf("broadcast request: %v\n", err)
	}
}
