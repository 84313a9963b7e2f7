package main

import (
	"fmt"

	"github.com/byc-ledger/node/internal/ledger"
	"github.com/byc-ledger/node/internal/protocol"
)

// mine assembles a candidate block from the current mempool, searches
// for a valid proof of work with no lock held, and installs it if the
// chain tip has not moved in the meantime.
func (s *session) mine() {
	if s.current == nil {
		fmt.Println("No account available")
		return
	}

	snap := s.ledger.Snapshot(s.current.Address)
	candidate, err := snap.AssembleCandidate(nowTimestamp())
	if err != nil {
		fmt.Printf("mining failed: %v\n", err)
		return
	}

	solved := ledger.SearchNonce(candidate)

	positionBeforeAppend := s.ledger.ChainLength()
	block, err := s.ledger.InstallMinedBlock(solved, snap)
	if err != nil {
		fmt.Printf("mining failed: %v\n", err)
		return
	}

	msg, err := protocol.NewBroadcastBlockMessage(block, positionBeforeAppend)
	if err != nil {
		fmt.Printf("encode mined block: %v\n", err)
		return
	}
	if err := s.udp.Broadcast(msg); err != nil {
		fmt.Printf("broadcast mined block: %v\n", err)
	}

	balance, _ := s.current.BalanceAndRecords(s.ledger.UTXOIndex())
	fmt.Printf("Block mined at height %d\nBalance for %s: %d\n", positionBeforeAppend, s.current.Address, balance)
}
