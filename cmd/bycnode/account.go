package main

import (
	"fmt"

	"github.com/byc-ledger/node/internal/wallet"
)

func (s *session) accountMenu() {
	for {
		fmt.Println("1 View Current Account\n2 View Balance\n3 Create New Account\n4 Restore From Mnemonic")
		switch s.readLine(">") {
		case "1":
			if s.current == nil {
				fmt.Println("No account now")
				continue
			}
			fmt.Printf("Address: %s\nPublic key: %s\n", s.current.Address, s.current.PublicKeyHex)
			return
		case "2":
			if s.current == nil {
				fmt.Println("No account now")
				continue
			}
			balance, _ := s.current.BalanceAndRecords(s.ledger.UTXOIndex())
			fmt.Printf("Balance for %s: %d\n", s.current.Address, balance)
			return
		case "3":
			w, err := wallet.New()
			if err != nil {
				fmt.Printf("create account: %v\n", err)
				continue
			}
			s.current = w
			fmt.Printf("New account created\nAddress: %s\nMnemonic (write this down): %s\n", w.Address, w.Mnemonic)
			return
		case "4":
			mnemonic := s.readLine("mnemonic: ")
			w, err := wallet.FromMnemonic(mnemonic)
			if err != nil {
				fmt.Printf("restore account: %v\n", err)
				continue
			}
			s.current = w
			fmt.Printf("Account restored\nAddress: %s\n", w.Address)
			return
		default:
			fmt.Println("Out of Range")
		}
	}
}
