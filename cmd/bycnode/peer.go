package main

import "fmt"

func (s *session) peerMenu() {
	fmt.Println("1 View Current Peers\n2 Add New Peer\n3 Remove Peer")
	switch s.readLine(">") {
	case "1":
		for _, addr := range s.udp.Peers() {
			fmt.Println(addr)
		}
	case "2":
		addr := s.readLine("Input address (host:port):")
		if err := s.udp.AddPeer(addr); err != nil {
			fmt.Printf("add peer: %v\n", err)
			return
		}
		fmt.Printf("%s is in the peer list now\n", addr)
	case "3":
		addr := s.readLine("Input address (host:port):")
		s.udp.RemovePeer(addr)
		s.dispatch.RemovePeer(addr)
		fmt.Printf("%s was removed from the peer list\n", addr)
	default:
		fmt.Println("Out of Range")
	}
}
