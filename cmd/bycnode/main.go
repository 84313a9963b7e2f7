// Command bycnode runs one peer-to-peer ledger node: it listens for
// peer datagrams, serves an interactive operator console, and commits
// transactions and blocks through the ledger package.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/byc-ledger/node/internal/config"
	"github.com/byc-ledger/node/internal/ledger"
	"github.com/byc-ledger/node/internal/logger"
	"github.com/byc-ledger/node/internal/protocol"
	"github.com/byc-ledger/node/internal/transport"
	"github.com/byc-ledger/node/internal/wallet"
)

// session bundles the state the operator console and the background
// peer listener both touch.
type session struct {
	cfg     *config.Config
	ledger  *ledger.Ledger
	udp     *transport.UDPTransport
	dispatch *protocol.Dispatcher
	current *wallet.Wallet
	in      *bufio.Reader
}

func main() {
	configPath := flag.String("config", "byc-node.json", "path to node configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("load config: %v\n", err)
		os.Exit(1)
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Printf("invalid config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogPath); err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	led, err := ledger.New()
	if err != nil {
		fmt.Printf("init ledger: %v\n", err)
		os.Exit(1)
	}

	udp, err := transport.Listen(cfg.ListenAddr)
	if err != nil {
		fmt.Printf("listen: %v\n", err)
		os.Exit(1)
	}
	defer udp.Close()

	for _, peer := range cfg.Peers {
		if err := udp.AddPeer(peer); err != nil {
			fmt.Printf("add peer %s: %v\n", peer, err)
		}
	}

	dispatch := protocol.NewDispatcher(led, udp, 20, 40)
	go func() {
		if err := udp.Serve(dispatch); err != nil {
			logger.Error("peer listener stopped", zap.Error(err))
		}
	}()

	go serveDashboard(cfg.DashboardAddr, led)

	s := &session{cfg: cfg, ledger: led, udp: udp, dispatch: dispatch, in: bufio.NewReader(os.Stdin)}
	fmt.Printf("Working on %s\n", cfg.ListenAddr)
	s.repl()
}

func (s *session) repl() {
	helpInfo := "1 Account\t2 Mine\t3 Transfer\t4 Peers\t5 Update\tD Debug\tE Exit"
	for {
		fmt.Println(helpInfo)
		choice := s.readLine(">")
		switch choice {
		case "1":
			s.accountMenu()
		case "2":
			s.mine()
		case "3":
			s.transfer()
		case "4":
			s.peerMenu()
		case "5":
			s.requestChain()
		case "D", "d":
			s.debugMenu()
		case "E", "e":
			return
		default:
			continue
		}
	}
}

func (s *session) readLine(prompt string) string {
	fmt.Print(prompt)
	line, _ := s.in.ReadString('\n')
	return trimNewline(line)
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func nowTimestamp() ledger.Timestamp {
	return ledger.NewTimestamp(float64(time.Now().UnixNano()) / 1e9)
}
