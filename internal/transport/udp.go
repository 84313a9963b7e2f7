// Package transport moves wire envelopes between peers over UDP, the
// datagram model the reference node used: no per-peer connection state,
// just a fixed list of addresses sent to and read from.
package transport

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/byc-ledger/node/internal/logger"
	"github.com/byc-ledger/node/internal/protocol"
)

// bufSize bounds a single inbound datagram. A longer datagram, such as a
// large chain snapshot, is cut to bufSize bytes on read and Serve does not
// detect the cut; the truncated JSON then fails to decode in the handler.
const bufSize = 4096

// Handler processes one raw, still-encoded datagram from peer.
// *protocol.Dispatcher satisfies it directly through its Dispatch method.
type Handler interface {
	Dispatch(peer string, raw []byte) error
}

// UDPTransport listens for inbound datagrams on one local address and
// sends outbound envelopes to a maintained list of peer addresses.
type UDPTransport struct {
	conn *net.UDPConn

	mu    sync.RWMutex
	peers map[string]*net.UDPAddr
}

// Listen opens a UDP socket on listenAddr (host:port). The returned
// transport has no peers; add them with AddPeer before calling
// Broadcast.
func Listen(listenAddr string) (*UDPTransport, error) {
	addr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve listen address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen udp: %w", err)
	}
	return &UDPTransport{conn: conn, peers: make(map[string]*net.UDPAddr)}, nil
}

// AddPeer registers a peer address (host:port) for broadcast and lookup
// by SendTo.
func (t *UDPTransport) AddPeer(addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("transport: resolve peer address %q: %w", addr, err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers[addr] = udpAddr
	return nil
}

// RemovePeer drops a peer from the broadcast list; Broadcast calls it for
// a peer whose send fails.
func (t *UDPTransport) RemovePeer(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, addr)
}

// Peers returns the current peer address list.
func (t *UDPTransport) Peers() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.peers))
	for addr := range t.peers {
		out = append(out, addr)
	}
	return out
}

// SendTo delivers env to one known peer address.
func (t *UDPTransport) SendTo(peer string, env protocol.Envelope) error {
	t.mu.RLock()
	udpAddr, ok := t.peers[peer]
	t.mu.RUnlock()
	if !ok {
		return fmt.Errorf("transport: unknown peer %q", peer)
	}
	return t.send(udpAddr, env)
}

// Broadcast delivers env to every known peer. A peer that refuses the
// datagram is dropped from the list rather than retried, mirroring the
// reference node's reaction to a reset connection.
func (t *UDPTransport) Broadcast(env protocol.Envelope) error {
	t.mu.RLock()
	addrs := make(map[string]*net.UDPAddr, len(t.peers))
	for k, v := range t.peers {
		addrs[k] = v
	}
	t.mu.RUnlock()

	var firstErr error
	for key, udpAddr := range addrs {
		if err := t.send(udpAddr, env); err != nil {
			logger.Warn("peer unreachable, dropping from peer list", zap.String("peer", key), zap.Error(err))
			t.RemovePeer(key)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (t *UDPTransport) send(addr *net.UDPAddr, env protocol.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("transport: encode envelope: %w", err)
	}
	_, err = t.conn.WriteToUDP(payload, addr)
	return err
}

// Serve reads datagrams until the socket is closed, handing each one to
// handler keyed by the sender's address. It blocks and should be run in
// its own goroutine.
func (t *UDPTransport) Serve(handler Handler) error {
	buf := make([]byte, bufSize)
	for {
		n, addr, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			return fmt.Errorf("transport: read udp: %w", err)
		}
		raw := make([]byte, n)
		copy(raw, buf[:n])
		peer := addr.String()

		go func() {
			if err := handler.Dispatch(peer, raw); err != nil {
				logger.Warn("dispatch failed", zap.String("peer", peer), zap.Error(err))
			}
		}()
	}
}

// Close releases the underlying socket.
func (t *UDPTransport) Close() error {
	return t.conn.Close()
}
