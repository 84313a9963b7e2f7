package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/byc-ledger/node/internal/ledger"
	"github.com/byc-ledger/node/internal/logger"
	"github.com/byc-ledger/node/internal/metrics"
)

// Sender delivers outbound envelopes to one peer or to every known peer.
// The transport layer implements this; the dispatcher never opens a
// connection itself.
type Sender interface {
	SendTo(peer string, env Envelope) error
	Broadcast(env Envelope) error
}

// Dispatcher classifies inbound wire messages and drives the ledger
// accordingly. One Dispatcher serves every peer a node talks to.
type Dispatcher struct {
	ledger *ledger.Ledger
	sender Sender

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	msgRate  rate.Limit
	msgBurst int
}

// NewDispatcher builds a dispatcher over ledger, handing outbound
// messages to sender. msgRate and msgBurst bound how many messages per
// second a single peer address may submit before Dispatch starts
// rejecting them; this defends against one misbehaving or compromised
// peer flooding the dispatcher, not against a Sybil attacker spinning up
// many addresses.
func NewDispatcher(l *ledger.Ledger, sender Sender, msgRate float64, msgBurst int) *Dispatcher {
	return &Dispatcher{
		ledger:   l,
		sender:   sender,
		limiters: make(map[string]*rate.Limiter),
		msgRate:  rate.Limit(msgRate),
		msgBurst: msgBurst,
	}
}

func (d *Dispatcher) limiterFor(peer string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()

	lim, ok := d.limiters[peer]
	if !ok {
		lim = rate.NewLimiter(d.msgRate, d.msgBurst)
		d.limiters[peer] = lim
	}
	return lim
}

// RemovePeer drops a disconnected peer's rate limiter so the map does
// not grow without bound over a node's lifetime.
func (d *Dispatcher) RemovePeer(peer string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.limiters, peer)
}

// Dispatch decodes one inbound frame from peer and routes it. It is
// safe to call concurrently for distinct or identical peers.
func (d *Dispatcher) Dispatch(peer string, raw []byte) error {
	if !d.limiterFor(peer).Allow() {
		logger.Warn("peer message rate exceeded", zap.String("peer", peer))
		return fmt.Errorf("protocol: peer %s exceeded message rate", peer)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("protocol: decode envelope from %s: %w", peer, err)
	}

	switch env.Type {
	case BroadcastTx:
		return d.handleBroadcastTx(peer, env)
	case BroadcastBlock:
		return d.handleBroadcastBlock(peer, env)
	case RequestChain:
		return d.handleRequestChain(peer, env)
	case ResponseChain:
		return d.handleResponseChain(peer, env)
	default:
		return fmt.Errorf("protocol: unknown message type %q from %s", env.Type, peer)
	}
}

func (d *Dispatcher) handleBroadcastTx(peer string, env Envelope) error {
	tx, err := env.DecodeTx()
	if err != nil {
		return err
	}
	if err := d.ledger.ReceiveTx(tx); err != nil {
		logger.Warn("rejected peer transaction", zap.String("peer", peer), zap.Error(err))
		if kind, ok := errorKind(err); ok {
			metrics.IncValidationFailure(kind)
		}
		return err
	}
	return d.sender.Broadcast(env)
}

// handleBroadcastBlock implements the index-based branching a received
// block announcement drives: a block that extends the local tip is
// applied directly; a block behind the local tip means the sender is
// missing blocks the local node already has, so the local chain is sent
// back; a block ahead of the local tip means the local node is behind,
// so a chain request is broadcast to catch up.
func (d *Dispatcher) handleBroadcastBlock(peer string, env Envelope) error {
	if env.Index == nil {
		return fmt.Errorf("protocol: broadcast_block from %s missing index", peer)
	}
	block, err := env.DecodeBlock()
	if err != nil {
		return err
	}

	local := d.ledger.ChainLength()
	switch {
	case *env.Index == local:
		if err := d.ledger.ReceiveBlock(block); err != nil {
			logger.Warn("rejected peer block", zap.String("peer", peer), zap.Error(err))
			if kind, ok := errorKind(err); ok {
				metrics.IncValidationFailure(kind)
			}
			return err
		}
		rebroadcast, err := NewBroadcastBlockMessage(block, local)
		if err != nil {
			return err
		}
		return d.sender.Broadcast(rebroadcast)

	case *env.Index < local:
		resp, err := NewResponseChainMessage(d.ledger.ChainSnapshot())
		if err != nil {
			return err
		}
		return d.sender.SendTo(peer, resp)

	default:
		req, err := NewRequestChainMessage(local)
		if err != nil {
			return err
		}
		return d.sender.Broadcast(req)
	}
}

func (d *Dispatcher) handleRequestChain(peer string, env Envelope) error {
	requesterLen, err := env.DecodeChainLength()
	if err != nil {
		return err
	}
	local := d.ledger.ChainLength()
	if local <= requesterLen {
		return nil
	}
	resp, err := NewResponseChainMessage(d.ledger.ChainSnapshot())
	if err != nil {
		return err
	}
	return d.sender.SendTo(peer, resp)
}

func (d *Dispatcher) handleResponseChain(peer string, env Envelope) error {
	blocks, err := env.DecodeChain()
	if err != nil {
		return err
	}
	if err := d.ledger.ResolveConflicts(blocks); err != nil {
		logger.Warn("fork resolution declined", zap.String("peer", peer), zap.Error(err))
		if kind, ok := errorKind(err); ok {
			metrics.IncValidationFailure(kind)
		}
		return err
	}
	return nil
}

// errorKind extracts the ledger error kind label metrics track, if err
// wraps one.
func errorKind(err error) (string, bool) {
	var lerr *ledger.LedgerError
	if errors.As(err, &lerr) {
		return lerr.Kind.String(), true
	}
	return "", false
}
