// Package protocol classifies inbound peer messages and routes them to
// the ledger, and builds the outbound messages the ledger's state
// changes require. Apart from the Dispatcher's per-peer rate limiters, it
// owns no state beyond the message taxonomy itself.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/byc-ledger/node/internal/ledger"
)

// MessageType discriminates the four wire message kinds.
type MessageType string

const (
	BroadcastTx    MessageType = "broadcast_tx"
	BroadcastBlock MessageType = "broadcast_block"
	RequestChain   MessageType = "request_chain"
	ResponseChain  MessageType = "response_chain"
)

// Envelope is the outer shape every wire message shares: a type
// discriminator, an opaque content payload, and an index field only
// broadcast_block populates.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Content json.RawMessage `json:"content"`
	Index   *int            `json:"index,omitempty"`
}

// DecodeTx parses an envelope's content as a Transaction.
func (e Envelope) DecodeTx() (ledger.Transaction, error) {
	var tx ledger.Transaction
	if err := json.Unmarshal(e.Content, &tx); err != nil {
		return ledger.Transaction{}, fmt.Errorf("protocol: decode broadcast_tx content: %w", err)
	}
	return tx, nil
}

// DecodeBlock parses an envelope's content as a Block.
func (e Envelope) DecodeBlock() (ledger.Block, error) {
	var b ledger.Block
	if err := json.Unmarshal(e.Content, &b); err != nil {
		return ledger.Block{}, fmt.Errorf("protocol: decode broadcast_block content: %w", err)
	}
	return b, nil
}

// DecodeChainLength parses a request_chain envelope's integer content.
func (e Envelope) DecodeChainLength() (int, error) {
	var n int
	if err := json.Unmarshal(e.Content, &n); err != nil {
		return 0, fmt.Errorf("protocol: decode request_chain content: %w", err)
	}
	return n, nil
}

// DecodeChain parses a response_chain envelope's block list content.
func (e Envelope) DecodeChain() ([]ledger.Block, error) {
	var blocks []ledger.Block
	if err := json.Unmarshal(e.Content, &blocks); err != nil {
		return nil, fmt.Errorf("protocol: decode response_chain content: %w", err)
	}
	return blocks, nil
}

// NewBroadcastTxMessage wraps tx for gossip to peers.
func NewBroadcastTxMessage(tx ledger.Transaction) (Envelope, error) {
	content, err := json.Marshal(tx)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: BroadcastTx, Content: content}, nil
}

// NewBroadcastBlockMessage wraps block along with the position it
// occupies in the sender's chain: the length of the sender's chain
// before the block was appended, pinned per the wire contract's
// definition of index.
func NewBroadcastBlockMessage(block ledger.Block, positionBeforeAppend int) (Envelope, error) {
	content, err := json.Marshal(block)
	if err != nil {
		return Envelope{}, err
	}
	idx := positionBeforeAppend
	return Envelope{Type: BroadcastBlock, Content: content, Index: &idx}, nil
}

// NewRequestChainMessage wraps the requester's own chain length.
func NewRequestChainMessage(localLength int) (Envelope, error) {
	content, err := json.Marshal(localLength)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: RequestChain, Content: content}, nil
}

// NewResponseChainMessage wraps a full chain snapshot.
func NewResponseChainMessage(blocks []ledger.Block) (Envelope, error) {
	content, err := json.Marshal(blocks)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: ResponseChain, Content: content}, nil
}
