package types

// Event represents a typed event emitted during a state transition. Data holds
// the wire form (8-byte discriminator followed by the borsh payload) that
// off-chain consumers decode; Attributes is the decoded human-readable view
// used by the RPC layer.
type Event struct {
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	TxID       string            `json:"txId,omitempty"`
	Data       []byte            `json:"data,omitempty"`
	Attributes map[string]string `json:"attributes"`
}
