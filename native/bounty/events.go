package bounty

import (
	"bytes"
	"fmt"
	"strconv"

	"vulnera/core/types"
	"vulnera/crypto"
)

// Event type names surfaced through the RPC event log.
const (
	EventTypePaymentProcessed = "bounty.payment_processed"
	EventTypeBountyClosed     = "bounty.closed"
)

// Event discriminators, frozen by the deployed program's IDL. Off-chain
// consumers route event payloads by matching these tags.
var (
	PaymentProcessedDiscriminator = [8]byte{22, 109, 191, 213, 83, 63, 120, 219}
	BountyClosedDiscriminator     = [8]byte{93, 75, 96, 53, 212, 127, 82, 120}
)

// PaymentProcessed is emitted after a successful payout. It is ephemeral:
// written to the event log, never persisted in account state.
type PaymentProcessed struct {
	BountyID     string
	SubmissionID string
	HunterWallet crypto.PublicKey
	Amount       uint64
	PlatformFee  uint64
}

// BountyClosed is emitted when a vault is drained and deallocated.
type BountyClosed struct {
	BountyID        string
	RemainingAmount uint64
}

// MarshalBinary encodes the event in wire form: discriminator plus borsh
// fields in declared order.
func (e *PaymentProcessed) MarshalBinary() []byte {
	w := newBorshWriter(PaymentProcessedDiscriminator)
	w.writeString(e.BountyID)
	w.writeString(e.SubmissionID)
	w.writePublicKey(e.HunterWallet)
	w.writeU64(e.Amount)
	w.writeU64(e.PlatformFee)
	return w.bytes()
}

// MarshalBinary encodes the event in wire form.
func (e *BountyClosed) MarshalBinary() []byte {
	w := newBorshWriter(BountyClosedDiscriminator)
	w.writeString(e.BountyID)
	w.writeU64(e.RemainingAmount)
	return w.bytes()
}

// DecodePaymentProcessed parses a wire-form PaymentProcessed event.
func DecodePaymentProcessed(data []byte) (*PaymentProcessed, error) {
	payload, err := stripEventDiscriminator(data, PaymentProcessedDiscriminator)
	if err != nil {
		return nil, err
	}
	r := &borshReader{data: payload}
	evt := &PaymentProcessed{
		BountyID:     r.readString(),
		SubmissionID: r.readString(),
	}
	if raw := r.take(crypto.PublicKeyLength); raw != nil {
		copy(evt.HunterWallet[:], raw)
	}
	evt.Amount = r.readU64()
	evt.PlatformFee = r.readU64()
	if err := r.finish(); err != nil {
		return nil, err
	}
	return evt, nil
}

// DecodeBountyClosed parses a wire-form BountyClosed event.
func DecodeBountyClosed(data []byte) (*BountyClosed, error) {
	payload, err := stripEventDiscriminator(data, BountyClosedDiscriminator)
	if err != nil {
		return nil, err
	}
	r := &borshReader{data: payload}
	evt := &BountyClosed{
		BountyID:        r.readString(),
		RemainingAmount: r.readU64(),
	}
	if err := r.finish(); err != nil {
		return nil, err
	}
	return evt, nil
}

func stripEventDiscriminator(data []byte, want [8]byte) ([]byte, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("bounty: event payload too short (%d bytes)", len(data))
	}
	if !bytes.Equal(data[:8], want[:]) {
		return nil, fmt.Errorf("bounty: event discriminator mismatch: %x", data[:8])
	}
	return data[8:], nil
}

// NewPaymentProcessedEvent wraps the payout event into the ledger event
// record, carrying both the wire bytes and the decoded attribute view.
func NewPaymentProcessedEvent(e *PaymentProcessed) *types.Event {
	return &types.Event{
		Type: EventTypePaymentProcessed,
		Data: e.MarshalBinary(),
		Attributes: map[string]string{
			"bountyId":     e.BountyID,
			"submissionId": e.SubmissionID,
			"hunterWallet": e.HunterWallet.String(),
			"amount":       strconv.FormatUint(e.Amount, 10),
			"platformFee":  strconv.FormatUint(e.PlatformFee, 10),
		},
	}
}

// NewBountyClosedEvent wraps the closure event into the ledger event record.
func NewBountyClosedEvent(e *BountyClosed) *types.Event {
	return &types.Event{
		Type: EventTypeBountyClosed,
		Data: e.MarshalBinary(),
		Attributes: map[string]string{
			"bountyId":        e.BountyID,
			"remainingAmount": strconv.FormatUint(e.RemainingAmount, 10),
		},
	}
}
