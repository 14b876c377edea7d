package bounty

import "math/bits"

// PlatformFeeBps is the platform's cut of every payout, in basis points.
const PlatformFeeBps = 200

const bpsDenom = 10_000

// checkedAdd returns a+b or ErrOverflow if the sum wraps the u64 range. All
// balance increments must route through here so the error taxonomy stays
// exhaustive.
func checkedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// checkedSub returns a-b or ErrUnderflow if the difference would go below
// zero.
func checkedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrUnderflow
	}
	return diff, nil
}

// platformFee computes floor(gross * PlatformFeeBps / 10000) without
// intermediate overflow, using a 128-bit product.
func platformFee(gross uint64) uint64 {
	hi, lo := bits.Mul64(gross, PlatformFeeBps)
	fee, _ := bits.Div64(hi, lo, bpsDenom)
	return fee
}
