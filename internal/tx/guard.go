package tx

// Per-operation safety ceilings in whole units. They are deliberately separate
// constants and are not configurable.
const (
	NativeTransferCeiling uint64 = 10
	TokenTransferCeiling  uint64 = 100_000
	SwapCeiling           uint64 = 10
)

// Check fails with CodeExceedsCeiling when amount is strictly greater than ceiling.
// It has no side effects and must run before any chain lookup.
func Check(amount Amount, ceiling uint64) error {
	if amount.Exceeds(ceiling) {
		return New(CodeExceedsCeiling, "amount = %s exceeds the safe value = %d", amount, ceiling)
	}
	return nil
}
