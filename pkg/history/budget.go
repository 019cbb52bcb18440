package history

// DefaultBudget is the token budget used when none is configured.
const DefaultBudget = 10_000

// Budget tracks token consumption during one assembly pass.
// Allocations are never rolled back.
type Budget struct {
	max      int
	consumed int
}

// NewBudget creates a budget of max tokens. A non-positive max selects DefaultBudget.
func NewBudget(max int) *Budget {
	if max <= 0 {
		max = DefaultBudget
	}
	return &Budget{max: max}
}

// CanAllocate reports whether n more tokens fit.
func (b *Budget) CanAllocate(n int) bool {
	return b.consumed+n <= b.max
}

// Allocate consumes n tokens, even past the limit.
func (b *Budget) Allocate(n int) {
	if n > 0 {
		b.consumed += n
	}
}

// Remaining returns the tokens still available, never negative.
func (b *Budget) Remaining() int {
	return max(b.max-b.consumed, 0)
}

func (b *Budget) Max() int      { return b.max }
func (b *Budget) Consumed() int { return b.consumed }
