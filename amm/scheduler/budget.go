package scheduler

// Budget counts order book calls (place, cancel, settle) within one
// instruction.
type Budget struct {
	limit uint64
	used  uint64
}

func NewBudget(limit uint64) *Budget {
	return &Budget{limit: limit}
}

// Take reserves one call, returning false once the budget is spent.
func (b *Budget) Take() bool {
	if b.used >= b.limit {
		return false
	}
	b.used++
	return true
}

func (b *Budget) Remaining() uint64 {
	return b.limit - b.used
}

func (b *Budget) Used() uint64 {
	return b.used
}
