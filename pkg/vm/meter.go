package vm

import "errors"

// ErrCycleLimit is returned when the cycle budget is exhausted.
var ErrCycleLimit = errors.New("cycle limit exceeded")

// CycleMeter tracks the proven cycle count against an optional limit.
type CycleMeter struct {
	consumed uint64
	limit    uint64
	disabled bool
}

// NewCycleMeter creates a meter with the given limit.
// A zero limit disables enforcement.
func NewCycleMeter(limit uint64) *CycleMeter {
	return &CycleMeter{limit: limit, disabled: limit == 0}
}

// Consume charges cost cycles.
// Returns ErrCycleLimit once the budget is exceeded.
func (cm *CycleMeter) Consume(cost uint64) error {
	cm.consumed += cost
	if !cm.disabled && cm.consumed > cm.limit {
		return ErrCycleLimit
	}
	return nil
}

// Consumed returns the total charged cycles.
func (cm *CycleMeter) Consumed() uint64 { return cm.consumed }

// Remaining returns the cycles left, or 0 when unlimited.
func (cm *CycleMeter) Remaining() uint64 {
	if cm.disabled || cm.consumed >= cm.limit {
		return 0
	}
	return cm.limit - cm.consumed
}

// Limit returns the configured limit.
func (cm *CycleMeter) Limit() uint64 { return cm.limit }
