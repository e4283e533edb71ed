package balances

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/holiman/uint256"
)

var (
	// ErrParse is returned for amounts that are not non-negative integers
	ErrParse = errors.New("amount parse error")
	// ErrOverflow is returned when a total exceeds the 256-bit unsigned range
	ErrOverflow = errors.New("total overflow")
)

// ParseAmount parses a decimal amount string
func ParseAmount(amount string) (*uint256.Int, error) {
	value, err := uint256.FromDecimal(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrParse, amount, err)
	}
	return value, nil
}

// checkedAdd returns a+b or ErrOverflow
func checkedAdd(a, b *uint256.Int, denom string) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("%w: %s exceeds %d bits", ErrOverflow, denom, 256)
	}
	return sum, nil
}

// Totals accumulates base denom -> amount across chains. It only grows during a run and
// is safe for concurrent use.
type Totals struct {
	mu     sync.Mutex
	values map[string]*uint256.Int
}

// NewTotals creates an empty accumulator
func NewTotals() *Totals {
	return &Totals{values: make(map[string]*uint256.Int)}
}

// Add adds amount to the total of a base denom
func (t *Totals) Add(baseDenom string, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addLocked(baseDenom, amount)
}

func (t *Totals) addLocked(baseDenom string, amount *uint256.Int) error {
	current, ok := t.values[baseDenom]
	if !ok {
		current = new(uint256.Int)
	}
	sum, err := checkedAdd(current, amount, baseDenom)
	if err != nil {
		return err
	}
	t.values[baseDenom] = sum
	return nil
}

// Merge adds every subtotal of a chain report. Either all subtotals are applied or,
// on overflow, none are.
func (t *Totals) Merge(subtotals map[string]*uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	staged := make(map[string]*uint256.Int, len(subtotals))
	for denom, amount := range subtotals {
		current, ok := t.values[denom]
		if !ok {
			current = new(uint256.Int)
		}
		sum, err := checkedAdd(current, amount, denom)
		if err != nil {
			return err
		}
		staged[denom] = sum
	}
	for denom, sum := range staged {
		t.values[denom] = sum
	}
	return nil
}

// Get returns a copy of the total for a base denom
func (t *Totals) Get(baseDenom string) (*uint256.Int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	value, ok := t.values[baseDenom]
	if !ok {
		return nil, false
	}
	return new(uint256.Int).Set(value), true
}

// Total is one entry of the final listing
type Total struct {
	BaseDenom string
	Amount    *uint256.Int
}

// Snapshot returns all totals sorted by base denom
func (t *Totals) Snapshot() []Total {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Total, 0, len(t.values))
	for denom, value := range t.values {
		out = append(out, Total{BaseDenom: denom, Amount: new(uint256.Int).Set(value)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BaseDenom < out[j].BaseDenom })
	return out
}

// Len returns the number of base denoms with a total
func (t *Totals) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.values)
}
