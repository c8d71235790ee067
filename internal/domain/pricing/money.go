package pricing

import (
	"errors"
	"fmt"
)

var ErrNegativeAmount = errors.New("amount cannot be negative")

// Money is an amount in minor currency units (cents). All money arithmetic
// in the engine happens on integers; floats never touch an amount.
type Money struct {
	cents int64
}

func NewMoney(cents int64) (Money, error) {
	if cents < 0 {
		return Money{}, ErrNegativeAmount
	}
	return Money{cents: cents}, nil
}

// MustMoney is for literals in tests and seed data.
func MustMoney(cents int64) Money {
	m, err := NewMoney(cents)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Cents() int64 {
	return m.cents
}

func (m Money) IsZero() bool {
	return m.cents == 0
}

func (m Money) Equals(other Money) bool {
	return m.cents == other.cents
}

func (m Money) LessThan(other Money) bool {
	return m.cents < other.cents
}

// Sub floors at zero; a discount may never produce a negative price.
func (m Money) Sub(other Money) Money {
	if other.cents >= m.cents {
		return Money{}
	}
	return Money{cents: m.cents - other.cents}
}

func (m Money) Min(other Money) Money {
	if other.cents < m.cents {
		return other
	}
	return m
}

// Percent returns pct% of the amount, rounded half-even to the minor unit
// so quoting and later payment reconciliation agree exactly.
func (m Money) Percent(pct int64) Money {
	return Money{cents: divRoundHalfEven(m.cents*pct, 100)}
}

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d", m.cents/100, m.cents%100)
}

// divRoundHalfEven divides non-negative num by positive den using banker's
// rounding.
func divRoundHalfEven(num, den int64) int64 {
	q := num / den
	r := num % den
	switch {
	case r*2 < den:
		return q
	case r*2 > den:
		return q + 1
	case q%2 == 0:
		return q
	default:
		return q + 1
	}
}
