//go:build unit

package pricing_test

import (
	"testing"

	"coursereg/internal/domain/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	m, err := pricing.NewMoney(1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), m.Cents())

	_, err = pricing.NewMoney(-1)
	assert.ErrorIs(t, err, pricing.ErrNegativeAmount)
}

func TestSubFloorsAtZero(t *testing.T) {
	base := pricing.MustMoney(500)

	assert.Equal(t, int64(200), base.Sub(pricing.MustMoney(300)).Cents())
	assert.Equal(t, int64(0), base.Sub(pricing.MustMoney(500)).Cents())
	assert.Equal(t, int64(0), base.Sub(pricing.MustMoney(9999)).Cents())
}

func TestPercentRoundsHalfEven(t *testing.T) {
	tests := []struct {
		name  string
		cents int64
		pct   int64
		want  int64
	}{
		{"exact division", 1000, 20, 200},
		{"round down below half", 1001, 10, 100},     // 100.1
		{"round up above half", 1009, 10, 101},       // 100.9
		{"exact tenth", 1050, 10, 105},
		{"half to even, even quotient", 25, 10, 2}, // 2.5 -> 2
		{"half to even, odd quotient", 35, 10, 4},  // 3.5 -> 4
		{"another half to even", 45, 10, 4},        // 4.5 -> 4
		{"zero base", 0, 50, 0},
		{"hundred percent", 777, 100, 777},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pricing.MustMoney(tt.cents).Percent(tt.pct)
			assert.Equal(t, tt.want, got.Cents())
		})
	}
}

func TestMin(t *testing.T) {
	a := pricing.MustMoney(100)
	b := pricing.MustMoney(200)
	assert.Equal(t, int64(100), a.Min(b).Cents())
	assert.Equal(t, int64(100), b.Min(a).Cents())
}
