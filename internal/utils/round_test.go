package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	cases := []struct {
		in     float64
		places int32
		want   float64
	}{
		{9.8765, 3, 9.877},
		{1.234567, 6, 1.234567},
		{0.3 * 5000 * 0.99, 2, 1485},
		{1.0005, 3, 1.001},
		{0.0004999, 6, 0.0005},
		{-2.5, 0, -3},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Round(tc.in, tc.places), "Round(%v, %d)", tc.in, tc.places)
	}
}

func TestAddSubAvoidDrift(t *testing.T) {
	assert.Equal(t, 0.3, Add(0.1, 0.2, CreditPlaces))
	assert.Equal(t, 0.2, Sub(0.5, 0.3, CreditPlaces))
	assert.Equal(t, 0.5, Add(0.2, 0.3, CreditPlaces))
}

func TestMul(t *testing.T) {
	assert.Equal(t, 1500.0, Mul(0.3, 5000, CashPlaces))
	assert.Equal(t, 1485.0, Mul(1500, 0.99, CashPlaces))
	assert.Equal(t, 0.000857, Mul(0.857, 0.001, CreditPlaces))
	assert.Equal(t, 0.686, Mul(0.857, 0.8, CarbonPlaces))
}
