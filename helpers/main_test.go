package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount   int64
		code     string
		expected string
	}{
		{5000, "USD", "50.00 USD"},
		{5000, "JPY", "5000 JPY"},
		{101, "EUR", "1.01 EUR"},
		{7, "CLP", "7 CLP"},
		{-250, "USD", "-2.50 USD"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, FormatAmount(test.amount, test.code))
	}
}

func TestCurrencyExponent(t *testing.T) {
	assert.Equal(t, 2, CurrencyExponent("USD"))
	assert.Equal(t, 0, CurrencyExponent("JPY"))
	assert.Equal(t, 2, CurrencyExponent("not-a-code"))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains([]int{1, 2, 3}, 2))
	assert.False(t, Contains([]int{1, 2, 3}, 4))
	assert.False(t, Contains(nil, 1))
}
