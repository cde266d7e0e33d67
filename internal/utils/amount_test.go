package utils

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		raw   interface{}
		want  string
		valid bool
	}{
		{name: "thousands separator", raw: "1,234.56", want: "1234.56", valid: true},
		{name: "plain number", raw: "500", want: "500", valid: true},
		{name: "currency suffix", raw: " 2,000.00 THB ", want: "2000", valid: true},
		{name: "baht sign", raw: "฿1,000.5", want: "1000.5", valid: true},
		{name: "negative", raw: "-75.25", want: "-75.25", valid: true},
		{name: "float passes through", raw: 1234.56, want: "1234.56", valid: true},
		{name: "int passes through", raw: 42, want: "42", valid: true},
		{name: "int8 passes through", raw: int8(-3), want: "-3", valid: true},
		{name: "int16 passes through", raw: int16(3), want: "3", valid: true},
		{name: "uint passes through", raw: uint(5), want: "5", valid: true},
		{name: "uint8 passes through", raw: uint8(255), want: "255", valid: true},
		{name: "max uint64 passes through", raw: uint64(math.MaxUint64), want: "18446744073709551615", valid: true},
		{name: "decimal passes through", raw: decimal.RequireFromString("9.99"), want: "9.99", valid: true},
		{name: "not a number", raw: "abc", valid: false},
		{name: "empty string", raw: "   ", valid: false},
		{name: "nil", raw: nil, valid: false},
		{name: "NaN", raw: math.NaN(), valid: false},
		{name: "infinity", raw: math.Inf(1), valid: false},
		{name: "unsupported type", raw: []byte("12"), valid: false},
		{name: "null decimal", raw: decimal.NullDecimal{}, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAmount(tt.raw)
			assert.Equal(t, tt.valid, got.Valid)
			if tt.valid {
				assert.True(t, decimal.RequireFromString(tt.want).Equal(got.Amount), "got %s", got.Amount)
			}
		})
	}
}

func TestFirstAmount(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{text: "Balance: 12,345.67 THB", want: "12,345.67", ok: true},
		{text: "E-Money, Balance 500", want: "500", ok: true},
		{text: "Balance: 1,000", want: "1,000", ok: true},
		{text: "no digits here", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := FirstAmount(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1,234.56", FormatAmount(decimal.RequireFromString("1234.56")))
	assert.Equal(t, "500.00", FormatAmount(decimal.NewFromInt(500)))
	assert.Equal(t, "-50.00", FormatAmount(decimal.NewFromInt(-50)))
	assert.Equal(t, "1,000,000.10", FormatAmount(decimal.RequireFromString("1000000.1")))
	assert.Equal(t, "0.00", FormatAmount(decimal.Zero))
	assert.Equal(t, "999.99", FormatAmount(decimal.RequireFromString("999.994")))
	assert.Equal(t, "1,000.00", FormatAmount(decimal.RequireFromString("999.995")))
	assert.Equal(t, "-123,456.79", FormatAmount(decimal.RequireFromString("-123456.789")))
	assert.Equal(t, "123,456,789,012,345,678.91", FormatAmount(decimal.RequireFromString("123456789012345678.91")))
}
