package utils

import (
	"math"
	"math/big"
	"regexp"
	"strings"

	"github.com/Dan9191/float-report/internal/models"
	"github.com/shopspring/decimal"
)

var (
	amountPattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	currencyMarks = strings.NewReplacer(models.Currency, "", "฿", "", ",", "", " ", "", "\u00a0", "")
)

// ParseAmount converts a portal value into a Balance. Strings may carry
// thousands separators and a currency marker; numeric values pass through.
// Anything that does not parse yields the absent balance
func ParseAmount(raw interface{}) models.Balance {
	switch v := raw.(type) {
	case nil:
		return models.NoBalance
	case string:
		return parseAmountString(v)
	case *string:
		if v == nil {
			return models.NoBalance
		}
		return parseAmountString(*v)
	case float64:
		return fromFloat(v)
	case float32:
		return fromFloat(float64(v))
	case int:
		return fromInt(int64(v))
	case int8:
		return fromInt(int64(v))
	case int16:
		return fromInt(int64(v))
	case int32:
		return fromInt(int64(v))
	case int64:
		return fromInt(v)
	case uint:
		return fromUint(uint64(v))
	case uint8:
		return fromUint(uint64(v))
	case uint16:
		return fromUint(uint64(v))
	case uint32:
		return fromUint(uint64(v))
	case uint64:
		return fromUint(v)
	case decimal.Decimal:
		return models.NewBalance(v)
	case decimal.NullDecimal:
		if !v.Valid {
			return models.NoBalance
		}
		return models.NewBalance(v.Decimal)
	default:
		return models.NoBalance
	}
}

func parseAmountString(s string) models.Balance {
	cleaned := currencyMarks.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return models.NoBalance
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return models.NoBalance
	}
	return models.NewBalance(d)
}

func fromInt(i int64) models.Balance {
	return models.NewBalance(decimal.NewFromInt(i))
}

func fromUint(u uint64) models.Balance {
	return models.NewBalance(decimal.NewFromBigInt(new(big.Int).SetUint64(u), 0))
}

func fromFloat(f float64) models.Balance {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return models.NoBalance
	}
	return models.NewBalance(decimal.NewFromFloat(f))
}

// FirstAmount returns the first number-looking token in free text,
// e.g. "12,345.67" out of "Balance: 12,345.67 THB"
func FirstAmount(text string) (string, bool) {
	m := amountPattern.FindString(text)
	return m, m != ""
}

// FormatAmount renders an amount with two decimals and thousands separators,
// without passing through float64
func FormatAmount(d decimal.Decimal) string {
	fixed := d.StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
