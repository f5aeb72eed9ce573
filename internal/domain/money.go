package domain

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fraction digits kept for monetary amounts
const MoneyScale = 2

// Money is a fixed-point amount with two fraction digits.
// It serialises to JSON as a quoted string ("1800.00") and to SQL as NUMERIC.
type Money struct {
	decimal.Decimal
}

// Zero is the zero amount
var Zero = Money{Decimal: decimal.Zero}

// NewMoney parses a decimal string such as "1800.00"
func NewMoney(value string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, fmt.Errorf("invalid money amount %q: %w", value, err)
	}
	return Money{Decimal: d.Round(MoneyScale)}, nil
}

// MustMoney is NewMoney for literals known to be valid
func MustMoney(value string) Money {
	m, err := NewMoney(value)
	if err != nil {
		panic(err)
	}
	return m
}

// MoneyFromInt converts a whole amount
func MoneyFromInt(value int64) Money {
	return Money{Decimal: decimal.NewFromInt(value)}
}

// Plus returns m + other
func (m Money) Plus(other Money) Money {
	return Money{Decimal: m.Decimal.Add(other.Decimal)}
}

// Times returns m multiplied by a quantity
func (m Money) Times(quantity int) Money {
	return Money{Decimal: m.Decimal.Mul(decimal.NewFromInt(int64(quantity)))}
}

// ApplyRate returns m multiplied by rate, rounded half away from zero to cents
func (m Money) ApplyRate(rate decimal.Decimal) Money {
	return Money{Decimal: m.Decimal.Mul(rate).Round(MoneyScale)}
}

// Equals compares two amounts numerically
func (m Money) Equals(other Money) bool {
	return m.Decimal.Equal(other.Decimal)
}

func (m Money) String() string {
	return m.Decimal.StringFixed(MoneyScale)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both "12.50" and 12.5
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	m.Decimal = d.Round(MoneyScale)
	return nil
}

func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

func (m *Money) Scan(src interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return err
	}
	m.Decimal = d
	return nil
}
