package domain

import "fmt"

// Currency tags a Money amount. Only JPY is supported today.
type Currency string

// JPY is the Japanese yen. Amounts are whole yen (no fractional unit).
const JPY Currency = "JPY"

// Money is an amount in minor units plus a currency tag.
// Arithmetic between mismatched currencies fails.
type Money struct {
	Amount   int64    `json:"amount"`
	Currency Currency `json:"currency"`
}

// NewMoney creates a Money value. Negative amounts are rejected.
func NewMoney(amount int64, currency Currency) (Money, error) {
	if amount < 0 {
		return Money{}, &InvalidValueError{Field: "amount", Reason: fmt.Sprintf("must not be negative, got %d", amount)}
	}
	if currency != JPY {
		return Money{}, &InvalidValueError{Field: "currency", Reason: fmt.Sprintf("unsupported currency %q", currency)}
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// Yen creates a JPY amount. It panics on negative input; use NewMoney when
// the amount comes from untrusted data.
func Yen(amount int64) Money {
	m, err := NewMoney(amount, JPY)
	if err != nil {
		panic(err)
	}
	return m
}

// Add returns the sum of two amounts in the same currency.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, &CurrencyMismatchError{Left: m.Currency, Right: other.Currency}
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Multiply scales the amount by a non-negative factor.
func (m Money) Multiply(n int) Money {
	return Money{Amount: m.Amount * int64(n), Currency: m.Currency}
}

// String renders the amount with its currency tag.
func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.Amount, m.Currency)
}
