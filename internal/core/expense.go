package core

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date form used for the Date field.
const DateLayout = "2006-01-02"

// CreatedAtLayout is the persisted form of CreatedAt. Fixed-width UTC so
// that textual ordering matches chronological ordering in the stores.
const CreatedAtLayout = "2006-01-02T15:04:05.000000000Z"

// Expense is the persisted ledger entry. Records are owned by the store;
// the rest of the system passes them around by value and never caches them.
type Expense struct {
	ID             string
	Amount         Money
	Category       Category
	Description    string
	Date           string // YYYY-MM-DD
	CreatedAt      time.Time
	IdempotencyKey string // optional; empty means keyless
}

// Month returns the calendar month ("YYYY-MM") the expense falls in.
func (e Expense) Month() string {
	if len(e.Date) < 7 {
		return e.Date
	}
	return e.Date[:7]
}

// CreateExpenseInput is the request-scoped, pre-persistence form of an
// expense. It is only constructed by ParseCreateInput after validation.
type CreateExpenseInput struct {
	Amount         float64 // major units
	Category       string
	Description    string
	Date           string
	IdempotencyKey string
}

// Normalize returns the canonical form of the input: amount display-rounded
// to two decimals, every string field trimmed. Call only on validated input.
func (in CreateExpenseInput) Normalize() CreateExpenseInput {
	return CreateExpenseInput{
		Amount:         RoundAmount(in.Amount),
		Category:       strings.TrimSpace(in.Category),
		Description:    strings.TrimSpace(in.Description),
		Date:           strings.TrimSpace(in.Date),
		IdempotencyKey: strings.TrimSpace(in.IdempotencyKey),
	}
}
