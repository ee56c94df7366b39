// Package store defines the persistence contract for expense records and
// the query/result types shared by every backend.
package store

import (
	"context"
	"errors"

	"expensed/internal/core"
)

var (
	// ErrNotFound reports an operation against a nonexistent expense id.
	ErrNotFound = errors.New("expense not found")

	// ErrDuplicateKey reports a uniqueness violation on the idempotency key
	// that escaped the conditional write (a concurrent writer won the race).
	// Callers recover by re-reading the winner's record.
	ErrDuplicateKey = errors.New("duplicate idempotency key")
)

// SortOrder selects the listing direction. Date and creation time always
// move together: ties on date break on creation time in the same direction.
type SortOrder string

const (
	SortDateAsc  SortOrder = "date_asc"
	SortDateDesc SortOrder = "date_desc"
)

// WriteOutcome is the result of the atomic conditional write. Created is
// false when a record with the same idempotency key already existed, in
// which case Expense is that pre-existing record.
type WriteOutcome struct {
	Expense core.Expense
	Created bool
}

// UpdateFields carries a partial field replace; nil fields stay untouched.
type UpdateFields struct {
	AmountCents *int64
	Category    *core.Category
	Description *string
	Date        *string
}

// ListQuery filters, orders, and paginates a listing. Limit 0 means every
// matching record as a single page.
type ListQuery struct {
	Category *core.Category
	Sort     SortOrder
	Page     int
	Limit    int
}

// ListResult is the raw page plus the total match count before paging.
type ListResult struct {
	Items []core.Expense
	Total int
}

// MonthlyStat aggregates one calendar month ("YYYY-MM").
type MonthlyStat struct {
	Month      string
	TotalCents int64
	Count      int
}

// CategoryStat aggregates one category.
type CategoryStat struct {
	Category   string
	TotalCents int64
	Count      int
}

// ExpenseStore is the persistence service the core orchestrates. All
// correctness under concurrent duplicate-key submissions rests on
// CreateOrGet being atomic in the backing engine; no backend may rely on
// an application-level mutex shared with its callers.
type ExpenseStore interface {
	// CreateOrGet inserts e unless a record with the same non-empty
	// idempotency key already exists, in which case it returns that record
	// with Created=false. Keyless expenses always insert.
	CreateOrGet(ctx context.Context, e core.Expense) (WriteOutcome, error)

	GetByID(ctx context.Context, id string) (core.Expense, error)
	GetByIdempotencyKey(ctx context.Context, key string) (core.Expense, error)

	// Update applies a partial field replace and returns the updated record.
	Update(ctx context.Context, id string, upd UpdateFields) (core.Expense, error)

	// Delete removes a record, reporting ErrNotFound when nothing matched.
	Delete(ctx context.Context, id string) error

	List(ctx context.Context, q ListQuery) (ListResult, error)

	// MonthlyStats groups by calendar month, newest first, at most 12 groups.
	MonthlyStats(ctx context.Context) ([]MonthlyStat, error)

	// CategoryStats groups by category, largest summed amount first.
	CategoryStats(ctx context.Context) ([]CategoryStat, error)

	// DistinctCategories lists categories in use, sorted lexicographically.
	DistinctCategories(ctx context.Context) ([]string, error)

	Close() error
}
