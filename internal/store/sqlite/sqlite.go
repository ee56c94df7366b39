// Package sqlite implements the expense store on SQLite via the pure-Go
// modernc driver. Schema management goes through golang-migrate with
// embedded migrations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"expensed/internal/core"
	"expensed/internal/store"

	_ "modernc.org/sqlite"
)

// Store is a handle over a lazily established SQLite connection. The first
// operation opens the database and runs migrations; concurrent first
// operations all await that single attempt. Close is safe before init.
type Store struct {
	path string
	conn func() (*sql.DB, error)

	mu sync.Mutex
	db *sql.DB
}

func New(path string) *Store {
	s := &Store{path: path}
	s.conn = sync.OnceValues(s.open)
	return s
}

var _ store.ExpenseStore = (*Store)(nil)

func (s *Store) open() (*sql.DB, error) {
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(s.path); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s.mu.Lock()
	s.db = db
	s.mu.Unlock()
	return db, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

const expenseColumns = "id, amount_cents, category, description, date, created_at, idempotency_key"

func (s *Store) CreateOrGet(ctx context.Context, e core.Expense) (store.WriteOutcome, error) {
	db, err := s.conn()
	if err != nil {
		return store.WriteOutcome{}, err
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO expenses (`+expenseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		e.ID, e.Amount.Cents, string(e.Category), e.Description, e.Date,
		e.CreatedAt.UTC().Format(core.CreatedAtLayout), nullableKey(e.IdempotencyKey))
	if err != nil {
		if isUniqueViolation(err) {
			return store.WriteOutcome{}, store.ErrDuplicateKey
		}
		return store.WriteOutcome{}, fmt.Errorf("insert expense: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return store.WriteOutcome{}, fmt.Errorf("insert expense: %w", err)
	}
	if n > 0 {
		return store.WriteOutcome{Expense: e, Created: true}, nil
	}

	// The conditional write was suppressed: a record with this key exists.
	existing, err := s.GetByIdempotencyKey(ctx, e.IdempotencyKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.WriteOutcome{}, store.ErrDuplicateKey
		}
		return store.WriteOutcome{}, err
	}
	return store.WriteOutcome{Expense: existing, Created: false}, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (core.Expense, error) {
	db, err := s.conn()
	if err != nil {
		return core.Expense{}, err
	}
	row := db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	return scanExpense(row)
}

func (s *Store) GetByIdempotencyKey(ctx context.Context, key string) (core.Expense, error) {
	db, err := s.conn()
	if err != nil {
		return core.Expense{}, err
	}
	row := db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE idempotency_key = ?`, key)
	return scanExpense(row)
}

func (s *Store) Update(ctx context.Context, id string, upd store.UpdateFields) (core.Expense, error) {
	db, err := s.conn()
	if err != nil {
		return core.Expense{}, err
	}

	var sets []string
	var args []any
	if upd.AmountCents != nil {
		sets = append(sets, "amount_cents = ?")
		args = append(args, *upd.AmountCents)
	}
	if upd.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, string(*upd.Category))
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, *upd.Date)
	}
	if len(sets) == 0 {
		return s.GetByID(ctx, id)
	}

	args = append(args, id)
	res, err := db.ExecContext(ctx, "UPDATE expenses SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if n == 0 {
		return core.Expense{}, store.ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, q store.ListQuery) (store.ListResult, error) {
	db, err := s.conn()
	if err != nil {
		return store.ListResult{}, err
	}

	where := ""
	var whereArgs []any
	if q.Category != nil {
		where = " WHERE category = ?"
		whereArgs = append(whereArgs, string(*q.Category))
	}

	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM expenses"+where, whereArgs...).Scan(&total); err != nil {
		return store.ListResult{}, fmt.Errorf("count expenses: %w", err)
	}

	dir := "DESC"
	if q.Sort == store.SortDateAsc {
		dir = "ASC"
	}
	// created_at is fixed-width UTC text, so textual order is time order;
	// rowid settles exact-timestamp ties by insertion order.
	query := "SELECT " + expenseColumns + " FROM expenses" + where +
		fmt.Sprintf(" ORDER BY date %s, created_at %s, rowid %s", dir, dir, dir)
	args := whereArgs
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, (q.Page-1)*q.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return store.ListResult{}, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var items []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return store.ListResult{}, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return store.ListResult{}, fmt.Errorf("list expenses: %w", err)
	}
	return store.ListResult{Items: items, Total: total}, nil
}

func (s *Store) MonthlyStats(ctx context.Context) ([]store.MonthlyStat, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT substr(date, 1, 7) AS month, SUM(amount_cents), COUNT(*)
		FROM expenses
		GROUP BY month
		ORDER BY month DESC
		LIMIT 12`)
	if err != nil {
		return nil, fmt.Errorf("monthly stats: %w", err)
	}
	defer rows.Close()

	var stats []store.MonthlyStat
	for rows.Next() {
		var st store.MonthlyStat
		if err := rows.Scan(&st.Month, &st.TotalCents, &st.Count); err != nil {
			return nil, fmt.Errorf("scan monthly stat: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monthly stats: %w", err)
	}
	return stats, nil
}

func (s *Store) CategoryStats(ctx context.Context) ([]store.CategoryStat, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT category, SUM(amount_cents) AS total, COUNT(*)
		FROM expenses
		GROUP BY category
		ORDER BY total DESC, category ASC`)
	if err != nil {
		return nil, fmt.Errorf("category stats: %w", err)
	}
	defer rows.Close()

	var stats []store.CategoryStat
	for rows.Next() {
		var st store.CategoryStat
		if err := rows.Scan(&st.Category, &st.TotalCents, &st.Count); err != nil {
			return nil, fmt.Errorf("scan category stat: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("category stats: %w", err)
	}
	return stats, nil
}

func (s *Store) DistinctCategories(ctx context.Context) ([]string, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT category FROM expenses ORDER BY category ASC`)
	if err != nil {
		return nil, fmt.Errorf("distinct categories: %w", err)
	}
	defer rows.Close()

	var cats []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("distinct categories: %w", err)
	}
	return cats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e         core.Expense
		category  string
		createdAt string
		key       sql.NullString
	)
	err := row.Scan(&e.ID, &e.Amount.Cents, &category, &e.Description, &e.Date, &createdAt, &key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Expense{}, store.ErrNotFound
		}
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	e.Category = core.Category(category)
	e.CreatedAt, err = time.Parse(core.CreatedAtLayout, createdAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if key.Valid {
		e.IdempotencyKey = key.String
	}
	return e, nil
}

func nullableKey(key string) any {
	if key == "" {
		return nil
	}
	return key
}

// isUniqueViolation sniffs the engine's constraint error. Only this store
// knows the encoding; everything above sees store.ErrDuplicateKey.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
