// Package postgres implements the expense store on PostgreSQL via pgx.
// It is the backend of choice when multiple processes serve the ledger:
// idempotency rests on the database's conditional insert, never on
// anything in-process.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"expensed/internal/core"
	"expensed/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// Store is a handle over a lazily created pgx pool. The first operation
// creates the pool, pings, and applies the idempotent schema; concurrent
// first operations share that attempt.
type Store struct {
	dsn  string
	conn func() (*pgxpool.Pool, error)

	mu   sync.Mutex
	pool *pgxpool.Pool
}

func New(dsn string) *Store {
	s := &Store{dsn: dsn}
	s.conn = sync.OnceValues(s.open)
	return s
}

var _ store.ExpenseStore = (*Store)(nil)

func (s *Store) open() (*pgxpool.Pool, error) {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s.mu.Lock()
	s.pool = pool
	s.mu.Unlock()
	return pool, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}

const expenseColumns = "id, amount_cents, category, description, date, created_at, idempotency_key"

func (s *Store) CreateOrGet(ctx context.Context, e core.Expense) (store.WriteOutcome, error) {
	pool, err := s.conn()
	if err != nil {
		return store.WriteOutcome{}, err
	}

	tag, err := pool.Exec(ctx, `
		INSERT INTO expenses (`+expenseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING`,
		e.ID, e.Amount.Cents, string(e.Category), e.Description, e.Date,
		e.CreatedAt.UTC(), nullableKey(e.IdempotencyKey))
	if err != nil {
		if isUniqueViolation(err) {
			return store.WriteOutcome{}, store.ErrDuplicateKey
		}
		return store.WriteOutcome{}, fmt.Errorf("insert expense: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return store.WriteOutcome{Expense: e, Created: true}, nil
	}

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
	pool, err := s.conn()
	if err != nil {
		return core.Expense{}, err
	}
	row := pool.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id)
	return scanExpense(row)
}

func (s *Store) GetByIdempotencyKey(ctx context.Context, key string) (core.Expense, error) {
	pool, err := s.conn()
	if err != nil {
		return core.Expense{}, err
	}
	row := pool.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE idempotency_key = $1`, key)
	return scanExpense(row)
}

func (s *Store) Update(ctx context.Context, id string, upd store.UpdateFields) (core.Expense, error) {
	pool, err := s.conn()
	if err != nil {
		return core.Expense{}, err
	}

	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.AmountCents != nil {
		add("amount_cents", *upd.AmountCents)
	}
	if upd.Category != nil {
		add("category", string(*upd.Category))
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Date != nil {
		add("date", *upd.Date)
	}
	if len(sets) == 0 {
		return s.GetByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE expenses SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), expenseColumns)
	return scanExpense(pool.QueryRow(ctx, query, args...))
}

func (s *Store) Delete(ctx context.Context, id string) error {
	pool, err := s.conn()
	if err != nil {
		return err
	}
	tag, err := pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, q store.ListQuery) (store.ListResult, error) {
	pool, err := s.conn()
	if err != nil {
		return store.ListResult{}, err
	}

	where := ""
	var args []any
	if q.Category != nil {
		args = append(args, string(*q.Category))
		where = " WHERE category = $1"
	}

	var total int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM expenses"+where, args...).Scan(&total); err != nil {
		return store.ListResult{}, fmt.Errorf("count expenses: %w", err)
	}

	dir := "DESC"
	if q.Sort == store.SortDateAsc {
		dir = "ASC"
	}
	query := "SELECT " + expenseColumns + " FROM expenses" + where +
		fmt.Sprintf(" ORDER BY date %s, created_at %s, id %s", dir, dir, dir)
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, q.Limit, (q.Page-1)*q.Limit)
	}

	rows, err := pool.Query(ctx, query, args...)
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
	pool, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, `
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
	pool, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, `
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
	pool, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, `SELECT DISTINCT category FROM expenses ORDER BY category ASC`)
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

func scanExpense(row pgx.Row) (core.Expense, error) {
	var (
		e        core.Expense
		category string
		key      *string
	)
	err := row.Scan(&e.ID, &e.Amount.Cents, &category, &e.Description, &e.Date, &e.CreatedAt, &key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Expense{}, store.ErrNotFound
		}
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	e.Category = core.Category(category)
	e.CreatedAt = e.CreatedAt.UTC()
	if key != nil {
		e.IdempotencyKey = *key
	}
	return e, nil
}

func nullableKey(key string) *string {
	if key == "" {
		return nil
	}
	return &key
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
