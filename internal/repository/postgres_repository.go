package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/eaglebank/product-transactions/shared/models"
	"github.com/lib/pq"
)

const transactionsSchema = `
	CREATE TABLE IF NOT EXISTS transactions (
		id           BIGSERIAL PRIMARY KEY,
		title        TEXT NOT NULL DEFAULT '',
		description  TEXT NOT NULL DEFAULT '',
		price        DOUBLE PRECISION NOT NULL DEFAULT 0,
		category     TEXT NOT NULL DEFAULT '',
		image        TEXT NOT NULL DEFAULT '',
		sold         BOOLEAN NOT NULL DEFAULT FALSE,
		date_of_sale TEXT NOT NULL DEFAULT ''
	)
`

// PostgresStore serves transactions from a PostgreSQL table. Rows are returned
// in id order, which is insertion order, to mirror a document store's natural order.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the transactions table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, transactionsSchema); err != nil {
		return fmt.Errorf("failed to create transactions table: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertMany(ctx context.Context, transactions []models.Transaction) (int, error) {
	if len(transactions) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("transactions",
		"title", "description", "price", "category", "image", "sold", "date_of_sale"))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare bulk insert: %w", err)
	}
	for _, t := range transactions {
		if _, err := stmt.ExecContext(ctx,
			t.Title, t.Description, t.Price, t.Category, t.Image, t.Sold, t.DateOfSale,
		); err != nil {
			stmt.Close()
			return 0, fmt.Errorf("failed to insert transaction: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return 0, fmt.Errorf("failed to flush bulk insert: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return 0, fmt.Errorf("failed to close bulk insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transactions: %w", err)
	}
	return len(transactions), nil
}

func (s *PostgresStore) Find(ctx context.Context, filter Filter, page Page) ([]models.Transaction, error) {
	where, args := postgresWhere(filter, nil)
	query := `
		SELECT id, title, description, price, category, image, sold, date_of_sale
		FROM transactions` + where + `
		ORDER BY id`
	if page.Limit > 0 {
		args = append(args, page.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if page.Skip > 0 {
		args = append(args, page.Skip)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	views := []models.Transaction{}
	for rows.Next() {
		var view models.Transaction
		var id int64
		if err := rows.Scan(
			&id, &view.Title, &view.Description, &view.Price,
			&view.Category, &view.Image, &view.Sold, &view.DateOfSale,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		view.ID = fmt.Sprint(id)
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return views, nil
}

func (s *PostgresStore) Statistics(ctx context.Context, filter Filter) (models.Statistics, error) {
	where, args := postgresWhere(filter, nil)
	query := `
		SELECT COALESCE(SUM(price), 0),
		       COUNT(*) FILTER (WHERE sold),
		       COUNT(*) FILTER (WHERE NOT sold)
		FROM transactions` + where

	var stats models.Statistics
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalAmount, &stats.TotalSold, &stats.TotalNotSold,
	); err != nil {
		return models.Statistics{}, fmt.Errorf("failed to aggregate statistics: %w", err)
	}
	return stats, nil
}

func (s *PostgresStore) CountInRange(ctx context.Context, filter Filter, r PriceRange) (int64, error) {
	where, args := postgresWhere(filter, &r)
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count range %s: %w", r.Label, err)
	}
	return n, nil
}

func (s *PostgresStore) CountByCategory(ctx context.Context, filter Filter) ([]models.CategoryCount, error) {
	where, args := postgresWhere(filter, nil)
	query := `
		SELECT category, COUNT(*)
		FROM transactions` + where + `
		GROUP BY category
		ORDER BY category`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate categories: %w", err)
	}
	defer rows.Close()

	counts := []models.CategoryCount{}
	for rows.Next() {
		var c models.CategoryCount
		if err := rows.Scan(&c.Category, &c.ItemCount); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return counts, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close(context.Context) error {
	return s.db.Close()
}

// postgresWhere builds the WHERE clause and positional args for a filter and an
// optional price range. The clause is empty when nothing constrains the query.
func postgresWhere(f Filter, r *PriceRange) (string, []any) {
	var conds []string
	var args []any
	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if p := f.Month.Pattern(); p != "" {
		conds = append(conds, "date_of_sale ~* "+bind(p))
	}
	if p := f.SearchPattern(); p != "" {
		ph := bind(p)
		conds = append(conds, fmt.Sprintf("(title ~* %[1]s OR description ~* %[1]s OR price::text ~* %[1]s)", ph))
	}
	if r != nil {
		op := ">"
		if r.MinInclusive {
			op = ">="
		}
		conds = append(conds, fmt.Sprintf("price %s %s", op, bind(r.Min)))
		if r.Bounded() {
			conds = append(conds, "price <= "+bind(r.Max))
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "\n\t\tWHERE " + strings.Join(conds, " AND "), args
}
