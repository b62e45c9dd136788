package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/zombor/ledger-bot/internal/datetime"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS app_user (
	id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	telegram_id bigint NOT NULL UNIQUE,
	username    text,
	first_name  text,
	last_name   text,
	created_at  timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS bank (
	id   uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	name text NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS category (
	id   uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	name text NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS "transaction" (
	id               uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id          uuid NOT NULL REFERENCES app_user(id),
	bank_id          uuid NOT NULL REFERENCES bank(id),
	category_id      uuid NOT NULL REFERENCES category(id),
	type             text NOT NULL CHECK (type IN ('income', 'outcome')),
	description      text,
	amount           numeric NOT NULL,
	transaction_date timestamptz NOT NULL,
	created_at       timestamptz NOT NULL DEFAULT now()
);

-- Amounts are stored at the scale they were entered with.
ALTER TABLE "transaction" ALTER COLUMN amount TYPE numeric;

CREATE INDEX IF NOT EXISTS transaction_user_date_idx ON "transaction" (user_id, transaction_date DESC);
`

// PostgresStore implements Store on the app_user, bank, category and transaction tables.
type PostgresStore struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewPostgresStore connects to url. Timestamps read back are rendered in loc.
func NewPostgresStore(ctx context.Context, url string, loc *time.Location) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresStore{pool: pool, loc: loc}, nil
}

// Migrate creates the tables if they do not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// LookupOrCreateUser implements Store.
func (p *PostgresStore) LookupOrCreateUser(ctx context.Context, user User) (string, error) {
	query := `
		INSERT INTO app_user (telegram_id, username, first_name, last_name)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''))
		ON CONFLICT (telegram_id) DO NOTHING
	`
	if _, err := p.pool.Exec(ctx, query, user.TelegramID, user.Username, user.FirstName, user.LastName); err != nil {
		return "", persistenceError("create user", err)
	}

	var id string
	err := p.pool.QueryRow(ctx, `SELECT id::text FROM app_user WHERE telegram_id = $1`, user.TelegramID).Scan(&id)
	if err != nil {
		return "", persistenceError("lookup user", err)
	}
	return id, nil
}

// LookupOrCreateBank implements Store.
func (p *PostgresStore) LookupOrCreateBank(ctx context.Context, name string) (string, error) {
	return p.lookupOrCreateNamed(ctx, "bank", name)
}

// LookupOrCreateCategory implements Store.
func (p *PostgresStore) LookupOrCreateCategory(ctx context.Context, name string) (string, error) {
	return p.lookupOrCreateNamed(ctx, "category", name)
}

// table is one of the fixed identifiers above, never user input.
func (p *PostgresStore) lookupOrCreateNamed(ctx context.Context, table, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name", ErrMissingRequiredField)
	}

	insert := fmt.Sprintf(`INSERT INTO %s (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, table)
	if _, err := p.pool.Exec(ctx, insert, name); err != nil {
		return "", persistenceError("create "+table, err)
	}

	var id string
	lookup := fmt.Sprintf(`SELECT id::text FROM %s WHERE name = $1`, table)
	if err := p.pool.QueryRow(ctx, lookup, name).Scan(&id); err != nil {
		return "", persistenceError("lookup "+table, err)
	}
	return id, nil
}

// InsertTransaction implements Store.
func (p *PostgresStore) InsertTransaction(ctx context.Context, t *Transaction) error {
	query := `
		INSERT INTO "transaction" (user_id, bank_id, category_id, type, description, amount, transaction_date)
		VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $5, $6::numeric, $7::timestamptz)
		RETURNING id::text, created_at
	`
	err := p.pool.QueryRow(ctx, query,
		t.UserID, t.BankID, t.CategoryID, string(t.Kind), t.Description, t.Amount.String(), t.OccurredAt,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return persistenceError("insert transaction", err)
	}
	return nil
}

// ListBanks implements Store.
func (p *PostgresStore) ListBanks(ctx context.Context) ([]Bank, error) {
	rows, err := p.pool.Query(ctx, `SELECT id::text, name FROM bank ORDER BY name`)
	if err != nil {
		return nil, persistenceError("list banks", err)
	}
	banks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Bank, error) {
		var b Bank
		err := row.Scan(&b.ID, &b.Name)
		return b, err
	})
	if err != nil {
		return nil, persistenceError("list banks", err)
	}
	return banks, nil
}

// ListCategories implements Store.
func (p *PostgresStore) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := p.pool.Query(ctx, `SELECT id::text, name FROM category ORDER BY name`)
	if err != nil {
		return nil, persistenceError("list categories", err)
	}
	categories, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Category, error) {
		var c Category
		err := row.Scan(&c.ID, &c.Name)
		return c, err
	})
	if err != nil {
		return nil, persistenceError("list categories", err)
	}
	return categories, nil
}

// RecentTransactions implements Store.
func (p *PostgresStore) RecentTransactions(ctx context.Context, userID string, limit int) ([]TransactionView, error) {
	query := `
		SELECT t.id::text, t.user_id::text, t.bank_id::text, t.category_id::text, t.type,
		       COALESCE(t.description, ''), t.amount::text, t.transaction_date, t.created_at,
		       b.name, c.name
		FROM "transaction" t
		JOIN bank b ON b.id = t.bank_id
		JOIN category c ON c.id = t.category_id
		WHERE t.user_id = $1::uuid
		ORDER BY t.transaction_date DESC
		LIMIT $2
	`
	rows, err := p.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, persistenceError("list transactions", err)
	}
	defer rows.Close()

	views := make([]TransactionView, 0)
	for rows.Next() {
		var (
			v          TransactionView
			kind       string
			amountText string
			occurredAt time.Time
		)
		err := rows.Scan(&v.ID, &v.UserID, &v.BankID, &v.CategoryID, &kind,
			&v.Description, &amountText, &occurredAt, &v.CreatedAt, &v.BankName, &v.CategoryName)
		if err != nil {
			return nil, persistenceError("scan transaction", err)
		}
		v.Kind = Kind(kind)
		if v.Amount, err = decimal.NewFromString(amountText); err != nil {
			return nil, persistenceError("parse amount", err)
		}
		v.OccurredAt = occurredAt.In(p.loc).Format(datetime.Layout)
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("list transactions", err)
	}
	return views, nil
}

// Summarize implements Store.
func (p *PostgresStore) Summarize(ctx context.Context, userID string) (Summary, error) {
	query := `
		SELECT type, COALESCE(SUM(amount), 0)::text
		FROM "transaction"
		WHERE user_id = $1::uuid
		GROUP BY type
	`
	rows, err := p.pool.Query(ctx, query, userID)
	if err != nil {
		return Summary{}, persistenceError("summarize", err)
	}
	defer rows.Close()

	var summary Summary
	for rows.Next() {
		var kind, total string
		if err := rows.Scan(&kind, &total); err != nil {
			return Summary{}, persistenceError("scan summary", err)
		}
		amount, err := decimal.NewFromString(total)
		if err != nil {
			return Summary{}, persistenceError("parse total", err)
		}
		summary.Add(Kind(kind), amount)
	}
	if err := rows.Err(); err != nil {
		return Summary{}, persistenceError("summarize", err)
	}
	return summary, nil
}

// Close implements Store.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

var _ Store = (*PostgresStore)(nil)
