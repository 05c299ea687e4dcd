package sales

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("sales: not found")

// Field is one stored column of a transaction row, in column order.
// Terminals receive the row as key=value pairs, so order is part of
// the observable reply.
type Field struct {
	Key   string
	Value string
}

// Repository provides PostgreSQL backed persistence for transactions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TransactionByID fetches all stored columns of one transaction as an
// ordered field list.
func (r *Repository) TransactionByID(ctx context.Context, transactionID string) ([]Field, error) {
	query := `
		SELECT id, transaction_id, customer_id, employee_id, ts,
		       subtotal, tax_amount, discount_amount, total_amount,
		       payment_method, status
		FROM transactions
		WHERE transaction_id = $1
	`
	var (
		id                             int64
		txID, employeeID               string
		customerID                     *string
		ts                             time.Time
		subtotal, tax, discount, total decimal.Decimal
		paymentMethod, status          string
	)
	err := r.pool.QueryRow(ctx, query, transactionID).Scan(
		&id, &txID, &customerID, &employeeID, &ts,
		&subtotal, &tax, &discount, &total,
		&paymentMethod, &status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	customer := ""
	if customerID != nil {
		customer = *customerID
	}
	return []Field{
		{"id", strconv.FormatInt(id, 10)},
		{"transaction_id", txID},
		{"customer_id", customer},
		{"employee_id", employeeID},
		{"timestamp", ts.UTC().Format("2006-01-02T15:04:05")},
		{"subtotal", subtotal.StringFixed(2)},
		{"tax_amount", tax.StringFixed(2)},
		{"discount_amount", discount.StringFixed(2)},
		{"total_amount", total.StringFixed(2)},
		{"payment_method", paymentMethod},
		{"status", status},
	}, nil
}
