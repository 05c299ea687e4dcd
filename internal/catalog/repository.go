package catalog

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"
)

// Repository provides PostgreSQL backed persistence for products.
type Repository struct {
	pool  *pgxpool.Pool
	group singleflight.Group
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListProducts returns all products ordered by id. Concurrent calls
// share a single query; many terminals issue PROD_LIST in bursts at
// shift start.
func (r *Repository) ListProducts(ctx context.Context) ([]Product, error) {
	resultChan := r.group.DoChan("prod_list", func() (interface{}, error) {
		return r.queryProducts(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Product), nil
	}
}

func (r *Repository) queryProducts(ctx context.Context) ([]Product, error) {
	query := `SELECT id, name, description, price, stock FROM products ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
