package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/markbot/orchestrator/internal/model"
)

type CustomerRepositoryInterface interface {
	Query(ctx context.Context, filter model.CustomerFilter) ([]model.Customer, error)
}

type CustomerRepository struct {
	DB *sql.DB
}

// Query fetches customers matching the audience filter. Filters compose
// with AND; a zero-value filter returns every customer.
func (r *CustomerRepository) Query(ctx context.Context, filter model.CustomerFilter) ([]model.Customer, error) {
	query := `SELECT id, email, name, total_orders, tags, status, created_at FROM customers WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argPos)
		args = append(args, *filter.StartDate)
		argPos++
	}
	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argPos)
		args = append(args, *filter.EndDate)
		argPos++
	}
	if filter.MinOrders > 0 {
		query += fmt.Sprintf(" AND total_orders >= $%d", argPos)
		args = append(args, filter.MinOrders)
		argPos++
	}
	if len(filter.Tags) > 0 {
		query += fmt.Sprintf(" AND tags && $%d", argPos)
		args = append(args, pq.Array(filter.Tags))
		argPos++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, filter.Status)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := []model.Customer{}
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.Email, &c.Name, &c.TotalOrders,
			pq.Array(&c.Tags), &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

var _ CustomerRepositoryInterface = (*CustomerRepository)(nil)
