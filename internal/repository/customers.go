package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/car-rental-system/internal/model"
)

func getCustomerByUserID(ctx context.Context, q querier, userID int64) (*model.Customer, error) {
	var c model.Customer
	err := q.QueryRow(ctx,
		`SELECT id, user_id, name, email, phone, address FROM customers WHERE user_id = $1`,
		userID,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

// GetCustomerByUserID возвращает профиль клиента по идентификатору учётной записи.
func (r *PostgresRepository) GetCustomerByUserID(ctx context.Context, userID int64) (*model.Customer, error) {
	return getCustomerByUserID(ctx, r.pool, userID)
}

func (t *pgTx) GetCustomerByUserID(ctx context.Context, userID int64) (*model.Customer, error) {
	return getCustomerByUserID(ctx, t.tx, userID)
}
