package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/car-rental-system/internal/model"
)

const carColumns = `c.id, c.model, c.year, c.plate_id, c.daily_rate_cents, c.status, c.office_id,
	c.category, c.transmission, c.fuel_type, c.seating_capacity, c.features, c.description,
	c.created_at, c.updated_at`

func scanCar(row pgx.Row) (*model.Car, error) {
	var (
		c        model.Car
		status   string
		features []byte
	)
	err := row.Scan(&c.ID, &c.Model, &c.Year, &c.PlateID, &c.DailyRateCents, &status, &c.OfficeID,
		&c.Category, &c.Transmission, &c.FuelType, &c.SeatingCapacity, &features, &c.Description,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Status = model.CarStatus(status)
	c.Features = features
	return &c, nil
}

func getCar(ctx context.Context, q querier, carID int64, forUpdate bool) (*model.Car, error) {
	query := `SELECT ` + carColumns + ` FROM cars c WHERE c.id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	car, err := scanCar(q.QueryRow(ctx, query, carID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCarNotFound
		}
		return nil, fmt.Errorf("get car: %w", err)
	}

	return car, nil
}

// GetCar возвращает автомобиль без блокировки.
func (r *PostgresRepository) GetCar(ctx context.Context, carID int64) (*model.Car, error) {
	return getCar(ctx, r.pool, carID, false)
}

func (t *pgTx) GetCarForUpdate(ctx context.Context, carID int64) (*model.Car, error) {
	return getCar(ctx, t.tx, carID, true)
}

func (t *pgTx) SetCarStatus(ctx context.Context, carID int64, status model.CarStatus) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE cars SET status = $2, updated_at = now() WHERE id = $1`,
		carID, string(status),
	)
	if err != nil {
		return fmt.Errorf("update car status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCarNotFound
	}
	return nil
}
