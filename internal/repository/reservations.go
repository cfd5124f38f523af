package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/car-rental-system/internal/model"
)

const reservationColumns = `r.id, r.car_id, r.customer_id, r.start_date, r.end_date, r.status,
	r.total_cost_cents, r.created_at, r.updated_at`

func scanReservation(row pgx.Row) (*model.Reservation, error) {
	var (
		res    model.Reservation
		status string
	)
	err := row.Scan(&res.ID, &res.CarID, &res.CustomerID, &res.Range.Start, &res.Range.End, &status,
		&res.TotalCostCents, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	res.Status = model.ReservationStatus(status)
	return &res, nil
}

func collectReservations(rows pgx.Rows) ([]model.Reservation, error) {
	defer rows.Close()

	var res []model.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		res = append(res, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

func (t *pgTx) FindOverlapping(ctx context.Context, carID int64, dr model.DateRange, excludeID int64) ([]model.Reservation, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations r
		 WHERE r.car_id = $1
		   AND r.status = ANY($2)
		   AND r.start_date < $4
		   AND r.end_date > $3
		   AND r.id <> $5
		 ORDER BY r.start_date`,
		carID, model.LiveReservationStatuses(), dr.Start, dr.End, excludeID,
	)
	if err != nil {
		return nil, fmt.Errorf("select overlapping reservations: %w", err)
	}
	return collectReservations(rows)
}

func (t *pgTx) FindCovering(ctx context.Context, carID int64, day time.Time) ([]model.Reservation, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations r
		 WHERE r.car_id = $1
		   AND r.start_date <= $3
		   AND ((r.status = ANY($2) AND r.end_date > $3) OR r.status = $4)
		 ORDER BY r.end_date DESC`,
		carID, model.LiveReservationStatuses(), day, string(model.ReservationStatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("select covering reservations: %w", err)
	}
	return collectReservations(rows)
}

func (t *pgTx) GetActiveReservation(ctx context.Context, carID, excludeID int64) (*model.Reservation, error) {
	res, err := scanReservation(t.tx.QueryRow(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations r
		 WHERE r.car_id = $1 AND r.status = $2 AND r.id <> $3
		 ORDER BY r.start_date
		 LIMIT 1`,
		carID, string(model.ReservationStatusActive), excludeID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("get active reservation: %w", err)
	}
	return res, nil
}

func (t *pgTx) CreateReservation(ctx context.Context, r *model.Reservation) error {
	var status string
	err := t.tx.QueryRow(ctx,
		`INSERT INTO reservations (car_id, customer_id, start_date, end_date, status, total_cost_cents)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, status, created_at, updated_at`,
		r.CarID, r.CustomerID, r.Range.Start, r.Range.End,
		string(model.ReservationStatusPending), r.TotalCostCents,
	).Scan(&r.ID, &status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	r.Status = model.ReservationStatus(status)
	return nil
}

func getReservation(ctx context.Context, q querier, id int64, forUpdate bool) (*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations r WHERE r.id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	res, err := scanReservation(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

func (t *pgTx) GetReservation(ctx context.Context, id int64, forUpdate bool) (*model.Reservation, error) {
	return getReservation(ctx, t.tx, id, forUpdate)
}

func (t *pgTx) UpdateReservationStatus(ctx context.Context, id int64, from, to model.ReservationStatus) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`UPDATE reservations SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`,
		id, string(from), string(to),
	)
	if err != nil {
		return false, fmt.Errorf("update reservation status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *pgTx) DeleteReservation(ctx context.Context, id, customerID int64) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM reservations WHERE id = $1 AND customer_id = $2`,
		id, customerID,
	)
	if err != nil {
		return false, fmt.Errorf("delete reservation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListDueActivations возвращает выданные бронирования, дата начала которых наступила,
// а автомобиль всё ещё в статусе active.
func (r *PostgresRepository) ListDueActivations(ctx context.Context, day time.Time) ([]model.Reservation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations r
		 JOIN cars c ON c.id = r.car_id
		 WHERE r.status = $1 AND r.start_date <= $2 AND c.status = $3
		 ORDER BY r.car_id`,
		string(model.ReservationStatusActive), day, string(model.CarStatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("select due activations: %w", err)
	}
	return collectReservations(rows)
}

const detailQuery = `SELECT ` + reservationColumns + `, ` + carColumns + `,
	cu.id, cu.user_id, cu.name, cu.email, cu.phone, cu.address,
	p.id, p.amount_cents, p.payment_method, p.payment_status, p.payment_date, p.created_at, p.updated_at
	FROM reservations r
	JOIN cars c ON c.id = r.car_id
	JOIN customers cu ON cu.id = r.customer_id
	LEFT JOIN payments p ON p.reservation_id = r.id`

func scanDetail(row pgx.Row) (*model.ReservationDetail, error) {
	var (
		d          model.ReservationDetail
		resStatus  string
		car        model.Car
		carStatus  string
		features   []byte
		cu         model.Customer
		payID      *int64
		payAmount  *int64
		payMethod  *string
		payStatus  *string
		paidAt     *time.Time
		payCreated *time.Time
		payUpdated *time.Time
	)
	res := &d.Reservation
	err := row.Scan(
		&res.ID, &res.CarID, &res.CustomerID, &res.Range.Start, &res.Range.End, &resStatus,
		&res.TotalCostCents, &res.CreatedAt, &res.UpdatedAt,
		&car.ID, &car.Model, &car.Year, &car.PlateID, &car.DailyRateCents, &carStatus, &car.OfficeID,
		&car.Category, &car.Transmission, &car.FuelType, &car.SeatingCapacity, &features, &car.Description,
		&car.CreatedAt, &car.UpdatedAt,
		&cu.ID, &cu.UserID, &cu.Name, &cu.Email, &cu.Phone, &cu.Address,
		&payID, &payAmount, &payMethod, &payStatus, &paidAt, &payCreated, &payUpdated,
	)
	if err != nil {
		return nil, err
	}

	res.Status = model.ReservationStatus(resStatus)
	car.Status = model.CarStatus(carStatus)
	car.Features = features
	d.Car = &car
	d.Customer = &cu

	if payID != nil {
		d.Payment = &model.Payment{
			ID:            *payID,
			ReservationID: res.ID,
			AmountCents:   *payAmount,
			Method:        model.PaymentMethod(*payMethod),
			Status:        model.PaymentStatus(*payStatus),
			PaidAt:        paidAt,
			CreatedAt:     *payCreated,
			UpdatedAt:     *payUpdated,
		}
	}

	return &d, nil
}

func (r *PostgresRepository) listDetails(ctx context.Context, where string, args ...any) ([]model.ReservationDetail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+` `+where+` ORDER BY r.created_at DESC, r.id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("select reservations: %w", err)
	}
	defer rows.Close()

	var res []model.ReservationDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		res = append(res, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListReservationsByCustomer возвращает бронирования клиента, новые первыми.
func (r *PostgresRepository) ListReservationsByCustomer(ctx context.Context, customerID int64) ([]model.ReservationDetail, error) {
	return r.listDetails(ctx, `WHERE r.customer_id = $1`, customerID)
}

// ListReservations возвращает все бронирования, новые первыми.
func (r *PostgresRepository) ListReservations(ctx context.Context) ([]model.ReservationDetail, error) {
	return r.listDetails(ctx, ``)
}

// GetReservationDetail возвращает бронирование вместе с автомобилем, клиентом и платежом.
func (r *PostgresRepository) GetReservationDetail(ctx context.Context, id int64) (*model.ReservationDetail, error) {
	d, err := scanDetail(r.pool.QueryRow(ctx, detailQuery+` WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("get reservation detail: %w", err)
	}
	return d, nil
}
