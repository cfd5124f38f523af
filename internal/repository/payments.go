package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/car-rental-system/internal/model"
)

func (t *pgTx) CreatePayment(ctx context.Context, p *model.Payment) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO payments (reservation_id, amount_cents, payment_method, payment_status, payment_date)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		p.ReservationID, p.AmountCents, string(p.Method), string(p.Status), p.PaidAt,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (t *pgTx) GetPaymentByReservation(ctx context.Context, reservationID int64, forUpdate bool) (*model.Payment, error) {
	query := `SELECT id, reservation_id, amount_cents, payment_method, payment_status, payment_date, created_at, updated_at
		 FROM payments WHERE reservation_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		p      model.Payment
		method string
		status string
	)
	err := t.tx.QueryRow(ctx, query, reservationID).Scan(
		&p.ID, &p.ReservationID, &p.AmountCents, &method, &status, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	p.Method = model.PaymentMethod(method)
	p.Status = model.PaymentStatus(status)

	return &p, nil
}

// MarkPaid переводит неоплаченный платёж в статус paid; оплаченный не меняется.
func (t *pgTx) MarkPaid(ctx context.Context, reservationID int64, at time.Time) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE payments SET payment_status = $2, payment_date = $3, updated_at = now()
		 WHERE reservation_id = $1 AND payment_status = $4`,
		reservationID, string(model.PaymentStatusPaid), at, string(model.PaymentStatusUnpaid),
	)
	if err != nil {
		return fmt.Errorf("mark payment paid: %w", err)
	}
	return nil
}
