package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/car-rental-system/internal/model"
)

// Tx: операции, доступные внутри транзакции InTx.
// Методы с блокировкой берут строку FOR UPDATE до конца транзакции.
type Tx interface {
	// GetCarForUpdate блокирует строку автомобиля.
	GetCarForUpdate(ctx context.Context, carID int64) (*model.Car, error)
	SetCarStatus(ctx context.Context, carID int64, status model.CarStatus) error

	// FindOverlapping возвращает живые бронирования автомобиля, пересекающие r.
	// Бронирование excludeID не учитывается; 0 означает учитывать все.
	FindOverlapping(ctx context.Context, carID int64, r model.DateRange, excludeID int64) ([]model.Reservation, error)
	// FindCovering возвращает бронирования, из-за которых автомобиль занят в день day:
	// живые, покрывающие day, и выданные клиенту не позже day.
	FindCovering(ctx context.Context, carID int64, day time.Time) ([]model.Reservation, error)
	// GetActiveReservation возвращает выданное бронирование автомобиля, кроме excludeID.
	GetActiveReservation(ctx context.Context, carID, excludeID int64) (*model.Reservation, error)
	CreateReservation(ctx context.Context, r *model.Reservation) error
	GetReservation(ctx context.Context, id int64, forUpdate bool) (*model.Reservation, error)
	// UpdateReservationStatus меняет статус, только если текущий равен from.
	UpdateReservationStatus(ctx context.Context, id int64, from, to model.ReservationStatus) (bool, error)
	DeleteReservation(ctx context.Context, id, customerID int64) (bool, error)

	CreatePayment(ctx context.Context, p *model.Payment) error
	GetPaymentByReservation(ctx context.Context, reservationID int64, forUpdate bool) (*model.Payment, error)
	MarkPaid(ctx context.Context, reservationID int64, at time.Time) error

	GetCustomerByUserID(ctx context.Context, userID int64) (*model.Customer, error)
}

type pgTx struct {
	tx pgx.Tx
}

var _ Tx = (*pgTx)(nil)
