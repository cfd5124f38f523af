package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mmeshcher/car-rental-system/internal/events"
	"github.com/mmeshcher/car-rental-system/internal/model"
	"github.com/mmeshcher/car-rental-system/internal/repository"
	"github.com/mmeshcher/car-rental-system/internal/validation"
)

// BookingRequest: запрос клиента на бронирование.
type BookingRequest struct {
	CarID  int64
	Range  model.DateRange
	Method model.PaymentMethod
}

// Book создаёт бронирование и платёж в одной транзакции.
// Строка автомобиля блокируется до проверки пересечений, поэтому
// параллельные бронирования одного автомобиля выполняются по очереди.
// Статус автомобиля при бронировании не меняется.
func (s *Service) Book(ctx context.Context, userID int64, req BookingRequest) (*model.ReservationDetail, error) {
	if err := validation.BookingRange(req.Range, s.Today()); err != nil {
		return nil, &Error{Code: CodeInvalidDateRange, Message: err.Error(), Err: err}
	}
	if !req.Method.Valid() {
		return nil, newError(CodeInvalidPaymentMethod, "unknown payment method %q", req.Method)
	}

	var detail model.ReservationDetail
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		car, err := tx.GetCarForUpdate(ctx, req.CarID)
		if err != nil {
			return err
		}
		if car.Status == model.CarStatusOutOfService {
			return newError(CodeCarUnavailable, "car %d is out of service", car.ID)
		}

		conflicts, err := tx.FindOverlapping(ctx, car.ID, req.Range, 0)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return conflictError(conflicts)
		}

		customer, err := tx.GetCustomerByUserID(ctx, userID)
		if err != nil {
			return err
		}

		res := model.Reservation{
			CarID:          car.ID,
			CustomerID:     customer.ID,
			Range:          req.Range,
			TotalCostCents: req.Range.Days() * car.DailyRateCents,
		}
		if err := tx.CreateReservation(ctx, &res); err != nil {
			return err
		}

		pay := model.Payment{
			ReservationID: res.ID,
			AmountCents:   res.TotalCostCents,
			Method:        req.Method,
			Status:        req.Method.InitialStatus(),
		}
		if pay.Status == model.PaymentStatusPaid {
			at := s.now().UTC()
			pay.PaidAt = &at
		}
		if err := tx.CreatePayment(ctx, &pay); err != nil {
			return err
		}

		detail = model.ReservationDetail{
			Reservation: res,
			Car:         car,
			Payment:     &pay,
			Customer:    customer,
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	res := detail.Reservation
	s.logger.Info("reservation created",
		zap.Int64("reservationID", res.ID),
		zap.Int64("carID", res.CarID),
		zap.String("range", res.Range.String()),
		zap.Int64("totalCostCents", res.TotalCostCents),
	)
	s.publish(ctx, events.Event{
		Type:          events.ReservationCreated,
		ReservationID: res.ID,
		CarID:         res.CarID,
		CustomerID:    res.CustomerID,
		Status:        string(res.Status),
		StartDate:     res.Range.Start.Format(model.DateLayout),
		EndDate:       res.Range.End.Format(model.DateLayout),
	})

	return &detail, nil
}

// conflictError сообщает занятый диапазон: от самого раннего начала
// до самого позднего окончания пересекающихся бронирований.
func conflictError(conflicts []model.Reservation) *Error {
	busy := conflicts[0].Range
	for _, c := range conflicts[1:] {
		if c.Range.Start.Before(busy.Start) {
			busy.Start = c.Range.Start
		}
		if c.Range.End.After(busy.End) {
			busy.End = c.Range.End
		}
	}

	return &Error{
		Code: CodeDateRangeConflict,
		Message: "car is already reserved from " + busy.Start.Format(model.DateLayout) +
			" to " + busy.End.Format(model.DateLayout),
		Conflict: &busy,
	}
}

// isNotFound сообщает, что строка отсутствует; для необязательных чтений внутри транзакции.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrReservationNotFound) || errors.Is(err, repository.ErrPaymentNotFound)
}
