package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/car-rental-system/internal/events"
	"github.com/mmeshcher/car-rental-system/internal/model"
	"github.com/mmeshcher/car-rental-system/internal/repository"
)

// TransitionRequest: запрос на смену статуса бронирования.
// Expected, если задан, должен совпасть с текущим статусом, иначе StaleState.
type TransitionRequest struct {
	ReservationID int64
	To            model.ReservationStatus
	Expected      *model.ReservationStatus
}

// Transition переводит бронирование в новый статус и синхронизирует статусы
// автомобиля и платежа. Блокировки берутся в порядке: автомобиль, бронирование, платёж.
// Клиент может только отменить своё бронирование; чужие для него не существуют.
func (s *Service) Transition(ctx context.Context, actor Actor, req TransitionRequest) (*model.ReservationDetail, error) {
	if !req.To.Valid() {
		return nil, newError(CodeInvalidTransition, "unknown reservation status %q", req.To)
	}

	var ownerID int64
	if !actor.IsAdmin() {
		if req.To != model.ReservationStatusCancelled {
			return nil, newError(CodeInvalidTransition, "customers may only cancel reservations")
		}
		id, err := s.customerID(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		ownerID = id
	}

	today := s.Today()

	var (
		detail model.ReservationDetail
		from   model.ReservationStatus
		carWas model.CarStatus
	)
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		car, res, err := lockReservation(ctx, tx, req.ReservationID, ownerID)
		if err != nil {
			return err
		}
		carWas = car.Status

		if req.Expected != nil && res.Status != *req.Expected {
			return newError(CodeStaleState, "reservation is %s, expected %s", res.Status, *req.Expected)
		}
		if !res.Status.CanTransitionTo(req.To) {
			return newError(CodeInvalidTransition, "cannot move reservation from %s to %s", res.Status, req.To)
		}

		pay, err := tx.GetPaymentByReservation(ctx, res.ID, true)
		if err != nil && !isNotFound(err) {
			return err
		}

		if req.To == model.ReservationStatusActive {
			if err := s.pickup(ctx, tx, car, res, pay); err != nil {
				return err
			}
		}

		ok, err := tx.UpdateReservationStatus(ctx, res.ID, res.Status, req.To)
		if err != nil {
			return err
		}
		if !ok {
			return newError(CodeStaleState, "reservation %d changed concurrently", res.ID)
		}
		from = res.Status
		res.Status = req.To

		if err := s.syncCarStatus(ctx, tx, car, today); err != nil {
			return err
		}

		detail = model.ReservationDetail{Reservation: *res, Car: car, Payment: pay}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	res := detail.Reservation
	s.logger.Info("reservation status changed",
		zap.Int64("reservationID", res.ID),
		zap.String("from", string(from)),
		zap.String("to", string(res.Status)),
		zap.String("carStatus", string(detail.Car.Status)),
	)
	s.publish(ctx, events.Event{
		Type:           events.ReservationStatusChanged,
		ReservationID:  res.ID,
		CarID:          res.CarID,
		CustomerID:     res.CustomerID,
		Status:         string(res.Status),
		PreviousStatus: string(from),
	})
	if detail.Car.Status != carWas {
		s.publish(ctx, events.Event{
			Type:           events.CarStatusChanged,
			CarID:          detail.Car.ID,
			Status:         string(detail.Car.Status),
			PreviousStatus: string(carWas),
		})
	}

	return &detail, nil
}

// lockReservation блокирует автомобиль бронирования, затем само бронирование.
// ownerID != 0 ограничивает поиск бронированиями этого клиента.
func lockReservation(ctx context.Context, tx repository.Tx, id, ownerID int64) (*model.Car, *model.Reservation, error) {
	peek, err := tx.GetReservation(ctx, id, false)
	if err != nil {
		return nil, nil, err
	}
	if ownerID != 0 && peek.CustomerID != ownerID {
		return nil, nil, repository.ErrReservationNotFound
	}

	car, err := tx.GetCarForUpdate(ctx, peek.CarID)
	if err != nil {
		return nil, nil, err
	}

	res, err := tx.GetReservation(ctx, id, true)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return nil, nil, newError(CodeStaleState, "reservation %d was removed concurrently", id)
		}
		return nil, nil, err
	}
	if res.CarID != car.ID {
		return nil, nil, newError(CodeStaleState, "reservation %d changed concurrently", id)
	}

	return car, res, nil
}

// pickup проверяет, что автомобиль можно выдать, и принимает оплату наличными.
func (s *Service) pickup(ctx context.Context, tx repository.Tx, car *model.Car, res *model.Reservation, pay *model.Payment) error {
	if car.Status == model.CarStatusOutOfService {
		return newError(CodeCarUnavailable, "car %d is out of service", car.ID)
	}

	other, err := tx.GetActiveReservation(ctx, car.ID, res.ID)
	if err != nil && !isNotFound(err) {
		return err
	}
	if other != nil {
		return newError(CodeCarUnavailable, "car %d is already picked up under reservation %d", car.ID, other.ID)
	}

	if pay != nil && pay.Method == model.PaymentMethodCash && pay.Status == model.PaymentStatusUnpaid {
		at := s.now().UTC()
		if err := tx.MarkPaid(ctx, res.ID, at); err != nil {
			return err
		}
		pay.Status = model.PaymentStatusPaid
		pay.PaidAt = &at
	}

	return nil
}

// desiredCarStatus вычисляет статус автомобиля по бронированиям:
// rented, если есть выданное бронирование с наступившей датой начала, иначе active.
func desiredCarStatus(ctx context.Context, tx repository.Tx, carID int64, today time.Time) (model.CarStatus, error) {
	active, err := tx.GetActiveReservation(ctx, carID, 0)
	if err != nil {
		if isNotFound(err) {
			return model.CarStatusActive, nil
		}
		return "", err
	}
	if !today.Before(active.Range.Start) {
		return model.CarStatusRented, nil
	}
	return model.CarStatusActive, nil
}

// syncCarStatus: единственное место, где статус автомобиля выводится из бронирований.
// Автомобиль вне эксплуатации не меняется.
func (s *Service) syncCarStatus(ctx context.Context, tx repository.Tx, car *model.Car, today time.Time) error {
	if car.Status == model.CarStatusOutOfService {
		return nil
	}

	want, err := desiredCarStatus(ctx, tx, car.ID, today)
	if err != nil {
		return err
	}
	if want == car.Status {
		return nil
	}

	if err := tx.SetCarStatus(ctx, car.ID, want); err != nil {
		return err
	}
	car.Status = want
	return nil
}

// SetCarStatus выводит автомобиль из эксплуатации или возвращает в неё.
// Вывод запрещён, пока бронирование занимает автомобиль сегодня.
func (s *Service) SetCarStatus(ctx context.Context, carID int64, status model.CarStatus) (*model.Car, error) {
	if status != model.CarStatusOutOfService && status != model.CarStatusActive {
		return nil, newError(CodeInvalidTransition, "car status %q cannot be set directly", status)
	}

	today := s.Today()

	var (
		out    *model.Car
		carWas model.CarStatus
	)
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		car, err := tx.GetCarForUpdate(ctx, carID)
		if err != nil {
			return err
		}
		carWas = car.Status
		out = car

		if status == model.CarStatusOutOfService {
			if car.Status == model.CarStatusOutOfService {
				return nil
			}
			covering, err := tx.FindCovering(ctx, car.ID, today)
			if err != nil {
				return err
			}
			if len(covering) > 0 {
				block := covering[0]
				return &Error{
					Code: CodeActiveReservationBlocksStatusChange,
					Message: fmt.Sprintf("car is reserved until %s by reservation %d",
						block.Range.End.Format(model.DateLayout), block.ID),
					BlockedUntil: block.Range.End,
				}
			}
			if err := tx.SetCarStatus(ctx, car.ID, model.CarStatusOutOfService); err != nil {
				return err
			}
			car.Status = model.CarStatusOutOfService
			return nil
		}

		switch car.Status {
		case model.CarStatusActive:
			return nil
		case model.CarStatusRented:
			return newError(CodeInvalidTransition, "car %d is rented", car.ID)
		}

		want, err := desiredCarStatus(ctx, tx, car.ID, today)
		if err != nil {
			return err
		}
		if err := tx.SetCarStatus(ctx, car.ID, want); err != nil {
			return err
		}
		car.Status = want
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	if out.Status != carWas {
		s.logger.Info("car status changed",
			zap.Int64("carID", out.ID),
			zap.String("from", string(carWas)),
			zap.String("to", string(out.Status)),
		)
		s.publish(ctx, events.Event{
			Type:           events.CarStatusChanged,
			CarID:          out.ID,
			Status:         string(out.Status),
			PreviousStatus: string(carWas),
		})
	}

	return out, nil
}

// DeleteReservation удаляет невыданное бронирование клиента вместе с платежом.
// Повторное удаление не ошибка: возвращается false.
func (s *Service) DeleteReservation(ctx context.Context, userID, reservationID int64) (bool, error) {
	ownerID, err := s.customerID(ctx, userID)
	if err != nil {
		return false, err
	}

	var (
		deleted bool
		res     *model.Reservation
	)
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		_, res, err = lockReservation(ctx, tx, reservationID, ownerID)
		if err != nil {
			if isNotFound(err) || errors.Is(err, &Error{Code: CodeStaleState}) {
				return nil
			}
			return err
		}

		if res.Status == model.ReservationStatusActive {
			return newError(CodeInvalidTransition, "active reservation %d cannot be deleted", res.ID)
		}

		deleted, err = tx.DeleteReservation(ctx, res.ID, ownerID)
		return err
	})
	if err != nil {
		return false, translate(err)
	}

	if deleted {
		s.logger.Info("reservation deleted", zap.Int64("reservationID", res.ID))
		s.publish(ctx, events.Event{
			Type:          events.ReservationDeleted,
			ReservationID: res.ID,
			CarID:         res.CarID,
			CustomerID:    res.CustomerID,
			Status:        string(res.Status),
		})
	}

	return deleted, nil
}
