// Package service реализует бизнес-логику сервиса проката: бронирование
// автомобилей, жизненный цикл бронирований и статус автомобиля.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/car-rental-system/internal/events"
	"github.com/mmeshcher/car-rental-system/internal/model"
	"github.com/mmeshcher/car-rental-system/internal/repository"
)

// Store описывает контракт доступа к данным, используемый сервисом.
type Store interface {
	Close() error
	Ping(ctx context.Context) error
	InTx(ctx context.Context, fn func(repository.Tx) error) error

	GetCar(ctx context.Context, carID int64) (*model.Car, error)
	GetCustomerByUserID(ctx context.Context, userID int64) (*model.Customer, error)
	ListReservationsByCustomer(ctx context.Context, customerID int64) ([]model.ReservationDetail, error)
	ListReservations(ctx context.Context) ([]model.ReservationDetail, error)
	GetReservationDetail(ctx context.Context, id int64) (*model.ReservationDetail, error)
	ListDueActivations(ctx context.Context, day time.Time) ([]model.Reservation, error)
}

// Actor: пользователь, от имени которого выполняется операция.
type Actor struct {
	UserID int64
	Role   model.Role
}

// IsAdmin сообщает, что действие выполняет администратор.
func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// Service содержит бизнес-логику сервиса проката.
type Service struct {
	store     Store
	publisher events.Publisher
	logger    *zap.Logger
	loc       *time.Location
	now       func() time.Time
}

// NewService создаёт сервис. Даты «сегодня» вычисляются в часовом поясе loc.
func NewService(store Store, publisher events.Publisher, logger *zap.Logger, loc *time.Location) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger,
		loc:       loc,
		now:       time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if err := s.publisher.Close(); err != nil {
		s.logger.Warn("close publisher", zap.Error(err))
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Today возвращает текущую календарную дату сервиса.
func (s *Service) Today() time.Time {
	return model.DateOf(s.now(), s.loc)
}

// Location возвращает часовой пояс сервиса.
func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	e.OccurredAt = s.now().UTC()
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("publish event failed",
			zap.String("type", string(e.Type)),
			zap.Int64("reservationID", e.ReservationID),
			zap.Int64("carID", e.CarID),
			zap.Error(err),
		)
	}
}

func (s *Service) customerID(ctx context.Context, userID int64) (int64, error) {
	c, err := s.store.GetCustomerByUserID(ctx, userID)
	if err != nil {
		return 0, translate(err)
	}
	return c.ID, nil
}

// MyReservations возвращает бронирования текущего клиента.
func (s *Service) MyReservations(ctx context.Context, userID int64) ([]model.ReservationDetail, error) {
	customerID, err := s.customerID(ctx, userID)
	if err != nil {
		return nil, err
	}

	res, err := s.store.ListReservationsByCustomer(ctx, customerID)
	if err != nil {
		return nil, translate(err)
	}
	return res, nil
}

// ListReservations возвращает все бронирования.
func (s *Service) ListReservations(ctx context.Context) ([]model.ReservationDetail, error) {
	res, err := s.store.ListReservations(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return res, nil
}

// GetReservation возвращает бронирование с автомобилем, клиентом и платежом.
func (s *Service) GetReservation(ctx context.Context, id int64) (*model.ReservationDetail, error) {
	d, err := s.store.GetReservationDetail(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return d, nil
}
