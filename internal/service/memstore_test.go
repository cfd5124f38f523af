package service

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/mmeshcher/car-rental-system/internal/events"
	"github.com/mmeshcher/car-rental-system/internal/model"
	"github.com/mmeshcher/car-rental-system/internal/repository"
)

// memStore хранит данные в памяти. Транзакции выполняются по одной под общим
// мьютексом; при ошибке состояние откатывается к снимку.
type memStore struct {
	mu sync.Mutex

	cars         map[int64]model.Car
	customers    map[int64]model.Customer
	reservations map[int64]model.Reservation
	payments     map[int64]model.Payment
	nextID       int64

	failOn  string
	failErr error
}

func newMemStore() *memStore {
	return &memStore{
		cars:         map[int64]model.Car{},
		customers:    map[int64]model.Customer{},
		reservations: map[int64]model.Reservation{},
		payments:     map[int64]model.Payment{},
		nextID:       1000,
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) fail(op string) error {
	if s.failOn == op {
		return s.failErr
	}
	return nil
}

func (s *memStore) addCar(c model.Car) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cars[c.ID] = c
}

func (s *memStore) addCustomer(c model.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
}

func (s *memStore) addReservation(r model.Reservation, p *model.Payment) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.id()
	}
	s.reservations[r.ID] = r
	if p != nil {
		p.ReservationID = r.ID
		s.payments[r.ID] = *p
	}
	return r.ID
}

func (s *memStore) car(id int64) model.Car {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cars[id]
}

func (s *memStore) reservation(id int64) (model.Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	return r, ok
}

func (s *memStore) payment(reservationID int64) (model.Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[reservationID]
	return p, ok
}

func (s *memStore) allReservations() []model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]model.Reservation, 0, len(s.reservations))
	for _, r := range s.reservations {
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (s *memStore) Close() error                   { return nil }
func (s *memStore) Ping(ctx context.Context) error { return nil }

func (s *memStore) InTx(ctx context.Context, fn func(repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cars := maps.Clone(s.cars)
	reservations := maps.Clone(s.reservations)
	payments := maps.Clone(s.payments)
	nextID := s.nextID

	if err := fn(&memTx{s: s}); err != nil {
		s.cars, s.reservations, s.payments, s.nextID = cars, reservations, payments, nextID
		return err
	}
	return nil
}

func (s *memStore) GetCar(ctx context.Context, carID int64) (*model.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cars[carID]
	if !ok {
		return nil, repository.ErrCarNotFound
	}
	return &c, nil
}

func (s *memStore) customerByUser(userID int64) (*model.Customer, error) {
	for _, c := range s.customers {
		if c.UserID == userID {
			return &c, nil
		}
	}
	return nil, repository.ErrCustomerNotFound
}

func (s *memStore) GetCustomerByUserID(ctx context.Context, userID int64) (*model.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customerByUser(userID)
}

func (s *memStore) detail(r model.Reservation) model.ReservationDetail {
	d := model.ReservationDetail{Reservation: r}
	if c, ok := s.cars[r.CarID]; ok {
		d.Car = &c
	}
	if cu, ok := s.customers[r.CustomerID]; ok {
		d.Customer = &cu
	}
	if p, ok := s.payments[r.ID]; ok {
		d.Payment = &p
	}
	return d
}

func (s *memStore) listDetails(keep func(model.Reservation) bool) []model.ReservationDetail {
	var res []model.ReservationDetail
	for _, r := range s.reservations {
		if keep(r) {
			res = append(res, s.detail(r))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Reservation.ID > res[j].Reservation.ID })
	return res
}

func (s *memStore) ListReservationsByCustomer(ctx context.Context, customerID int64) ([]model.ReservationDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listDetails(func(r model.Reservation) bool { return r.CustomerID == customerID }), nil
}

func (s *memStore) ListReservations(ctx context.Context) ([]model.ReservationDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListReservations"); err != nil {
		return nil, err
	}
	return s.listDetails(func(model.Reservation) bool { return true }), nil
}

func (s *memStore) GetReservationDetail(ctx context.Context, id int64) (*model.ReservationDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	d := s.detail(r)
	return &d, nil
}

func (s *memStore) ListDueActivations(ctx context.Context, day time.Time) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []model.Reservation
	for _, r := range s.reservations {
		if r.Status == model.ReservationStatusActive && !r.Range.Start.After(day) &&
			s.cars[r.CarID].Status == model.CarStatusActive {
			res = append(res, r)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CarID < res[j].CarID })
	return res, nil
}

type memTx struct {
	s *memStore
}

func (t *memTx) GetCarForUpdate(ctx context.Context, carID int64) (*model.Car, error) {
	if err := t.s.fail("GetCarForUpdate"); err != nil {
		return nil, err
	}
	c, ok := t.s.cars[carID]
	if !ok {
		return nil, repository.ErrCarNotFound
	}
	return &c, nil
}

func (t *memTx) SetCarStatus(ctx context.Context, carID int64, status model.CarStatus) error {
	if err := t.s.fail("SetCarStatus"); err != nil {
		return err
	}
	c, ok := t.s.cars[carID]
	if !ok {
		return repository.ErrCarNotFound
	}
	c.Status = status
	t.s.cars[carID] = c
	return nil
}

func (t *memTx) FindOverlapping(ctx context.Context, carID int64, dr model.DateRange, excludeID int64) ([]model.Reservation, error) {
	var res []model.Reservation
	for _, r := range t.s.reservations {
		if r.CarID == carID && r.ID != excludeID && r.Status.Live() && r.Range.Overlaps(dr) {
			res = append(res, r)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Range.Start.Before(res[j].Range.Start) })
	return res, nil
}

func (t *memTx) FindCovering(ctx context.Context, carID int64, day time.Time) ([]model.Reservation, error) {
	var res []model.Reservation
	for _, r := range t.s.reservations {
		if r.CarID != carID || r.Range.Start.After(day) {
			continue
		}
		if (r.Status.Live() && r.Range.End.After(day)) || r.Status == model.ReservationStatusActive {
			res = append(res, r)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Range.End.After(res[j].Range.End) })
	return res, nil
}

func (t *memTx) GetActiveReservation(ctx context.Context, carID, excludeID int64) (*model.Reservation, error) {
	for _, r := range t.s.reservations {
		if r.CarID == carID && r.ID != excludeID && r.Status == model.ReservationStatusActive {
			return &r, nil
		}
	}
	return nil, repository.ErrReservationNotFound
}

func (t *memTx) CreateReservation(ctx context.Context, r *model.Reservation) error {
	if err := t.s.fail("CreateReservation"); err != nil {
		return err
	}
	r.ID = t.s.id()
	r.Status = model.ReservationStatusPending
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	t.s.reservations[r.ID] = *r
	return nil
}

func (t *memTx) GetReservation(ctx context.Context, id int64, forUpdate bool) (*model.Reservation, error) {
	r, ok := t.s.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	return &r, nil
}

func (t *memTx) UpdateReservationStatus(ctx context.Context, id int64, from, to model.ReservationStatus) (bool, error) {
	if err := t.s.fail("UpdateReservationStatus"); err != nil {
		return false, err
	}
	r, ok := t.s.reservations[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	t.s.reservations[id] = r
	return true, nil
}

func (t *memTx) DeleteReservation(ctx context.Context, id, customerID int64) (bool, error) {
	r, ok := t.s.reservations[id]
	if !ok || r.CustomerID != customerID {
		return false, nil
	}
	delete(t.s.reservations, id)
	delete(t.s.payments, id)
	return true, nil
}

func (t *memTx) CreatePayment(ctx context.Context, p *model.Payment) error {
	if err := t.s.fail("CreatePayment"); err != nil {
		return err
	}
	p.ID = t.s.id()
	t.s.payments[p.ReservationID] = *p
	return nil
}

func (t *memTx) GetPaymentByReservation(ctx context.Context, reservationID int64, forUpdate bool) (*model.Payment, error) {
	p, ok := t.s.payments[reservationID]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	return &p, nil
}

func (t *memTx) MarkPaid(ctx context.Context, reservationID int64, at time.Time) error {
	if err := t.s.fail("MarkPaid"); err != nil {
		return err
	}
	p, ok := t.s.payments[reservationID]
	if !ok || p.Status == model.PaymentStatusPaid {
		return nil
	}
	p.Status = model.PaymentStatusPaid
	p.PaidAt = &at
	t.s.payments[reservationID] = p
	return nil
}

func (t *memTx) GetCustomerByUserID(ctx context.Context, userID int64) (*model.Customer, error) {
	return t.s.customerByUser(userID)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	res := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		res = append(res, e.Type)
	}
	return res
}
