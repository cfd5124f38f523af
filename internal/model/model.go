// Package model содержит доменные сущности сервиса проката автомобилей.
package model

import (
	"encoding/json"
	"time"
)

// CarStatus описывает доступность автомобиля.
type CarStatus string

const (
	CarStatusActive       CarStatus = "active"
	CarStatusRented       CarStatus = "rented"
	CarStatusOutOfService CarStatus = "out_of_service"
)

// Valid сообщает, является ли статус допустимым значением.
func (s CarStatus) Valid() bool {
	switch s {
	case CarStatusActive, CarStatusRented, CarStatusOutOfService:
		return true
	}
	return false
}

// Car описывает автомобиль автопарка. Стоимость суток хранится в центах.
type Car struct {
	ID              int64
	Model           string
	Year            int
	PlateID         string
	DailyRateCents  int64
	Status          CarStatus
	OfficeID        int64
	Category        string
	Transmission    string
	FuelType        string
	SeatingCapacity int
	Features        json.RawMessage
	Description     *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Customer описывает профиль клиента, привязанный к учётной записи.
type Customer struct {
	ID      int64
	UserID  int64
	Name    string
	Email   string
	Phone   *string
	Address *string
}

// Reservation описывает бронирование автомобиля на диапазон дат.
type Reservation struct {
	ID             int64
	CarID          int64
	CustomerID     int64
	Range          DateRange
	Status         ReservationStatus
	TotalCostCents int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PaymentMethod описывает способ оплаты бронирования.
type PaymentMethod string

const (
	PaymentMethodCash       PaymentMethod = "cash"
	PaymentMethodCreditCard PaymentMethod = "credit_card"
)

// Valid сообщает, является ли способ оплаты допустимым значением.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCash || m == PaymentMethodCreditCard
}

// InitialStatus возвращает статус платежа в момент бронирования:
// оплата картой считается проведённой сразу, наличные оплачиваются при выдаче.
func (m PaymentMethod) InitialStatus() PaymentStatus {
	if m == PaymentMethodCreditCard {
		return PaymentStatusPaid
	}
	return PaymentStatusUnpaid
}

// PaymentStatus описывает состояние оплаты.
type PaymentStatus string

const (
	PaymentStatusPaid   PaymentStatus = "paid"
	PaymentStatusUnpaid PaymentStatus = "unpaid"
)

// Payment описывает платёж по бронированию (один к одному).
type Payment struct {
	ID            int64
	ReservationID int64
	AmountCents   int64
	Method        PaymentMethod
	Status        PaymentStatus
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ReservationDetail объединяет бронирование с автомобилем и платежом.
type ReservationDetail struct {
	Reservation Reservation
	Car         *Car
	Payment     *Payment
	Customer    *Customer
}

// Role: роль пользователя из токена доступа.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Valid сообщает, является ли роль известным значением.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}
