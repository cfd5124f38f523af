// Package events публикует события жизненного цикла бронирований во внешнюю очередь.
package events

import (
	"context"
	"time"
)

// Type: вид события.
type Type string

const (
	ReservationCreated       Type = "reservation.created"
	ReservationStatusChanged Type = "reservation.status_changed"
	ReservationDeleted       Type = "reservation.deleted"
	CarStatusChanged         Type = "car.status_changed"
)

// Event описывает зафиксированное изменение. Публикуется только после коммита.
type Event struct {
	Type           Type      `json:"type"`
	ReservationID  int64     `json:"reservationId,omitempty"`
	CarID          int64     `json:"carId"`
	CustomerID     int64     `json:"customerId,omitempty"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previousStatus,omitempty"`
	StartDate      string    `json:"startDate,omitempty"`
	EndDate        string    `json:"endDate,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// Publisher доставляет события. Ошибка публикации не отменяет уже зафиксированное изменение.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop отбрасывает события; используется, когда брокер не настроен.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

func (Nop) Close() error { return nil }
