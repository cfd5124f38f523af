package model

import "fmt"

// ReservationStatus описывает этап жизненного цикла бронирования.
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusCompleted ReservationStatus = "completed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationStatusPending:   {ReservationStatusActive, ReservationStatusCancelled},
	ReservationStatusActive:    {ReservationStatusCompleted, ReservationStatusCancelled},
	ReservationStatusCompleted: {},
	ReservationStatusCancelled: {},
}

// Valid сообщает, является ли статус известным значением.
func (s ReservationStatus) Valid() bool {
	_, ok := reservationTransitions[s]
	return ok
}

// CanTransitionTo сообщает, разрешён ли переход из текущего статуса в target.
func (s ReservationStatus) CanTransitionTo(target ReservationStatus) bool {
	for _, t := range reservationTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Live сообщает, занимает ли бронирование автомобиль на своём диапазоне дат.
func (s ReservationStatus) Live() bool {
	return s == ReservationStatusPending || s == ReservationStatusActive
}

// IsTerminal сообщает, что из статуса нет переходов.
func (s ReservationStatus) IsTerminal() bool {
	return len(reservationTransitions[s]) == 0
}

// ParseReservationStatus преобразует строку в ReservationStatus.
func ParseReservationStatus(s string) (ReservationStatus, error) {
	status := ReservationStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("invalid reservation status: %q", s)
	}
	return status, nil
}

// LiveReservationStatuses возвращает статусы, участвующие в проверке пересечений.
func LiveReservationStatuses() []string {
	return []string{string(ReservationStatusPending), string(ReservationStatusActive)}
}
