// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmeshcher/car-rental-system/internal/model"
)

var (
	// ErrStartInPast возвращается, если дата начала раньше текущей даты.
	ErrStartInPast = errors.New("start date is in the past")
	// ErrEndNotAfterStart возвращается, если дата окончания не позже даты начала.
	ErrEndNotAfterStart = errors.New("end date must be after start date")
)

// ParseDate разбирает календарную дату. Принимается формат 2006-01-02
// и RFC 3339; у метки времени отбрасывается время суток в поясе loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}

	if d, err := time.Parse(model.DateLayout, value); err == nil {
		return d, nil
	}

	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}

	return model.DateOf(ts, loc), nil
}

// BookingRange проверяет диапазон нового бронирования относительно today:
// начало не раньше сегодняшнего дня, окончание строго позже начала.
func BookingRange(r model.DateRange, today time.Time) error {
	if r.Start.Before(today) {
		return ErrStartInPast
	}
	if !r.End.After(r.Start) {
		return ErrEndNotAfterStart
	}
	return nil
}
