package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmeshcher/car-rental-system/internal/model"
	"github.com/mmeshcher/car-rental-system/internal/repository"
)

// Code: код доменной ошибки. Набор кодов закрыт.
type Code string

const (
	CodeInvalidDateRange                    Code = "InvalidDateRange"
	CodeInvalidPaymentMethod                Code = "InvalidPaymentMethod"
	CodeCarNotFound                         Code = "CarNotFound"
	CodeCarUnavailable                      Code = "CarUnavailable"
	CodeDateRangeConflict                   Code = "DateRangeConflict"
	CodeCustomerProfileMissing              Code = "CustomerProfileMissing"
	CodeInvalidTransition                   Code = "InvalidTransition"
	CodeStaleState                          Code = "StaleState"
	CodeActiveReservationBlocksStatusChange Code = "ActiveReservationBlocksStatusChange"
	CodeBusy                                Code = "Busy"
	CodeNotFound                            Code = "NotFound"
	CodeStorage                             Code = "Storage"
)

// Error: ошибка бизнес-логики, доходящая до HTTP-слоя.
type Error struct {
	Code    Code
	Message string
	// Conflict задаёт занятый диапазон при DateRangeConflict; с даты End автомобиль свободен.
	Conflict *model.DateRange
	// BlockedUntil содержит дату окончания бронирования при ActiveReservationBlocksStatusChange.
	BlockedUntil time.Time
	Err          error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is сравнивает ошибки по коду, так что errors.Is(err, &Error{Code: CodeBusy}) работает.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf возвращает код ошибки; для ошибок вне таксономии CodeStorage.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeStorage
}

// translate приводит ошибки хранилища к доменной таксономии.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	switch {
	case errors.Is(err, repository.ErrBusy), errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: CodeBusy, Message: "resource is busy, retry later", Err: err}
	case errors.Is(err, repository.ErrCarNotFound):
		return &Error{Code: CodeCarNotFound, Message: "car not found", Err: err}
	case errors.Is(err, repository.ErrCustomerNotFound):
		return &Error{Code: CodeCustomerProfileMissing, Message: "customer profile not found", Err: err}
	case errors.Is(err, repository.ErrReservationNotFound):
		return &Error{Code: CodeNotFound, Message: "reservation not found", Err: err}
	}

	return &Error{Code: CodeStorage, Message: "storage error", Err: err}
}
