package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/car-rental-system/internal/model"
	"github.com/mmeshcher/car-rental-system/internal/repository"
)

func TestBook_ConcurrentRequestsNeverDoubleBook(t *testing.T) {
	svc, store, _ := newTestService(t)

	const workers = 40

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted []int64
		rejected int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			start := 2 + i%10
			userID := aliceUserID
			if i%2 == 1 {
				userID = bobUserID
			}

			d, err := svc.Book(context.Background(), userID, BookingRequest{
				CarID:  carID,
				Range:  span(start, start+1+i%3),
				Method: model.PaymentMethodCash,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				var e *Error
				if assert.True(t, errors.As(err, &e)) {
					assert.Equal(t, CodeDateRangeConflict, e.Code)
				}
				rejected++
				return
			}
			accepted = append(accepted, d.Reservation.ID)
		}(i)
	}
	wg.Wait()

	all := store.allReservations()
	require.Len(t, all, len(accepted))
	assert.Equal(t, workers, len(accepted)+rejected)
	assert.NotEmpty(t, accepted)

	for i := range all {
		for j := i + 1; j < len(all); j++ {
			assert.Falsef(t, all[i].Range.Overlaps(all[j].Range),
				"reservations %d (%s) and %d (%s) overlap", all[i].ID, all[i].Range, all[j].ID, all[j].Range)
		}
	}
}

func TestTransition_ConcurrentPickupOnlyOneWins(t *testing.T) {
	svc, store, _ := newTestService(t)
	d := book(t, svc, aliceUserID, span(1, 3), model.PaymentMethodCash)

	const workers = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		codes     []Code
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := transition(svc, admin, d.Reservation.ID, model.ReservationStatusActive)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			codes = append(codes, CodeOf(err))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	for _, c := range codes {
		assert.Contains(t, []Code{CodeInvalidTransition, CodeStaleState}, c)
	}
	assert.Equal(t, model.CarStatusRented, store.car(carID).Status)
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		err  error
		want Code
	}{
		{repository.ErrBusy, CodeBusy},
		{context.DeadlineExceeded, CodeBusy},
		{repository.ErrCarNotFound, CodeCarNotFound},
		{repository.ErrCustomerNotFound, CodeCustomerProfileMissing},
		{repository.ErrReservationNotFound, CodeNotFound},
		{errors.New("boom"), CodeStorage},
		{newError(CodeStaleState, "x"), CodeStaleState},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			got := translate(tt.err)
			assert.Equal(t, tt.want, CodeOf(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, newError(CodeBusy, "a"), &Error{Code: CodeBusy})
	assert.NotErrorIs(t, newError(CodeBusy, "a"), &Error{Code: CodeStorage})
}
