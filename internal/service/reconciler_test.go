package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/car-rental-system/internal/model"
)

func TestRunStatusReconciler_Disabled(t *testing.T) {
	svc, _, _ := newTestService(t)
	assert.NoError(t, svc.RunStatusReconciler(context.Background(), 0))
}

func TestRunStatusReconciler_FlipsDueCarAndStops(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addReservation(model.Reservation{
		CarID: carID, CustomerID: aliceID, Range: span(1, 3), Status: model.ReservationStatusActive,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.RunStatusReconciler(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool {
		return store.car(carID).Status == model.CarStatusRented
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop after cancel")
	}
}

func TestReconcile_SkipsOutOfServiceCar(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addCar(model.Car{ID: carID, DailyRateCents: dailyRate50, Status: model.CarStatusOutOfService})
	store.addReservation(model.Reservation{
		CarID: carID, CustomerID: aliceID, Range: span(1, 3), Status: model.ReservationStatusActive,
	}, nil)

	assert.Equal(t, 0, svc.ReconcileCarStatuses(context.Background()))
	assert.Equal(t, model.CarStatusOutOfService, store.car(carID).Status)
}
