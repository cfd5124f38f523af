package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/car-rental-system/internal/events"
	"github.com/mmeshcher/car-rental-system/internal/model"
	"github.com/mmeshcher/car-rental-system/internal/repository"
)

// RunStatusReconciler периодически переводит в rented автомобили, у которых
// наступила дата начала выданного бронирования. Блокирует до отмены ctx.
// interval <= 0 отключает сверку.
func (s *Service) RunStatusReconciler(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.ReconcileCarStatuses(ctx)
		}
	}
}

// ReconcileCarStatuses выполняет один проход сверки и возвращает число изменённых автомобилей.
// Ошибки по отдельным автомобилям логируются; они будут повторены на следующем проходе.
func (s *Service) ReconcileCarStatuses(ctx context.Context) int {
	today := s.Today()

	due, err := s.store.ListDueActivations(ctx, today)
	if err != nil {
		s.logger.Error("list due activations", zap.Error(err))
		return 0
	}

	seen := make(map[int64]bool, len(due))
	changed := 0
	for _, r := range due {
		if seen[r.CarID] {
			continue
		}
		seen[r.CarID] = true

		var (
			car *model.Car
			was model.CarStatus
		)
		err := s.store.InTx(ctx, func(tx repository.Tx) error {
			var err error
			car, err = tx.GetCarForUpdate(ctx, r.CarID)
			if err != nil {
				return err
			}
			was = car.Status
			return s.syncCarStatus(ctx, tx, car, today)
		})
		if err != nil {
			s.logger.Warn("reconcile car status",
				zap.Int64("carID", r.CarID),
				zap.Int64("reservationID", r.ID),
				zap.Error(err),
			)
			continue
		}

		if car.Status != was {
			changed++
			s.logger.Info("car status reconciled",
				zap.Int64("carID", car.ID),
				zap.String("from", string(was)),
				zap.String("to", string(car.Status)),
			)
			s.publish(ctx, events.Event{
				Type:           events.CarStatusChanged,
				CarID:          car.ID,
				Status:         string(car.Status),
				PreviousStatus: string(was),
			})
		}
	}

	return changed
}
