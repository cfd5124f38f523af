// Package handler содержит HTTP-обработчики API сервиса проката.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mmeshcher/car-rental-system/internal/middleware"
	"github.com/mmeshcher/car-rental-system/internal/model"
	"github.com/mmeshcher/car-rental-system/internal/service"
	"github.com/mmeshcher/car-rental-system/internal/validation"
)

const maxBodyBytes = 1 << 20

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error
	Location() *time.Location
	Book(ctx context.Context, userID int64, req service.BookingRequest) (*model.ReservationDetail, error)
	MyReservations(ctx context.Context, userID int64) ([]model.ReservationDetail, error)
	ListReservations(ctx context.Context) ([]model.ReservationDetail, error)
	GetReservation(ctx context.Context, id int64) (*model.ReservationDetail, error)
	Transition(ctx context.Context, actor service.Actor, req service.TransitionRequest) (*model.ReservationDetail, error)
	SetCarStatus(ctx context.Context, carID int64, status model.CarStatus) (*model.Car, error)
	DeleteReservation(ctx context.Context, userID, reservationID int64) (bool, error)
}

// Handler реализует HTTP-обработчики API сервиса проката.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	limiter        middleware.Limiter
	validate       *validator.Validate
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// limiter может быть nil: тогда ограничение частоты запросов отключено.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, limiter middleware.Limiter) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		limiter:        limiter,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
	}
}

// CreateReservation бронирует автомобиль от имени текущего клиента.
func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}

	var req createReservationRequest
	if !h.decode(w, r, &req) {
		return
	}

	loc := h.service.Location()
	start, err := validation.ParseDate(req.StartDate, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, string(service.CodeInvalidDateRange), "invalid startDate: "+err.Error())
		return
	}
	end, err := validation.ParseDate(req.EndDate, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, string(service.CodeInvalidDateRange), "invalid endDate: "+err.Error())
		return
	}

	d, err := h.service.Book(r.Context(), id.UserID, service.BookingRequest{
		CarID:  req.CarID,
		Range:  model.DateRange{Start: start, End: end},
		Method: model.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newReservationResponse(d))
}

// MyReservations возвращает бронирования текущего клиента.
func (h *Handler) MyReservations(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}

	res, err := h.service.MyReservations(r.Context(), id.UserID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newReservationList(res))
}

// CancelReservation отменяет бронирование текущего клиента.
func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}

	reservationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	d, err := h.service.Transition(r.Context(), actorOf(id), service.TransitionRequest{
		ReservationID: reservationID,
		To:            model.ReservationStatusCancelled,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newReservationResponse(d))
}

// DeleteReservation удаляет невыданное бронирование текущего клиента.
func (h *Handler) DeleteReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}

	reservationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	deleted, err := h.service.DeleteReservation(r.Context(), id.UserID, reservationID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

// ListReservations возвращает все бронирования (для администратора).
func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListReservations(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newReservationList(res))
}

// GetReservation возвращает бронирование по идентификатору (для администратора).
func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	reservationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	d, err := h.service.GetReservation(r.Context(), reservationID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newReservationResponse(d))
}

// UpdateReservationStatus меняет статус бронирования (для администратора).
func (h *Handler) UpdateReservationStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())

	reservationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req updateReservationStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	tr := service.TransitionRequest{
		ReservationID: reservationID,
		To:            model.ReservationStatus(req.Status),
	}
	if req.ExpectedStatus != nil {
		expected, err := model.ParseReservationStatus(*req.ExpectedStatus)
		if err != nil {
			writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
			return
		}
		tr.Expected = &expected
	}

	d, err := h.service.Transition(r.Context(), actorOf(id), tr)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newReservationResponse(d))
}

// UpdateCarStatus выводит автомобиль из эксплуатации или возвращает в неё (для администратора).
func (h *Handler) UpdateCarStatus(w http.ResponseWriter, r *http.Request) {
	carID, ok := pathID(w, r, "carId")
	if !ok {
		return
	}

	var req updateCarStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	car, err := h.service.SetCarStatus(r.Context(), carID, model.CarStatus(req.Status))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newCarResponse(car))
}

// Health сообщает о доступности сервиса и базы данных.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.service.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func actorOf(id middleware.Identity) service.Actor {
	return service.Actor{UserID: id.UserID, Role: id.Role}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "invalid "+name)
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "invalid JSON body")
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "invalid field "+verrs[0].Field())
			return false
		}
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return false
	}

	return true
}
