package handler

import (
	"encoding/json"
	"time"

	"github.com/mmeshcher/car-rental-system/internal/model"
)

type createReservationRequest struct {
	CarID         int64  `json:"carId" validate:"required,gt=0"`
	StartDate     string `json:"startDate" validate:"required"`
	EndDate       string `json:"endDate" validate:"required"`
	PaymentMethod string `json:"paymentMethod" validate:"required"`
}

type updateReservationStatusRequest struct {
	Status         string  `json:"status" validate:"required"`
	ExpectedStatus *string `json:"expectedStatus,omitempty"`
}

type updateCarStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type carResponse struct {
	ID              int64           `json:"id"`
	Model           string          `json:"model"`
	Year            int             `json:"year"`
	PlateID         string          `json:"plateId"`
	DailyRate       float64         `json:"dailyRate"`
	Status          string          `json:"status"`
	OfficeID        int64           `json:"officeId"`
	Category        string          `json:"category,omitempty"`
	Transmission    string          `json:"transmission,omitempty"`
	FuelType        string          `json:"fuelType,omitempty"`
	SeatingCapacity int             `json:"seatingCapacity,omitempty"`
	Features        json.RawMessage `json:"features,omitempty"`
	Description     *string         `json:"description,omitempty"`
}

type paymentResponse struct {
	ID            int64      `json:"id"`
	Amount        float64    `json:"amount"`
	PaymentMethod string     `json:"paymentMethod"`
	PaymentStatus string     `json:"paymentStatus"`
	PaymentDate   *time.Time `json:"paymentDate,omitempty"`
}

type customerResponse struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

type reservationResponse struct {
	ID         int64             `json:"id"`
	CarID      int64             `json:"carId"`
	CustomerID int64             `json:"customerId"`
	StartDate  string            `json:"startDate"`
	EndDate    string            `json:"endDate"`
	Status     string            `json:"status"`
	TotalCost  float64           `json:"totalCost"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
	Car        *carResponse      `json:"car,omitempty"`
	Payment    *paymentResponse  `json:"payment,omitempty"`
	Customer   *customerResponse `json:"customer,omitempty"`
}

// toUnits переводит сумму из центов в единицы валюты.
func toUnits(cents int64) float64 {
	return float64(cents) / 100
}

func newCarResponse(c *model.Car) *carResponse {
	if c == nil {
		return nil
	}
	return &carResponse{
		ID:              c.ID,
		Model:           c.Model,
		Year:            c.Year,
		PlateID:         c.PlateID,
		DailyRate:       toUnits(c.DailyRateCents),
		Status:          string(c.Status),
		OfficeID:        c.OfficeID,
		Category:        c.Category,
		Transmission:    c.Transmission,
		FuelType:        c.FuelType,
		SeatingCapacity: c.SeatingCapacity,
		Features:        c.Features,
		Description:     c.Description,
	}
}

func newReservationResponse(d *model.ReservationDetail) reservationResponse {
	r := d.Reservation
	resp := reservationResponse{
		ID:         r.ID,
		CarID:      r.CarID,
		CustomerID: r.CustomerID,
		StartDate:  r.Range.Start.Format(model.DateLayout),
		EndDate:    r.Range.End.Format(model.DateLayout),
		Status:     string(r.Status),
		TotalCost:  toUnits(r.TotalCostCents),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		Car:        newCarResponse(d.Car),
	}

	if p := d.Payment; p != nil {
		resp.Payment = &paymentResponse{
			ID:            p.ID,
			Amount:        toUnits(p.AmountCents),
			PaymentMethod: string(p.Method),
			PaymentStatus: string(p.Status),
			PaymentDate:   p.PaidAt,
		}
	}

	if c := d.Customer; c != nil {
		resp.Customer = &customerResponse{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone}
	}

	return resp
}

func newReservationList(details []model.ReservationDetail) []reservationResponse {
	res := make([]reservationResponse, 0, len(details))
	for i := range details {
		res = append(res, newReservationResponse(&details[i]))
	}
	return res
}
