package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"gopkg.in/guregu/null.v4"
	"rental-car-dashboard/internal/domain"
	"rental-car-dashboard/internal/service"
)

// ReservationHandler exposes each reservation transition as one route.
type ReservationHandler struct {
	svc service.ReservationService
}

func NewReservationHandler(svc service.ReservationService) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

func (h *ReservationHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/v1/reservations", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/reservations", h.List).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/reservations/{id}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/reservations/{id}", h.Update).Methods(http.MethodPut, http.MethodPatch)
	r.HandleFunc("/api/v1/reservations/{id}/cancel", h.Cancel).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/reservations/{id}/assign", h.Assign).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/reservations/{id}/unassign", h.Unassign).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/reservations/{id}/depart", h.Depart).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/reservations/{id}/return", h.Return).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/reservations/{id}/settle", h.Settle).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/reservations/{id}/approve", h.Approve).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/reservations/{id}/reject", h.Reject).Methods(http.MethodPost)
}

type listResponse struct {
	Reservations []domain.Reservation `json:"reservations"`
	Total        int32                `json:"total"`
}

type settleResponse struct {
	Reservation *domain.Reservation `json:"reservation"`
	Payment     *domain.Payment     `json:"payment"`
}

type assignRequest struct {
	VehicleID int32 `json:"vehicle_id"`
}

type decisionRequest struct {
	Comment string `json:"comment"`
}

// Odometer and amount are required; a missing field must not read as zero.
type departRequest struct {
	ActualPickupAt time.Time `json:"actual_pickup_at"`
	Odometer       null.Int  `json:"odometer"`
	Fuel           null.Int  `json:"fuel"`
}

type returnRequest struct {
	ActualReturnAt time.Time `json:"actual_return_at"`
	Odometer       null.Int  `json:"odometer"`
	Fuel           null.Int  `json:"fuel"`
}

type settleRequest struct {
	ActualAmount null.Int `json:"actual_amount"`
	Category     string   `json:"category"`
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateReservationInput
	if err := decodeBody(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, total, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.Reservation{}
	}
	writeJSON(w, http.StatusOK, listResponse{Reservations: items, Total: total})
}

func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in service.UpdateReservationInput
	if err := decodeBody(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.simple(w, r, h.svc.Cancel)
}

func (h *ReservationHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	h.simple(w, r, h.svc.UnassignVehicle)
}

func (h *ReservationHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req assignRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.AssignVehicle(r.Context(), id, req.VehicleID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ReservationHandler) Depart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req departRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := requiredInt32("odometer", req.Odometer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in := service.DepartInput{ActualPickupAt: req.ActualPickupAt, Odometer: n, Fuel: req.Fuel}
	res, err := h.svc.Depart(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ReservationHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req returnRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := requiredInt32("odometer", req.Odometer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in := service.ReturnInput{ActualReturnAt: req.ActualReturnAt, Odometer: n, Fuel: req.Fuel}
	res, err := h.svc.Return(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ReservationHandler) Settle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req settleRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := requiredInt32("actual_amount", req.ActualAmount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in := service.SettleInput{ActualAmount: amount, Category: req.Category}
	res, payment, err := h.svc.Settle(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settleResponse{Reservation: res, Payment: payment})
}

func (h *ReservationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.svc.Approve)
}

func (h *ReservationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.svc.Reject)
}

type idTransition func(ctx context.Context, id int32) (*domain.Reservation, error)

func (h *ReservationHandler) simple(w http.ResponseWriter, r *http.Request, fn idTransition) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := fn(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ReservationHandler) decide(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int32, comment string) (*domain.Reservation, error)) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req decisionRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := fn(r.Context(), id, req.Comment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// decodeBody reads a JSON body into v. An empty body is accepted only when
// optional is set.
func decodeBody(r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			if optional {
				return nil
			}
			return domain.NewValidationError("body", "request body is required")
		}
		return domain.NewValidationError("body", fmt.Sprintf("malformed JSON: %v", err))
	}
	return nil
}

func requiredInt32(field string, n null.Int) (int32, error) {
	if !n.Valid {
		return 0, domain.NewValidationError(field, "is required")
	}
	if n.Int64 < math.MinInt32 || n.Int64 > math.MaxInt32 {
		return 0, domain.NewValidationError(field, fmt.Sprintf("%d is out of range", n.Int64))
	}
	return int32(n.Int64), nil
}

func pathID(r *http.Request) (int32, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("id", fmt.Sprintf("invalid reservation id %q", raw))
	}
	return int32(id), nil
}

func parseFilter(r *http.Request) (domain.ReservationFilter, error) {
	q := r.URL.Query()
	var filter domain.ReservationFilter
	verr := &domain.ValidationError{}

	if s := q.Get("status"); s != "" {
		filter.Status = domain.ReservationStatus(s)
	}
	parseInt := func(key string, dst *int32) {
		if s := q.Get(key); s != "" {
			n, err := strconv.ParseInt(s, 10, 32)
			if err != nil || n < 0 {
				verr.Add(key, "must be a non-negative integer")
				return
			}
			*dst = int32(n)
		}
	}
	parseTime := func(key string, dst *time.Time) {
		if s := q.Get(key); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				verr.Add(key, "must be an RFC 3339 timestamp")
				return
			}
			*dst = t
		}
	}
	parseInt("vehicle_id", &filter.VehicleID)
	parseInt("page", &filter.Page)
	parseInt("page_size", &filter.PageSize)
	parseTime("from", &filter.From)
	parseTime("to", &filter.To)

	if !verr.Empty() {
		return filter, verr
	}
	return filter, nil
}
