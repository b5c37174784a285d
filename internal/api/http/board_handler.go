package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"rental-car-dashboard/internal/board"
	"rental-car-dashboard/internal/domain"
	"rental-car-dashboard/internal/service"
)

// BoardHandler serves the dispatch board: the live event stream and batch
// commits of drag-and-drop reschedules.
type BoardHandler struct {
	svc service.ReservationService
	hub *board.Hub
}

func NewBoardHandler(svc service.ReservationService, hub *board.Hub) *BoardHandler {
	return &BoardHandler{svc: svc, hub: hub}
}

func (h *BoardHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/v1/board/changes", h.CommitChanges).Methods(http.MethodPost)
	if h.hub != nil {
		r.HandleFunc("/api/v1/board/ws", h.hub.ServeWS).Methods(http.MethodGet)
	}
}

type stagedChange struct {
	ReservationID int32     `json:"reservation_id"`
	PickupAt      time.Time `json:"pickup_at"`
	ReturnAt      time.Time `json:"return_at"`
}

type commitRequest struct {
	Changes []stagedChange `json:"changes"`
}

type commitItem struct {
	ReservationID int32               `json:"reservation_id"`
	Reservation   *domain.Reservation `json:"reservation,omitempty"`
	Error         *errorResponse      `json:"error,omitempty"`
}

type commitResponse struct {
	Committed int          `json:"committed"`
	Failed    int          `json:"failed"`
	Results   []commitItem `json:"results"`
}

// CommitChanges stages every change in a per-request buffer and commits them
// in reservation id order. Each change succeeds or fails on its own.
func (h *BoardHandler) CommitChanges(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Changes) == 0 {
		writeError(w, r, domain.NewValidationError("changes", "at least one change is required"))
		return
	}

	pending := board.NewPendingChanges()
	verr := &domain.ValidationError{}
	for i, c := range req.Changes {
		if err := pending.Stage(c.ReservationID, domain.Interval{Start: c.PickupAt, End: c.ReturnAt}); err != nil {
			verr.Add(fmt.Sprintf("changes[%d]", i), "return_at must be after pickup_at")
		}
	}
	if !verr.Empty() {
		writeError(w, r, verr)
		return
	}

	results := pending.Commit(r.Context(), h.svc)
	resp := commitResponse{Results: make([]commitItem, 0, len(results))}
	for _, res := range results {
		item := commitItem{ReservationID: res.ReservationID, Reservation: res.Reservation}
		if res.Err != nil {
			_, body := toErrorResponse(res.Err)
			item.Error = &body
			resp.Failed++
		} else {
			resp.Committed++
		}
		resp.Results = append(resp.Results, item)
	}
	writeJSON(w, http.StatusOK, resp)
}
