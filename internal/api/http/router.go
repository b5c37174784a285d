// Package http is the JSON API over the reservation service.
package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"rental-car-dashboard/internal/board"
	"rental-car-dashboard/internal/security"
	"rental-car-dashboard/internal/service"
)

// NewRouter wires every route behind logging and authentication. hub may be
// nil, in which case the websocket route is not registered.
func NewRouter(svc service.ReservationService, tm security.TokenManager, hub *board.Hub) *mux.Router {
	router := mux.NewRouter()
	router.Use(LoggingMiddleware)
	router.Use(NewAuthMiddleware(tm).Handler)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	NewReservationHandler(svc).Register(router)
	NewBoardHandler(svc, hub).Register(router)
	return router
}
