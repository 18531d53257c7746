package router

import (
	"net/http"

	"timetracker/internal/http/handlers"
)

func New(handler *handlers.TimerHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /timers", handler.Start)
	mux.HandleFunc("POST /timers/{id}/stop", handler.Stop)
	mux.HandleFunc("DELETE /timers/{id}", handler.ForceStop)
	mux.HandleFunc("GET /timers/ongoing", handler.Ongoing)
	mux.HandleFunc("GET /timers/ongoing/all", handler.AllOngoing)

	mux.HandleFunc("POST /entries", handler.CreateManualEntry)

	// Collaborator boundary: task deletion cascades into the timer hook.
	mux.HandleFunc("DELETE /tasks/{id}", handler.DeleteTask)

	mux.HandleFunc("GET /healthz", handler.Health)

	return mux
}
