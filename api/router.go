package api

import (
	"net/http"

	"go.uber.org/zap"
)

// NewRouter wires the reading routes and wraps them in request id,
// access log and recovery middleware.
func NewRouter(h *ReadingHandler, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sensor-data/{$}", h.Create)
	mux.HandleFunc("GET /sensor-data/{$}", h.List)
	mux.HandleFunc("GET /sensor-data/{sensor_id}", h.ListBySensor)
	mux.HandleFunc("DELETE /sensor-data/{sensor_id}", h.DeleteBySensor)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /{$}", h.Root)

	var handler http.Handler = mux
	handler = Recover(logger)(handler)
	handler = AccessLog(logger)(handler)
	handler = RequestID(handler)
	return handler
}
