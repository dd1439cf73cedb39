package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"sensor_data_service/service"
)

const maxBodyBytes = 1 << 20

// ReadingHandler serves the /sensor-data endpoints.
type ReadingHandler struct {
	svc    *service.TelemetryService
	logger *zap.Logger
}

// NewReadingHandler returns handler.
func NewReadingHandler(svc *service.TelemetryService, logger *zap.Logger) *ReadingHandler {
	return &ReadingHandler{
		svc:    svc,
		logger: logger,
	}
}

type createResponse struct {
	Status string `json:"status"`
	ID     uint   `json:"id"`
}

type deleteResponse struct {
	Status       string `json:"status"`
	DeletedCount int64  `json:"deleted_count"`
}

// Create handles POST /sensor-data/.
func (h *ReadingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.ReadingInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&input); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON body: "+err.Error())
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON body: unexpected data after the reading")
		return
	}

	id, err := h.svc.Ingest(r.Context(), input)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, createResponse{Status: "success", ID: id})
}

// List handles GET /sensor-data/?skip=&limit=.
func (h *ReadingHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	skip, err := intParam(query.Get("skip"), 0)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "skip: must be an integer")
		return
	}
	limit, err := intParam(query.Get("limit"), service.DefaultLimit)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "limit: must be an integer")
		return
	}

	readings, err := h.svc.ListAll(r.Context(), skip, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, readings)
}

// ListBySensor handles GET /sensor-data/{sensor_id}?start_date=&end_date=.
func (h *ReadingHandler) ListBySensor(w http.ResponseWriter, r *http.Request) {
	rng, err := service.ParseTimeRange(r.URL.Query().Get("start_date"), r.URL.Query().Get("end_date"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	readings, err := h.svc.ListBySensor(r.Context(), r.PathValue("sensor_id"), rng)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, readings)
}

// DeleteBySensor handles DELETE /sensor-data/{sensor_id}?start_date=&end_date=.
func (h *ReadingHandler) DeleteBySensor(w http.ResponseWriter, r *http.Request) {
	rng, err := service.ParseTimeRange(r.URL.Query().Get("start_date"), r.URL.Query().Get("end_date"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	deleted, err := h.svc.DeleteBySensor(r.Context(), r.PathValue("sensor_id"), rng)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{Status: "success", DeletedCount: deleted})
}

// Root handles GET /.
func (h *ReadingHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": h.svc.Health()})
}

// Health handles GET /health; it fails when the database does not answer.
func (h *ReadingHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ready(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ReadingHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, verr.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "Sensor data not found")
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusBadRequest, "Sensor data already exists")
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
