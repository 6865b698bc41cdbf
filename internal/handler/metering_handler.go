package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/riteshkumar/greengrid/internal/models"
	u "github.com/riteshkumar/greengrid/internal/utils"
)

type MeteringHandler struct {
	engine Engine
	logger *slog.Logger
}

func NewMeteringHandler(engine Engine, logger *slog.Logger) *MeteringHandler {
	return &MeteringHandler{
		engine: engine,
		logger: logger,
	}
}

func (h *MeteringHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/metering", h.Status).Methods(http.MethodGet)
	router.HandleFunc("/metering/start", h.Start).Methods(http.MethodPost)
	router.HandleFunc("/metering/stop", h.Stop).Methods(http.MethodPost)
	router.HandleFunc("/metering/readings", h.RecordReading).Methods(http.MethodPost)
}

func (h *MeteringHandler) Status(w http.ResponseWriter, r *http.Request) {
	u.WriteJSON(w, http.StatusOK, h.engine.MeteringStatus())
}

func (h *MeteringHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.StartMetering(r.Context()); err != nil {
		handleServiceError(w, h.logger, err, "start metering")
		return
	}
	u.WriteJSON(w, http.StatusOK, h.engine.MeteringStatus())
}

func (h *MeteringHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.engine.StopMetering()
	u.WriteJSON(w, http.StatusOK, h.engine.MeteringStatus())
}

func (h *MeteringHandler) RecordReading(w http.ResponseWriter, r *http.Request) {
	var req models.ReadingRequest
	if !decodeOrReject(w, r, h.logger, &req, "record reading") {
		return
	}

	reading, err := h.engine.RecordReading(r.Context(), req.Kwh)
	if err != nil {
		handleServiceError(w, h.logger, err, "record reading")
		return
	}
	u.WriteJSON(w, http.StatusCreated, reading)
}
