package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/riteshkumar/greengrid/internal/models"
	"github.com/riteshkumar/greengrid/internal/repository"
	u "github.com/riteshkumar/greengrid/internal/utils"
)

var auditEntityTypes = map[string]bool{
	models.EntityTypeAccount:     true,
	models.EntityTypeOrder:       true,
	models.EntityTypeTrade:       true,
	models.EntityTypeCertificate: true,
}

type AuditHandler struct {
	audit  repository.AuditRepository
	logger *slog.Logger
}

func NewAuditHandler(audit repository.AuditRepository, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{
		audit:  audit,
		logger: logger,
	}
}

func (h *AuditHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/audit/{type}/{id}", h.GetEntityHistory).Methods(http.MethodGet)
}

func (h *AuditHandler) GetEntityHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	entityType := strings.ToUpper(vars["type"])
	if !auditEntityTypes[entityType] {
		u.WriteError(w, http.StatusBadRequest, "unknown entity type", vars["type"])
		return
	}

	logs, err := h.audit.GetByEntityID(r.Context(), entityType, vars["id"])
	if err != nil {
		handleServiceError(w, h.logger, err, "get audit history")
		return
	}
	u.WriteJSON(w, http.StatusOK, nonNil(logs))
}
