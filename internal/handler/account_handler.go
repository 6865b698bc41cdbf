package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/riteshkumar/greengrid/internal/models"
	u "github.com/riteshkumar/greengrid/internal/utils"
)

type AccountHandler struct {
	engine Engine
	logger *slog.Logger
}

func NewAccountHandler(engine Engine, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		engine: engine,
		logger: logger,
	}
}

func (h *AccountHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/accounts", h.Register).Methods(http.MethodPost)
	router.HandleFunc("/accounts/active", h.GetActiveAccount).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}", h.GetAccount).Methods(http.MethodGet)
	router.HandleFunc("/session/reset", h.Reset).Methods(http.MethodPost)
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterAccountRequest
	if !decodeOrReject(w, r, h.logger, &req, "register account") {
		return
	}

	account, err := h.engine.Register(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "register account")
		return
	}

	summary, err := h.engine.Summary(account.ID)
	if err != nil {
		handleServiceError(w, h.logger, err, "register account")
		return
	}
	u.WriteJSON(w, http.StatusCreated, summary)
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]
	if accountID == "" {
		u.WriteError(w, http.StatusBadRequest, "id is required", "")
		return
	}
	h.writeSummary(w, accountID)
}

func (h *AccountHandler) GetActiveAccount(w http.ResponseWriter, r *http.Request) {
	h.writeSummary(w, "")
}

func (h *AccountHandler) writeSummary(w http.ResponseWriter, accountID string) {
	summary, err := h.engine.Summary(accountID)
	if err != nil {
		handleServiceError(w, h.logger, err, "get account")
		return
	}
	u.WriteJSON(w, http.StatusOK, summary)
}

func (h *AccountHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Reset(r.Context()); err != nil {
		handleServiceError(w, h.logger, err, "reset session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
