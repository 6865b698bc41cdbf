package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/riteshkumar/greengrid/internal/models"
	u "github.com/riteshkumar/greengrid/internal/utils"
)

type CertificateHandler struct {
	engine       Engine
	certificates CertificateView
	logger       *slog.Logger
}

func NewCertificateHandler(engine Engine, certificates CertificateView, logger *slog.Logger) *CertificateHandler {
	return &CertificateHandler{
		engine:       engine,
		certificates: certificates,
		logger:       logger,
	}
}

func (h *CertificateHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/certificates", h.ListCertificates).Methods(http.MethodGet)
	router.HandleFunc("/certificates", h.IssueCertificate).Methods(http.MethodPost)
}

func (h *CertificateHandler) ListCertificates(w http.ResponseWriter, r *http.Request) {
	u.WriteJSON(w, http.StatusOK, nonNil(h.certificates.Certificates()))
}

func (h *CertificateHandler) IssueCertificate(w http.ResponseWriter, r *http.Request) {
	var req models.IssueCertificateRequest
	if !decodeOrReject(w, r, h.logger, &req, "issue certificate") {
		return
	}

	cert, err := h.engine.IssueCertificate(r.Context(), req.AccountID)
	if err != nil {
		handleServiceError(w, h.logger, err, "issue certificate")
		return
	}
	u.WriteJSON(w, http.StatusCreated, cert)
}
