package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/riteshkumar/greengrid/internal/errors"
	"github.com/riteshkumar/greengrid/internal/models"
	u "github.com/riteshkumar/greengrid/internal/utils"
)

// Engine is the session surface the HTTP layer drives.
type Engine interface {
	Register(ctx context.Context, req *models.RegisterAccountRequest) (*models.Account, error)
	Summary(accountID string) (*models.AccountResponse, error)
	Reset(ctx context.Context) error

	StartMetering(ctx context.Context) error
	StopMetering()
	MeteringStatus() models.MeteringStatusResponse
	RecordReading(ctx context.Context, kwh float64) (*models.Reading, error)

	PlaceSellOrder(ctx context.Context, sellerID string, creditAmount, pricePerCredit float64) (*models.Order, error)
	BuyOrder(ctx context.Context, orderID, buyerID string) (*models.Trade, error)
	IssueCertificate(ctx context.Context, accountID string) (*models.Certificate, error)
}

// MarketView lists the order book and trade history.
type MarketView interface {
	Orders() []models.Order
	Trades() []models.Trade
	PendingSettlements() []models.Settlement
}

type CertificateView interface {
	Certificates() []models.Certificate
}

func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error, operation string) {
	switch {
	case errors.IsSessionClosed(err):
		u.WriteError(w, http.StatusServiceUnavailable, "session closed", "")
	case errors.IsNoAccount(err):
		u.WriteError(w, http.StatusConflict, "no account onboarded", err.Error())
	case errors.IsInsufficientCredits(err):
		u.WriteError(w, http.StatusUnprocessableEntity, "insufficient credits", err.Error())
	case errors.IsNotFound(err):
		u.WriteError(w, http.StatusNotFound, "not found", err.Error())
	case errors.IsValidationError(err):
		u.WriteError(w, http.StatusBadRequest, "validation error", err.Error())
	default:
		logger.Error("internal server error during "+operation, "error", err.Error())
		u.WriteError(w, http.StatusInternalServerError, "internal server error", "")
	}
}

func decodeOrReject(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst interface{}, operation string) bool {
	if err := u.DecodeJSON(r, dst); err != nil {
		logger.Warn("invalid "+operation+" request", "error", err.Error())
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return false
	}
	return true
}
