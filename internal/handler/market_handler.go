package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/riteshkumar/greengrid/internal/models"
	u "github.com/riteshkumar/greengrid/internal/utils"
)

type MarketHandler struct {
	engine Engine
	market MarketView
	logger *slog.Logger
}

func NewMarketHandler(engine Engine, market MarketView, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		engine: engine,
		market: market,
		logger: logger,
	}
}

func (h *MarketHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/orders", h.ListOrders).Methods(http.MethodGet)
	router.HandleFunc("/orders", h.PlaceSellOrder).Methods(http.MethodPost)
	router.HandleFunc("/orders/{id}/buy", h.BuyOrder).Methods(http.MethodPost)
	router.HandleFunc("/trades", h.ListTrades).Methods(http.MethodGet)
	router.HandleFunc("/settlements/pending", h.ListPendingSettlements).Methods(http.MethodGet)
}

func (h *MarketHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	u.WriteJSON(w, http.StatusOK, nonNil(h.market.Orders()))
}

func (h *MarketHandler) PlaceSellOrder(w http.ResponseWriter, r *http.Request) {
	var req models.PlaceOrderRequest
	if !decodeOrReject(w, r, h.logger, &req, "place order") {
		return
	}

	order, err := h.engine.PlaceSellOrder(r.Context(), req.SellerAccountID, req.CreditAmount, req.PricePerCredit)
	if err != nil {
		handleServiceError(w, h.logger, err, "place order")
		return
	}
	u.WriteJSON(w, http.StatusCreated, order)
}

// BuyOrder accepts an optional body naming the buyer; without one the
// active account buys.
func (h *MarketHandler) BuyOrder(w http.ResponseWriter, r *http.Request) {
	var req models.BuyOrderRequest
	if !decodeOrReject(w, r, h.logger, &req, "buy order") {
		return
	}

	trade, err := h.engine.BuyOrder(r.Context(), mux.Vars(r)["id"], req.BuyerAccountID)
	if err != nil {
		handleServiceError(w, h.logger, err, "buy order")
		return
	}
	u.WriteJSON(w, http.StatusCreated, trade)
}

func (h *MarketHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	u.WriteJSON(w, http.StatusOK, nonNil(h.market.Trades()))
}

func (h *MarketHandler) ListPendingSettlements(w http.ResponseWriter, r *http.Request) {
	u.WriteJSON(w, http.StatusOK, nonNil(h.market.PendingSettlements()))
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
