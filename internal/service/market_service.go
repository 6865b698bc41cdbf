package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/riteshkumar/greengrid/internal/errors"
	"github.com/riteshkumar/greengrid/internal/metrics"
	"github.com/riteshkumar/greengrid/internal/models"
	"github.com/riteshkumar/greengrid/internal/notify"
	"github.com/riteshkumar/greengrid/internal/repository"
	"github.com/riteshkumar/greengrid/internal/utils"
)

const (
	DefaultSettlementDelay = 3 * time.Second
	DefaultMarketFeeRate   = 0.01
)

type MarketService interface {
	PlaceSellOrder(ctx context.Context, sellerID string, creditAmount, pricePerCredit float64) (*models.Order, error)
	BuyOrder(ctx context.Context, orderID, buyerID string) (*models.Trade, error)
	ProcessDue(ctx context.Context) int
	Seed(ctx context.Context, orders []models.Order) error
	Orders() []models.Order
	Trades() []models.Trade
	PendingSettlements() []models.Settlement
}

var _ MarketService = (*MarketServiceImpl)(nil)

type MarketServiceImpl struct {
	ledger   repository.LedgerRepository
	audit    repository.AuditRepository
	notifier notify.Notifier
	clock    clock.Clock
	logger   *slog.Logger

	settlementDelay time.Duration
	feeRate         float64

	seq atomic.Uint64

	seedMu sync.Mutex
	seeded []models.Order

	// queue holds settlements ordered by ReadyAt, ties kept in arrival order.
	qmu   sync.Mutex
	queue []models.Settlement
}

type MarketOption func(*MarketServiceImpl)

func WithSettlementDelay(d time.Duration) MarketOption {
	return func(s *MarketServiceImpl) { s.settlementDelay = d }
}

func WithFeeRate(rate float64) MarketOption {
	return func(s *MarketServiceImpl) { s.feeRate = rate }
}

func NewMarketService(ledger repository.LedgerRepository, audit repository.AuditRepository, notifier notify.Notifier, clk clock.Clock, logger *slog.Logger, opts ...MarketOption) *MarketServiceImpl {
	s := &MarketServiceImpl{
		ledger:          ledger,
		audit:           audit,
		notifier:        notifier,
		clock:           clk,
		logger:          logger,
		settlementDelay: DefaultSettlementDelay,
		feeRate:         DefaultMarketFeeRate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceSellOrder reserves creditAmount from the seller and lists it at the
// head of the order book. Nothing is mutated when validation fails.
func (s *MarketServiceImpl) PlaceSellOrder(ctx context.Context, sellerID string, creditAmount, pricePerCredit float64) (*models.Order, error) {
	if err := s.validateSellOrder(sellerID, creditAmount, pricePerCredit); err != nil {
		return nil, s.rejectOrder(ctx, sellerID, creditAmount, pricePerCredit, err)
	}

	order := models.Order{
		ID:              s.nextOrderID(),
		SellerAccountID: sellerID,
		CreditAmount:    creditAmount,
		PricePerCredit:  pricePerCredit,
		Status:          models.OrderStatusOpen,
		CreatedAt:       s.clock.Now().UTC(),
		Reserved:        true,
	}

	var before, after models.BalanceSnapshot
	err := s.ledger.WithWrite(ctx, func(st *repository.LedgerState) error {
		b, err := st.Balance(sellerID)
		if err != nil {
			return errors.Invalid("account", errors.ErrNoAccount)
		}
		if creditAmount > b.CreditBalance {
			return errors.Invalid("credit_amount", errors.ErrInsufficientCredits)
		}
		before = b.Snapshot()
		b.CreditBalance = utils.Sub(b.CreditBalance, creditAmount, utils.CreditPlaces)
		after = b.Snapshot()
		st.PrependOrder(order)
		return nil
	})
	if err != nil {
		if errors.IsValidationError(err) {
			return nil, s.rejectOrder(ctx, sellerID, creditAmount, pricePerCredit, err)
		}
		s.logger.Error("failed to place sell order",
			"seller_account_id", sellerID,
			"error", err.Error(),
		)
		return nil, errors.NewStoreError("place sell order", err)
	}

	metrics.OrdersPlaced.Inc()
	recordAudit(ctx, s.audit, s.clock, s.logger, models.EntityTypeAccount, sellerID, models.AuditActionReserve, before, after)
	recordAudit(ctx, s.audit, s.clock, s.logger, models.EntityTypeOrder, order.ID, models.AuditActionCreate, nil, order)

	s.logger.Info("sell order placed",
		"order_id", order.ID,
		"seller_account_id", sellerID,
		"credit_amount", creditAmount,
		"price_per_credit", pricePerCredit,
	)
	return &order, nil
}

func (s *MarketServiceImpl) validateSellOrder(sellerID string, creditAmount, pricePerCredit float64) error {
	if sellerID == "" {
		return errors.Invalid("account", errors.ErrNoAccount)
	}
	if !(creditAmount > 0) || math.IsInf(creditAmount, 0) {
		return errors.Invalid("credit_amount", errors.ErrInvalidAmount)
	}
	if !(pricePerCredit > 0) || math.IsInf(pricePerCredit, 0) {
		return errors.Invalid("price_per_credit", errors.ErrInvalidPrice)
	}
	return nil
}

func (s *MarketServiceImpl) rejectOrder(ctx context.Context, sellerID string, creditAmount, pricePerCredit float64, err error) error {
	field := "unknown"
	if vErr, ok := errors.AsValidationError(err); ok {
		field = vErr.Field
	}
	metrics.OrdersRejected.WithLabelValues(field).Inc()
	s.logger.Warn("invalid sell order",
		"seller_account_id", sellerID,
		"credit_amount", creditAmount,
		"price_per_credit", pricePerCredit,
		"error", err.Error(),
	)
	s.notifier.Notify(ctx, notify.Error(err.Error()))
	return err
}

// BuyOrder matches an open order. The order leaves the book and the trade is
// recorded in the same step, so a second buy of the same order finds nothing.
// The buyer's cash is neither checked nor debited; credits and proceeds move
// when the queued settlement becomes due.
func (s *MarketServiceImpl) BuyOrder(ctx context.Context, orderID, buyerID string) (*models.Trade, error) {
	if orderID == "" {
		return nil, errors.NewValidationError("order_id", "must be non-empty")
	}

	now := s.clock.Now().UTC()
	var (
		order models.Order
		trade models.Trade
	)
	err := s.ledger.WithWrite(ctx, func(st *repository.LedgerState) error {
		var err error
		order, err = st.TakeOrder(orderID)
		if err != nil {
			return err
		}
		trade = models.Trade{
			ID:              uuid.New().String(),
			OrderID:         order.ID,
			BuyerAccountID:  buyerID,
			SellerAccountID: order.SellerAccountID,
			CreditAmount:    order.CreditAmount,
			PricePerCredit:  order.PricePerCredit,
			TotalPrice:      utils.Mul(order.CreditAmount, order.PricePerCredit, utils.CashPlaces),
			PaymentRef:      newPaymentRef(),
			CreatedAt:       now,
		}
		st.PrependTrade(trade)
		s.enqueue(models.Settlement{
			TradeID:         trade.ID,
			OrderID:         trade.OrderID,
			BuyerAccountID:  trade.BuyerAccountID,
			SellerAccountID: trade.SellerAccountID,
			CreditAmount:    trade.CreditAmount,
			TotalPrice:      trade.TotalPrice,
			PaymentRef:      trade.PaymentRef,
			SellerReserved:  order.Reserved,
			ReadyAt:         now.Add(s.settlementDelay),
			Generation:      st.Generation,
		})
		return nil
	})
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Warn("order not available",
				"order_id", orderID,
				"buyer_account_id", buyerID,
			)
			s.notifier.Notify(ctx, notify.Error(fmt.Sprintf("order %s is no longer available", orderID)))
			return nil, err
		}
		s.logger.Error("failed to buy order",
			"order_id", orderID,
			"error", err.Error(),
		)
		return nil, errors.NewStoreError("buy order", err)
	}

	metrics.TradesMatched.Inc()
	matched := order
	matched.Status = models.OrderStatusMatched
	recordAudit(ctx, s.audit, s.clock, s.logger, models.EntityTypeOrder, order.ID, models.AuditActionUpdate, order, matched)
	recordAudit(ctx, s.audit, s.clock, s.logger, models.EntityTypeTrade, trade.ID, models.AuditActionMatch, nil, trade)

	s.logger.Info("order matched",
		"order_id", trade.OrderID,
		"trade_id", trade.ID,
		"buyer_account_id", buyerID,
		"seller_account_id", trade.SellerAccountID,
		"total_price", trade.TotalPrice,
	)
	return &trade, nil
}

func (s *MarketServiceImpl) enqueue(st models.Settlement) {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	i := sort.Search(len(s.queue), func(i int) bool {
		return s.queue[i].ReadyAt.After(st.ReadyAt)
	})
	s.queue = append(s.queue, models.Settlement{})
	copy(s.queue[i+1:], s.queue[i:])
	s.queue[i] = st
	metrics.SettlementsPending.Set(float64(len(s.queue)))
}

func (s *MarketServiceImpl) popDue(now time.Time) (models.Settlement, bool) {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	if len(s.queue) == 0 || s.queue[0].ReadyAt.After(now) {
		return models.Settlement{}, false
	}
	st := s.queue[0]
	s.queue = s.queue[1:]
	metrics.SettlementsPending.Set(float64(len(s.queue)))
	return st, true
}

// ProcessDue applies every queued settlement whose ReadyAt has passed, in
// ReadyAt order, and returns how many were applied. Each settlement is one
// atomic ledger step.
func (s *MarketServiceImpl) ProcessDue(ctx context.Context) int {
	now := s.clock.Now()
	applied := 0
	for {
		st, ok := s.popDue(now)
		if !ok {
			return applied
		}
		if s.settle(context.WithoutCancel(ctx), st) {
			applied++
		}
	}
}

// settle applies one settlement and reports whether it touched the ledger.
// Settlements matched before the last ledger reset are discarded.
func (s *MarketServiceImpl) settle(ctx context.Context, st models.Settlement) bool {
	proceeds := utils.Mul(st.TotalPrice, 1-s.feeRate, utils.CashPlaces)
	settledAt := s.clock.Now().UTC()

	var sellerCredited, buyerCredited, stale bool
	err := s.ledger.WithWrite(ctx, func(ls *repository.LedgerState) error {
		if ls.Generation != st.Generation {
			stale = true
			return nil
		}
		// only reserved credits earn proceeds
		if seller, err := ls.Balance(st.SellerAccountID); err == nil && st.SellerReserved {
			seller.CashBalance = utils.Add(seller.CashBalance, proceeds, utils.CashPlaces)
			sellerCredited = true
		}
		if buyer, err := ls.Balance(st.BuyerAccountID); err == nil {
			buyer.CreditBalance = utils.Add(buyer.CreditBalance, st.CreditAmount, utils.CreditPlaces)
			buyerCredited = true
		}
		if trade, ok := ls.Trade(st.TradeID); ok {
			trade.Settled = true
			trade.SettledAt = &settledAt
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to apply settlement",
			"trade_id", st.TradeID,
			"error", err.Error(),
		)
		return false
	}
	if stale {
		s.logger.Warn("stale settlement discarded",
			"trade_id", st.TradeID,
			"payment_ref", st.PaymentRef,
		)
		return false
	}

	metrics.SettlementsApplied.Inc()
	recordAudit(ctx, s.audit, s.clock, s.logger, models.EntityTypeTrade, st.TradeID, models.AuditActionSettle, nil, st)

	s.logger.Info("settlement applied",
		"trade_id", st.TradeID,
		"payment_ref", st.PaymentRef,
		"seller_credited", sellerCredited,
		"buyer_credited", buyerCredited,
		"proceeds", proceeds,
	)
	s.notifier.Notify(ctx, notify.Info(fmt.Sprintf("payment %s settled: %.2f (seller receives %.2f)", st.PaymentRef, st.TotalPrice, proceeds)))
	return true
}

// Run drains due settlements every poll interval until ctx is done.
func (s *MarketServiceImpl) Run(ctx context.Context, poll time.Duration) {
	ticker := s.clock.Ticker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			s.ProcessDue(ctx)
		}
	}
}

// DropPending discards queued settlements and returns how many were dropped.
func (s *MarketServiceImpl) DropPending() int {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	n := len(s.queue)
	s.queue = nil
	metrics.SettlementsPending.Set(0)
	return n
}

// Seed appends externally supplied orders to the book as-is. Seeded orders
// carry no reservation against any ledger row. The set is remembered so
// Reseed can restore it after a ledger reset.
func (s *MarketServiceImpl) Seed(ctx context.Context, orders []models.Order) error {
	now := s.clock.Now().UTC()
	seeded := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if err := s.validateSellOrder(o.SellerAccountID, o.CreditAmount, o.PricePerCredit); err != nil {
			return fmt.Errorf("seed order: %w", err)
		}
		if o.ID == "" {
			o.ID = s.nextOrderID()
		}
		if o.CreatedAt.IsZero() {
			o.CreatedAt = now
		}
		o.Status = models.OrderStatusOpen
		o.Reserved = false
		seeded = append(seeded, o)
	}
	if err := s.appendOrders(ctx, seeded); err != nil {
		return err
	}

	s.seedMu.Lock()
	s.seeded = append(s.seeded, seeded...)
	s.seedMu.Unlock()

	s.logger.Info("order book seeded", "orders", len(seeded))
	return nil
}

// Reseed lists every previously seeded order again and returns how many were
// restored. Orders still in the book are skipped.
func (s *MarketServiceImpl) Reseed(ctx context.Context) (int, error) {
	s.seedMu.Lock()
	orders := append([]models.Order(nil), s.seeded...)
	s.seedMu.Unlock()

	restored := 0
	err := s.ledger.WithWrite(ctx, func(st *repository.LedgerState) error {
		listed := make(map[string]bool, len(st.Orders))
		for _, o := range st.Orders {
			listed[o.ID] = true
		}
		for _, o := range orders {
			if listed[o.ID] {
				continue
			}
			st.Orders = append(st.Orders, o)
			restored++
		}
		return nil
	})
	if err != nil {
		return 0, errors.NewStoreError("reseed orders", err)
	}
	return restored, nil
}

func (s *MarketServiceImpl) appendOrders(ctx context.Context, orders []models.Order) error {
	err := s.ledger.WithWrite(ctx, func(st *repository.LedgerState) error {
		st.Orders = append(st.Orders, orders...)
		return nil
	})
	if err != nil {
		return errors.NewStoreError("seed orders", err)
	}
	return nil
}

func (s *MarketServiceImpl) Orders() []models.Order {
	return s.ledger.ListOrders()
}

func (s *MarketServiceImpl) Trades() []models.Trade {
	return s.ledger.ListTrades()
}

func (s *MarketServiceImpl) PendingSettlements() []models.Settlement {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	return append([]models.Settlement(nil), s.queue...)
}

// nextOrderID is time-derived; the sequence suffix keeps ids unique when the
// clock has not moved.
func (s *MarketServiceImpl) nextOrderID() string {
	return fmt.Sprintf("ORD-%d-%d", s.clock.Now().UnixMilli(), s.seq.Add(1))
}

func newPaymentRef() string {
	return "PAY-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
}
