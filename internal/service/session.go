package service

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/riteshkumar/greengrid/internal/errors"
	"github.com/riteshkumar/greengrid/internal/models"
	"github.com/riteshkumar/greengrid/internal/notify"
	"github.com/riteshkumar/greengrid/internal/repository"
)

const DefaultSettlementPoll = 250 * time.Millisecond

type SessionConfig struct {
	AccountDomain   string
	MeterInterval   time.Duration
	SettlementDelay time.Duration
	SettlementPoll  time.Duration
	FeeRate         float64
	Sampler         Sampler
	Exporter        Exporter
}

// Session wires the engine components around one ledger and tracks the
// active (most recently registered) account. Calls that name no account act
// on the active one.
type Session struct {
	ledger   repository.LedgerRepository
	notifier notify.Notifier
	clock    clock.Clock
	logger   *slog.Logger

	Identity     *IdentityServiceImpl
	Tokenization *TokenizationServiceImpl
	Market       *MarketServiceImpl
	Certificates *CertificateServiceImpl
	Feed         *MeteringFeed

	settlementPoll time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	active  string
	closed  bool
	started bool
	runDone chan struct{}
}

func NewSession(ledger repository.LedgerRepository, audit repository.AuditRepository, notifier notify.Notifier, clk clock.Clock, cfg SessionConfig, logger *slog.Logger) *Session {
	if cfg.SettlementPoll <= 0 {
		cfg.SettlementPoll = DefaultSettlementPoll
	}
	if cfg.SettlementDelay <= 0 {
		cfg.SettlementDelay = DefaultSettlementDelay
	}
	if cfg.FeeRate <= 0 {
		cfg.FeeRate = DefaultMarketFeeRate
	}
	if cfg.Sampler == nil {
		cfg.Sampler = UniformSampler(rand.New(rand.NewPCG(uint64(clk.Now().UnixNano()), 0x9e3779b97f4a7c15)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ledger:         ledger,
		notifier:       notifier,
		clock:          clk,
		logger:         logger,
		settlementPoll: cfg.SettlementPoll,
		ctx:            ctx,
		cancel:         cancel,
	}
	s.Identity = NewIdentityService(ledger, audit, clk, cfg.AccountDomain, logger)
	s.Tokenization = NewTokenizationService(ledger, audit, clk, logger)
	s.Market = NewMarketService(ledger, audit, notifier, clk, logger,
		WithSettlementDelay(cfg.SettlementDelay),
		WithFeeRate(cfg.FeeRate),
	)
	s.Certificates = NewCertificateService(ledger, audit, cfg.Exporter, notifier, clk, logger)
	s.Feed = NewMeteringFeed(clk, cfg.MeterInterval, cfg.Sampler, s.onReading, logger)
	return s
}

// Start launches the settlement runner. Calling it twice is a no-op.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrSessionClosed
	}
	if s.started {
		return nil
	}
	s.started = true
	s.runDone = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		s.Market.Run(s.ctx, s.settlementPoll)
	}(s.runDone)
	return nil
}

// Close stops metering and the settlement runner and drops pending
// settlements, so nothing touches the ledger after it returns.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	runDone := s.runDone
	s.mu.Unlock()

	s.Feed.Stop()
	s.cancel()
	if runDone != nil {
		<-runDone
	}
	dropped := s.Market.DropPending()
	s.logger.Info("session closed", "dropped_settlements", dropped)
}

// Reset stops metering, clears the ledger and drops pending settlements, then
// lists the seeded orders again. Settlements matched before the reset never
// apply, even if already dequeued. The session stays usable.
func (s *Session) Reset(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.Feed.Stop()
	s.ledger.Reset()
	dropped := s.Market.DropPending()

	s.mu.Lock()
	s.active = ""
	s.mu.Unlock()

	reseeded, err := s.Market.Reseed(ctx)
	if err != nil {
		return err
	}

	s.logger.Info("session reset",
		"dropped_settlements", dropped,
		"reseeded_orders", reseeded,
	)
	s.notifier.Notify(ctx, notify.Info("session reset"))
	return nil
}

func (s *Session) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.ErrSessionClosed
	}
	return nil
}

func (s *Session) ActiveAccountID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Session) resolve(accountID string) string {
	if accountID != "" {
		return accountID
	}
	return s.ActiveAccountID()
}

// Register onboards an account and makes it the active one.
func (s *Session) Register(ctx context.Context, req *models.RegisterAccountRequest) (*models.Account, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	account, err := s.Identity.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.active = account.ID
	s.mu.Unlock()
	return account, nil
}

// Summary returns the account with its balances and derived score.
func (s *Session) Summary(accountID string) (*models.AccountResponse, error) {
	id := s.resolve(accountID)
	if id == "" {
		return nil, errors.Invalid("account", errors.ErrNoAccount)
	}
	account, err := s.ledger.GetAccount(id)
	if err != nil {
		return nil, err
	}
	balance, err := s.ledger.GetBalance(id)
	if err != nil {
		return nil, err
	}
	score := Score(balance.EnergyTotalKwh, balance.CreditBalance)
	return &models.AccountResponse{
		Account:  *account,
		Balance:  *balance,
		Score:    score,
		Eligible: Eligible(score),
	}, nil
}

// StartMetering begins periodic readings for the active account.
func (s *Session) StartMetering(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.ActiveAccountID() == "" {
		err := errors.Invalid("account", errors.ErrNoAccount)
		s.notifier.Notify(ctx, notify.Error(err.Error()))
		return err
	}
	s.Feed.Start(s.ctx)
	return nil
}

func (s *Session) StopMetering() {
	s.Feed.Stop()
}

func (s *Session) MeteringStatus() models.MeteringStatusResponse {
	return models.MeteringStatusResponse{
		Running:        s.Feed.Running(),
		LastReadingKwh: s.Feed.LastReading(),
	}
}

// RecordReading applies a reading supplied by the caller instead of the feed.
func (s *Session) RecordReading(ctx context.Context, kwh float64) (*models.Reading, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	reading, err := s.Tokenization.ApplyReading(ctx, s.ActiveAccountID(), kwh)
	if err != nil {
		s.notifier.Notify(ctx, notify.Error(err.Error()))
		return nil, err
	}
	return reading, nil
}

func (s *Session) onReading(ctx context.Context, kwh float64) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	_, err := s.Tokenization.ApplyReading(ctx, s.ActiveAccountID(), kwh)
	return err
}

func (s *Session) PlaceSellOrder(ctx context.Context, sellerID string, creditAmount, pricePerCredit float64) (*models.Order, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.Market.PlaceSellOrder(ctx, s.resolve(sellerID), creditAmount, pricePerCredit)
}

// BuyOrder buys on behalf of buyerID, or the active account when empty. With
// no active account the buyer is external and only the seller is settled.
func (s *Session) BuyOrder(ctx context.Context, orderID, buyerID string) (*models.Trade, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.Market.BuyOrder(ctx, orderID, s.resolve(buyerID))
}

func (s *Session) IssueCertificate(ctx context.Context, accountID string) (*models.Certificate, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.Certificates.Issue(ctx, s.resolve(accountID))
}
