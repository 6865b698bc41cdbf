package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/benbjohnson/clock"

	"github.com/riteshkumar/greengrid/internal/errors"
	"github.com/riteshkumar/greengrid/internal/metrics"
	"github.com/riteshkumar/greengrid/internal/models"
	"github.com/riteshkumar/greengrid/internal/repository"
	"github.com/riteshkumar/greengrid/internal/utils"
)

type TokenizationService interface {
	ApplyReading(ctx context.Context, accountID string, kwh float64) (*models.Reading, error)
}

var _ TokenizationService = (*TokenizationServiceImpl)(nil)

type TokenizationServiceImpl struct {
	ledger repository.LedgerRepository
	audit  repository.AuditRepository
	clock  clock.Clock
	logger *slog.Logger
}

func NewTokenizationService(ledger repository.LedgerRepository, audit repository.AuditRepository, clk clock.Clock, logger *slog.Logger) *TokenizationServiceImpl {
	return &TokenizationServiceImpl{
		ledger: ledger,
		audit:  audit,
		clock:  clk,
		logger: logger,
	}
}

// ApplyReading adds a metered reading to the account's energy total and
// mints the matching credits and carbon offset. Both the deltas and the
// accumulated totals are rounded.
func (s *TokenizationServiceImpl) ApplyReading(ctx context.Context, accountID string, kwh float64) (*models.Reading, error) {
	if accountID == "" {
		return nil, errors.Invalid("account", errors.ErrNoAccount)
	}
	if kwh < 0 || math.IsNaN(kwh) || math.IsInf(kwh, 0) {
		return nil, errors.NewValidationError("kwh", "must be a non-negative number")
	}

	creditDelta, carbonDelta := Mint(kwh)
	reading := models.Reading{
		AccountID:   accountID,
		Kwh:         kwh,
		CreditDelta: creditDelta,
		CarbonDelta: carbonDelta,
		RecordedAt:  s.clock.Now().UTC(),
	}

	var before, after models.BalanceSnapshot
	err := s.ledger.WithWrite(ctx, func(st *repository.LedgerState) error {
		b, err := st.Balance(accountID)
		if err != nil {
			return errors.Invalid("account", err)
		}
		before = b.Snapshot()
		b.LastReadingKwh = kwh
		b.EnergyTotalKwh = utils.Add(b.EnergyTotalKwh, kwh, utils.EnergyPlaces)
		b.CreditBalance = utils.Add(b.CreditBalance, creditDelta, utils.CreditPlaces)
		b.CarbonOffsetKg = utils.Add(b.CarbonOffsetKg, carbonDelta, utils.CarbonPlaces)
		after = b.Snapshot()
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to apply reading",
			"account_id", accountID,
			"kwh", kwh,
			"error", err.Error(),
		)
		return nil, fmt.Errorf("apply reading: %w", err)
	}

	metrics.EnergyMintedKwh.Add(kwh)
	metrics.CreditsMinted.Add(creditDelta)
	recordAudit(ctx, s.audit, s.clock, s.logger, models.EntityTypeAccount, accountID, models.AuditActionMint, before, after)

	s.logger.Debug("reading applied",
		"account_id", accountID,
		"kwh", kwh,
		"credit_delta", creditDelta,
		"carbon_delta", carbonDelta,
	)
	return &reading, nil
}
