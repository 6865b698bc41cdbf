package service

import (
	"context"
	"fmt"
	"log/slog"

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
	CertificateIssuer = "GreenGrid Renewable Registry"
	missingTaxID      = "NA"
)

// Exporter receives every issued certificate, e.g. to write it to disk.
type Exporter interface {
	Export(ctx context.Context, cert models.Certificate) (string, error)
}

type CertificateService interface {
	Issue(ctx context.Context, accountID string) (*models.Certificate, error)
	Certificates() []models.Certificate
}

var _ CertificateService = (*CertificateServiceImpl)(nil)

type CertificateServiceImpl struct {
	ledger   repository.LedgerRepository
	audit    repository.AuditRepository
	exporter Exporter
	notifier notify.Notifier
	clock    clock.Clock
	logger   *slog.Logger
}

func NewCertificateService(ledger repository.LedgerRepository, audit repository.AuditRepository, exporter Exporter, notifier notify.Notifier, clk clock.Clock, logger *slog.Logger) *CertificateServiceImpl {
	return &CertificateServiceImpl{
		ledger:   ledger,
		audit:    audit,
		exporter: exporter,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
	}
}

// Issue snapshots the account's credits and carbon offset into a new
// certificate at the head of the history, then hands it to the exporter.
// An export failure is reported but the certificate stays issued.
func (s *CertificateServiceImpl) Issue(ctx context.Context, accountID string) (*models.Certificate, error) {
	if accountID == "" {
		err := errors.Invalid("account", errors.ErrNoAccount)
		s.logger.Warn("certificate requested without account")
		s.notifier.Notify(ctx, notify.Error(err.Error()))
		return nil, err
	}

	var cert models.Certificate
	err := s.ledger.WithWrite(ctx, func(st *repository.LedgerState) error {
		account, ok := st.Accounts[accountID]
		if !ok {
			return errors.Invalid("account", errors.ErrNoAccount)
		}
		b, err := st.Balance(accountID)
		if err != nil {
			return errors.Invalid("account", errors.ErrNoAccount)
		}
		taxID := account.TaxID
		if taxID == "" {
			taxID = missingTaxID
		}
		cert = models.Certificate{
			ID:                  "CERT-" + uuid.New().String(),
			Issuer:              CertificateIssuer,
			TotalCredits:        utils.Round(b.CreditBalance, utils.CreditPlaces),
			TotalCarbonOffsetKg: utils.Round(b.CarbonOffsetKg, utils.CarbonPlaces),
			GeneratorAccountID:  account.ID,
			IdentityHash:        account.IdentityHash,
			TaxID:               taxID,
			Compliance: models.Compliance{
				Flag:     true,
				IssuedAt: s.clock.Now().UTC(),
			},
		}
		st.PrependCertificate(cert)
		return nil
	})
	if err != nil {
		if errors.IsValidationError(err) {
			s.logger.Warn("invalid certificate request",
				"account_id", accountID,
				"error", err.Error(),
			)
			s.notifier.Notify(ctx, notify.Error(err.Error()))
			return nil, err
		}
		s.logger.Error("failed to issue certificate",
			"account_id", accountID,
			"error", err.Error(),
		)
		return nil, errors.NewStoreError("issue certificate", err)
	}

	metrics.CertificatesIssued.Inc()
	recordAudit(ctx, s.audit, s.clock, s.logger, models.EntityTypeCertificate, cert.ID, models.AuditActionIssue, nil, cert)
	s.logger.Info("certificate issued",
		"certificate_id", cert.ID,
		"account_id", accountID,
		"total_credits", cert.TotalCredits,
	)

	if s.exporter != nil {
		path, err := s.exporter.Export(ctx, cert)
		if err != nil {
			s.logger.Error("failed to export certificate",
				"certificate_id", cert.ID,
				"error", err.Error(),
			)
			s.notifier.Notify(ctx, notify.Error(fmt.Sprintf("certificate %s issued but export failed", cert.ID)))
		} else {
			s.logger.Info("certificate exported", "certificate_id", cert.ID, "path", path)
		}
	}
	return &cert, nil
}

func (s *CertificateServiceImpl) Certificates() []models.Certificate {
	return s.ledger.ListCertificates()
}
