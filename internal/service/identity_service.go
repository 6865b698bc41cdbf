package service

import (
	"context"
	"encoding/hex"
	"log/slog"
	"strings"
	"unicode"

	"github.com/benbjohnson/clock"

	"github.com/riteshkumar/greengrid/internal/models"
	"github.com/riteshkumar/greengrid/internal/repository"
)

const (
	defaultDisplayName    = "user"
	defaultIdentityNumber = "0000"
)

type IdentityService interface {
	Register(ctx context.Context, req *models.RegisterAccountRequest) (*models.Account, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
}

var _ IdentityService = (*IdentityServiceImpl)(nil)

type IdentityServiceImpl struct {
	ledger repository.LedgerRepository
	audit  repository.AuditRepository
	clock  clock.Clock
	domain string
	logger *slog.Logger
}

func NewIdentityService(ledger repository.LedgerRepository, audit repository.AuditRepository, clk clock.Clock, domain string, logger *slog.Logger) *IdentityServiceImpl {
	return &IdentityServiceImpl{
		ledger: ledger,
		audit:  audit,
		clock:  clk,
		domain: domain,
		logger: logger,
	}
}

// Register creates the account for a display name, or refreshes its identity
// hash and tax id when the name was registered before. Balances survive
// re-registration.
//
// There is no uniqueness check: two people with the same display name share
// one account. That is acceptable for a single-user session only.
func (s *IdentityServiceImpl) Register(ctx context.Context, req *models.RegisterAccountRequest) (*models.Account, error) {
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		name = defaultDisplayName
	}
	id := AccountID(name, s.domain)
	now := s.clock.Now().UTC()

	var (
		account     models.Account
		overwritten bool
	)
	err := s.ledger.WithWrite(ctx, func(st *repository.LedgerState) error {
		existing, ok := st.Accounts[id]
		if ok {
			overwritten = true
			existing.DisplayName = name
			existing.IdentityHash = IdentityHash(req.IdentityNumber)
			existing.TaxID = strings.TrimSpace(req.TaxID)
			existing.UpdatedAt = now
			account = *existing
			return nil
		}
		created := &models.Account{
			ID:           id,
			DisplayName:  name,
			IdentityHash: IdentityHash(req.IdentityNumber),
			TaxID:        strings.TrimSpace(req.TaxID),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		st.Accounts[id] = created
		st.Balances[id] = &models.Balance{AccountID: id}
		account = *created
		return nil
	})
	if err != nil {
		s.logger.Error("failed to register account",
			"account_id", id,
			"error", err.Error(),
		)
		return nil, err
	}

	action := models.AuditActionCreate
	if overwritten {
		action = models.AuditActionUpdate
		s.logger.Warn("account re-registered, identity overwritten",
			"account_id", id,
		)
	}
	recordAudit(ctx, s.audit, s.clock, s.logger, models.EntityTypeAccount, id, action, nil, account)

	s.logger.Info("account registered successfully",
		"account_id", id,
	)
	return &account, nil
}

func (s *IdentityServiceImpl) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	account, err := s.ledger.GetAccount(id)
	if err != nil {
		s.logger.Warn("account not found",
			"account_id", id,
		)
		return nil, err
	}
	return account, nil
}

// AccountID derives the stable account id: the lower-cased alphanumerics of
// the display name, "@", then the account domain.
func AccountID(displayName, domain string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(displayName) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	slug := b.String()
	if slug == "" {
		slug = defaultDisplayName
	}
	return slug + "@" + domain
}

// IdentityHash is a placeholder derived from the last four characters of the
// identity number. It is reversible and proves nothing about the holder.
func IdentityHash(identityNumber string) string {
	identityNumber = strings.TrimSpace(identityNumber)
	if identityNumber == "" {
		identityNumber = defaultIdentityNumber
	}
	runes := []rune(identityNumber)
	if len(runes) > 4 {
		runes = runes[len(runes)-4:]
	}
	return "stub-" + hex.EncodeToString([]byte(string(runes)))
}
