package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riteshkumar/greengrid/internal/errors"
	"github.com/riteshkumar/greengrid/internal/models"
	"github.com/riteshkumar/greengrid/internal/repository"
)

func TestIssueCertificateSnapshotsBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.onboard(t, "Ann", 0)
	f.clock.Add(90 * time.Second)

	require.NoError(t, f.ledger.WithWrite(ctx, func(st *repository.LedgerState) error {
		b, err := st.Balance(id)
		if err != nil {
			return err
		}
		b.CreditBalance = 1.234567
		b.CarbonOffsetKg = 9.8765
		return nil
	}))

	cert, err := f.session.IssueCertificate(ctx, "")
	require.NoError(t, err)

	assert.Contains(t, cert.ID, "CERT-")
	assert.Equal(t, CertificateIssuer, cert.Issuer)
	assert.Equal(t, 1.234567, cert.TotalCredits)
	assert.Equal(t, 9.877, cert.TotalCarbonOffsetKg)
	assert.Equal(t, id, cert.GeneratorAccountID)
	assert.Equal(t, "stub-36373839", cert.IdentityHash)
	assert.Equal(t, "TX-1", cert.TaxID)
	assert.True(t, cert.Compliance.Flag)
	assert.Equal(t, f.clock.Now().UTC(), cert.Compliance.IssuedAt)

	// issuing does not spend anything
	assert.Equal(t, 1.234567, f.balance(t, id).CreditBalance)

	require.Len(t, f.exporter.exported, 1)
	assert.Equal(t, cert.ID, f.exporter.exported[0].ID)
}

func TestIssueCertificateNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.onboard(t, "Ann", 0.25)

	first, err := f.session.IssueCertificate(ctx, "")
	require.NoError(t, err)
	second, err := f.session.IssueCertificate(ctx, "")
	require.NoError(t, err)

	certs := f.session.Certificates.Certificates()
	require.Len(t, certs, 2)
	assert.Equal(t, second.ID, certs[0].ID)
	assert.Equal(t, first.ID, certs[1].ID)
	assert.Equal(t, 0.25, certs[0].TotalCredits)
}

func TestIssueCertificateMissingTaxID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.session.Register(ctx, &models.RegisterAccountRequest{DisplayName: "Bob", IdentityNumber: "42"})
	require.NoError(t, err)

	cert, err := f.session.IssueCertificate(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "NA", cert.TaxID)
	assert.Equal(t, "stub-3432", cert.IdentityHash)
	assert.Equal(t, 0.0, cert.TotalCredits)
}

func TestIssueCertificateWithoutAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.session.IssueCertificate(ctx, "")
	require.Error(t, err)
	assert.True(t, errors.IsNoAccount(err))

	_, err = f.session.IssueCertificate(ctx, "ghost@"+testDomain)
	assert.True(t, errors.IsNoAccount(err))

	assert.Empty(t, f.session.Certificates.Certificates())
	assert.Empty(t, f.exporter.exported)
	assert.Len(t, f.notices.Notices(), 2)
}

func TestIssueCertificateExportFailureKeepsCertificate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.onboard(t, "Ann", 0.1)
	f.exporter.err = fmt.Errorf("disk full")

	cert, err := f.session.IssueCertificate(ctx, "")
	require.NoError(t, err)

	certs := f.session.Certificates.Certificates()
	require.Len(t, certs, 1)
	assert.Equal(t, cert.ID, certs[0].ID)

	notices := f.notices.Notices()
	require.NotEmpty(t, notices)
	assert.Equal(t, models.NoticeError, notices[0].Level)
	assert.Contains(t, notices[0].Message, cert.ID)

	logs, err := f.audit.GetByEntityID(ctx, models.EntityTypeCertificate, cert.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionIssue, logs[0].Action)
}
