package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/riteshkumar/greengrid/internal/models"
	"github.com/riteshkumar/greengrid/internal/notify"
	"github.com/riteshkumar/greengrid/internal/repository"
)

const testDomain = "greengrid.energy"

type fixture struct {
	session  *Session
	clock    *clock.Mock
	ledger   *repository.MemoryLedger
	audit    *repository.MemoryAuditRepository
	notices  *notify.Recorder
	exporter *fakeExporter
	sampler  *sequenceSampler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:    clock.NewMock(),
		ledger:   repository.NewMemoryLedger(),
		audit:    repository.NewMemoryAuditRepository(),
		notices:  notify.NewRecorder(50),
		exporter: &fakeExporter{},
		sampler:  &sequenceSampler{},
	}
	f.session = NewSession(f.ledger, f.audit, f.notices, f.clock, SessionConfig{
		AccountDomain:   testDomain,
		MeterInterval:   3 * time.Second,
		SettlementDelay: 3 * time.Second,
		SettlementPoll:  250 * time.Millisecond,
		FeeRate:         0.01,
		Sampler:         f.sampler.Next,
		Exporter:        f.exporter,
	}, discardLogger())
	t.Cleanup(f.session.Close)
	return f
}

// onboard registers name and mints creditBalance credits for it.
func (f *fixture) onboard(t *testing.T, name string, creditBalance float64) string {
	t.Helper()
	account, err := f.session.Register(context.Background(), &models.RegisterAccountRequest{
		DisplayName:    name,
		IdentityNumber: "ID-123456789",
		TaxID:          "TX-1",
	})
	require.NoError(t, err)
	if creditBalance > 0 {
		_, err = f.session.RecordReading(context.Background(), creditBalance/CreditsPerKwh)
		require.NoError(t, err)
	}
	return account.ID
}

func (f *fixture) balance(t *testing.T, id string) models.Balance {
	t.Helper()
	b, err := f.ledger.GetBalance(id)
	require.NoError(t, err)
	return *b
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type sequenceSampler struct {
	mu     sync.Mutex
	values []float64
	next   int
}

func (s *sequenceSampler) Set(values ...float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = values
	s.next = 0
}

func (s *sequenceSampler) Next() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0.5
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

type fakeExporter struct {
	mu       sync.Mutex
	exported []models.Certificate
	err      error
}

func (e *fakeExporter) Export(_ context.Context, cert models.Certificate) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return "", e.err
	}
	e.exported = append(e.exported, cert)
	return cert.ID + ".json", nil
}
