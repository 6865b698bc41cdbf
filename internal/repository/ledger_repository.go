package repository

import (
	"context"
	"sync"

	"github.com/riteshkumar/greengrid/internal/errors"
	"github.com/riteshkumar/greengrid/internal/models"
)

// LedgerState is the mutable store shared by every engine component. It is
// only reachable through LedgerRepository.WithWrite / WithRead.
type LedgerState struct {
	// Generation increases on every Reset.
	Generation uint64

	Accounts     map[string]*models.Account
	Balances     map[string]*models.Balance
	Orders       []models.Order
	Trades       []models.Trade
	Certificates []models.Certificate
}

func newLedgerState() *LedgerState {
	return &LedgerState{
		Accounts: map[string]*models.Account{},
		Balances: map[string]*models.Balance{},
	}
}

// Balance returns the ledger row for id, or ErrAccountNotFound.
func (s *LedgerState) Balance(id string) (*models.Balance, error) {
	b, ok := s.Balances[id]
	if !ok {
		return nil, errors.ErrAccountNotFound
	}
	return b, nil
}

func (s *LedgerState) HasAccount(id string) bool {
	_, ok := s.Balances[id]
	return ok
}

// TakeOrder removes the order from the book and returns it.
func (s *LedgerState) TakeOrder(id string) (models.Order, error) {
	for i, o := range s.Orders {
		if o.ID == id {
			s.Orders = append(s.Orders[:i:i], s.Orders[i+1:]...)
			return o, nil
		}
	}
	return models.Order{}, errors.ErrOrderNotFound
}

func (s *LedgerState) PrependOrder(o models.Order) {
	s.Orders = append([]models.Order{o}, s.Orders...)
}

func (s *LedgerState) PrependTrade(t models.Trade) {
	s.Trades = append([]models.Trade{t}, s.Trades...)
}

func (s *LedgerState) PrependCertificate(c models.Certificate) {
	s.Certificates = append([]models.Certificate{c}, s.Certificates...)
}

func (s *LedgerState) Trade(id string) (*models.Trade, bool) {
	for i := range s.Trades {
		if s.Trades[i].ID == id {
			return &s.Trades[i], true
		}
	}
	return nil, false
}

type LedgerRepository interface {
	WithWrite(ctx context.Context, fn func(*LedgerState) error) error
	WithRead(fn func(*LedgerState) error) error
	GetAccount(id string) (*models.Account, error)
	GetBalance(id string) (*models.Balance, error)
	ListOrders() []models.Order
	ListTrades() []models.Trade
	ListCertificates() []models.Certificate
	Reset()
}

// MemoryLedger keeps the whole ledger in process behind a single writer lock,
// so every WithWrite closure is one atomic step.
type MemoryLedger struct {
	mu    sync.RWMutex
	state *LedgerState
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{state: newLedgerState()}
}

func (l *MemoryLedger) WithWrite(ctx context.Context, fn func(*LedgerState) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return fn(l.state)
}

func (l *MemoryLedger) WithRead(fn func(*LedgerState) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fn(l.state)
}

func (l *MemoryLedger) GetAccount(id string) (*models.Account, error) {
	var out *models.Account
	l.WithRead(func(s *LedgerState) error {
		if a, ok := s.Accounts[id]; ok {
			copy := *a
			out = &copy
		}
		return nil
	})
	if out == nil {
		return nil, errors.ErrAccountNotFound
	}
	return out, nil
}

func (l *MemoryLedger) GetBalance(id string) (*models.Balance, error) {
	var out *models.Balance
	l.WithRead(func(s *LedgerState) error {
		if b, ok := s.Balances[id]; ok {
			copy := *b
			out = &copy
		}
		return nil
	})
	if out == nil {
		return nil, errors.ErrAccountNotFound
	}
	return out, nil
}

func (l *MemoryLedger) ListOrders() []models.Order {
	var out []models.Order
	l.WithRead(func(s *LedgerState) error {
		out = append([]models.Order(nil), s.Orders...)
		return nil
	})
	return out
}

func (l *MemoryLedger) ListTrades() []models.Trade {
	var out []models.Trade
	l.WithRead(func(s *LedgerState) error {
		out = append([]models.Trade(nil), s.Trades...)
		return nil
	})
	return out
}

func (l *MemoryLedger) ListCertificates() []models.Certificate {
	var out []models.Certificate
	l.WithRead(func(s *LedgerState) error {
		out = append([]models.Certificate(nil), s.Certificates...)
		return nil
	})
	return out
}

// Reset drops every account, order, trade and certificate and starts a new
// generation.
func (l *MemoryLedger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := newLedgerState()
	next.Generation = l.state.Generation + 1
	l.state = next
}
