package models

import (
	"encoding/json"
	"time"
)

type Account struct {
	ID           string    `json:"account_id"`
	DisplayName  string    `json:"display_name"`
	IdentityHash string    `json:"identity_hash"`
	TaxID        string    `json:"tax_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Balance is the per-account ledger row.
type Balance struct {
	AccountID      string  `json:"account_id"`
	EnergyTotalKwh float64 `json:"energy_total_kwh"`
	CreditBalance  float64 `json:"credit_balance"`
	CarbonOffsetKg float64 `json:"carbon_offset_kg"`
	CashBalance    float64 `json:"cash_balance"`
	LastReadingKwh float64 `json:"last_reading_kwh"`
}

type OrderStatus string

const (
	OrderStatusOpen    OrderStatus = "OPEN"
	OrderStatusMatched OrderStatus = "MATCHED"
)

type Order struct {
	ID              string      `json:"order_id"`
	SellerAccountID string      `json:"seller_account_id"`
	CreditAmount    float64     `json:"credit_amount"`
	PricePerCredit  float64     `json:"price_per_credit"`
	Status          OrderStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`

	// Reserved is set when CreditAmount was debited from the seller's row.
	// Seeded orders are not reserved and pay no seller proceeds.
	Reserved bool `json:"reserved"`
}

type Trade struct {
	ID              string     `json:"trade_id"`
	OrderID         string     `json:"order_id"`
	BuyerAccountID  string     `json:"buyer_account_id"`
	SellerAccountID string     `json:"seller_account_id"`
	CreditAmount    float64    `json:"credit_amount"`
	PricePerCredit  float64    `json:"price_per_credit"`
	TotalPrice      float64    `json:"total_price"`
	PaymentRef      string     `json:"payment_ref"`
	CreatedAt       time.Time  `json:"created_at"`
	Settled         bool       `json:"settled"`
	SettledAt       *time.Time `json:"settled_at,omitempty"`
}

// Settlement is a deferred credit/cash transfer queued by a trade.
type Settlement struct {
	TradeID         string    `json:"trade_id"`
	OrderID         string    `json:"order_id"`
	BuyerAccountID  string    `json:"buyer_account_id"`
	SellerAccountID string    `json:"seller_account_id"`
	CreditAmount    float64   `json:"credit_amount"`
	TotalPrice      float64   `json:"total_price"`
	PaymentRef      string    `json:"payment_ref"`
	SellerReserved  bool      `json:"seller_reserved"`
	ReadyAt         time.Time `json:"ready_at"`

	// Generation is the ledger generation the trade was matched in.
	Generation uint64 `json:"-"`
}

type Compliance struct {
	Flag     bool      `json:"flag"`
	IssuedAt time.Time `json:"issuedAt"`
}

type Certificate struct {
	ID                  string     `json:"certificateId"`
	Issuer              string     `json:"issuer"`
	TotalCredits        float64    `json:"totalCredits"`
	TotalCarbonOffsetKg float64    `json:"totalCarbonOffsetKg"`
	GeneratorAccountID  string     `json:"generatorAccountId"`
	IdentityHash        string     `json:"identityHash"`
	TaxID               string     `json:"taxId"`
	Compliance          Compliance `json:"compliance"`
}

type Reading struct {
	AccountID   string    `json:"account_id"`
	Kwh         float64   `json:"kwh"`
	CreditDelta float64   `json:"credit_delta"`
	CarbonDelta float64   `json:"carbon_delta"`
	RecordedAt  time.Time `json:"recorded_at"`
}

type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

type Notice struct {
	Level     NoticeLevel `json:"level"`
	Message   string      `json:"message"`
	CreatedAt time.Time   `json:"created_at"`
}

type AuditLog struct {
	ID         string          `json:"id"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Action     string          `json:"action"`
	OldValue   json.RawMessage `json:"old_value"`
	NewValue   json.RawMessage `json:"new_value"`
	CreatedAt  time.Time       `json:"created_at"`
}

const (
	AuditActionCreate  = "CREATE"
	AuditActionUpdate  = "UPDATE"
	AuditActionMint    = "MINT"
	AuditActionReserve = "RESERVE"
	AuditActionMatch   = "MATCH"
	AuditActionSettle  = "SETTLE"
	AuditActionIssue   = "ISSUE"
)

const (
	EntityTypeAccount     = "ACCOUNT"
	EntityTypeOrder       = "ORDER"
	EntityTypeTrade       = "TRADE"
	EntityTypeCertificate = "CERTIFICATE"
)

type RegisterAccountRequest struct {
	DisplayName    string `json:"display_name"`
	IdentityNumber string `json:"identity_number"`
	TaxID          string `json:"tax_id"`
}

type AccountResponse struct {
	Account  Account `json:"account"`
	Balance  Balance `json:"balance"`
	Score    int     `json:"score"`
	Eligible bool    `json:"eligible"`
}

type PlaceOrderRequest struct {
	SellerAccountID string  `json:"seller_account_id"`
	CreditAmount    float64 `json:"credit_amount"`
	PricePerCredit  float64 `json:"price_per_credit"`
}

type BuyOrderRequest struct {
	BuyerAccountID string `json:"buyer_account_id"`
}

type ReadingRequest struct {
	Kwh float64 `json:"kwh"`
}

type IssueCertificateRequest struct {
	AccountID string `json:"account_id"`
}

type MeteringStatusResponse struct {
	Running        bool    `json:"running"`
	LastReadingKwh float64 `json:"last_reading_kwh"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type BalanceSnapshot struct {
	AccountID      string  `json:"account_id"`
	EnergyTotalKwh float64 `json:"energy_total_kwh"`
	CreditBalance  float64 `json:"credit_balance"`
	CarbonOffsetKg float64 `json:"carbon_offset_kg"`
	CashBalance    float64 `json:"cash_balance"`
}

func (b Balance) Snapshot() BalanceSnapshot {
	return BalanceSnapshot{
		AccountID:      b.AccountID,
		EnergyTotalKwh: b.EnergyTotalKwh,
		CreditBalance:  b.CreditBalance,
		CarbonOffsetKg: b.CarbonOffsetKg,
		CashBalance:    b.CashBalance,
	}
}
