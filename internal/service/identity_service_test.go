package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riteshkumar/greengrid/internal/errors"
	"github.com/riteshkumar/greengrid/internal/models"
)

func TestAccountID(t *testing.T) {
	tests := []struct {
		name     string
		display  string
		expected string
	}{
		{"lower cased", "Ann", "ann@" + testDomain},
		{"spaces dropped", "Ann Lee", "annlee@" + testDomain},
		{"punctuation dropped", "o'Brien-2", "obrien2@" + testDomain},
		{"non ascii dropped", "Zoë", "zo@" + testDomain},
		{"nothing left", "!!!", "user@" + testDomain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AccountID(tt.display, testDomain))
		})
	}
}

func TestIdentityHash(t *testing.T) {
	assert.Equal(t, "stub-36373839", IdentityHash("123456789"))
	assert.Equal(t, "stub-30303030", IdentityHash(""))
	assert.Equal(t, "stub-30303030", IdentityHash("   "))
	assert.Equal(t, "stub-6162", IdentityHash("ab"))
}

func TestRegisterDefaultsDisplayName(t *testing.T) {
	f := newFixture(t)

	account, err := f.session.Register(context.Background(), &models.RegisterAccountRequest{DisplayName: "  "})
	require.NoError(t, err)
	assert.Equal(t, "user@"+testDomain, account.ID)
	assert.Equal(t, "user", account.DisplayName)
	assert.Equal(t, account.ID, f.session.ActiveAccountID())
	assert.Equal(t, models.Balance{AccountID: account.ID}, f.balance(t, account.ID))
}

func TestReRegisterOverwritesIdentityKeepsBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.onboard(t, "Ann", 0.01)
	before := f.balance(t, id)

	account, err := f.session.Register(ctx, &models.RegisterAccountRequest{
		DisplayName:    "ANN",
		IdentityNumber: "ID-999",
	})
	require.NoError(t, err)

	assert.Equal(t, id, account.ID)
	assert.Equal(t, "stub-2d393939", account.IdentityHash)
	assert.Empty(t, account.TaxID)
	assert.Equal(t, before, f.balance(t, id))

	logs, err := f.audit.GetByEntityID(ctx, models.EntityTypeAccount, id)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, models.AuditActionUpdate, logs[0].Action)
}

func TestGetAccount(t *testing.T) {
	f := newFixture(t)
	id := f.onboard(t, "Ann", 0)

	account, err := f.session.Identity.GetAccount(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Ann", account.DisplayName)

	_, err = f.session.Identity.GetAccount(context.Background(), "ghost@"+testDomain)
	assert.True(t, errors.IsNotFound(err))
}
