package domain_test

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

func TestEffectivePriceMinor(t *testing.T) {
	p := domain.Product{PriceMinor: 10000}
	if got := p.EffectivePriceMinor(); got != 10000 {
		t.Fatalf("expected regular price 10000, got %d", got)
	}

	p.OfferPriceMinor = 7500
	if got := p.EffectivePriceMinor(); got != 7500 {
		t.Fatalf("expected offer price 7500, got %d", got)
	}
}

func TestPaymentTransactionValidate(t *testing.T) {
	txn := domain.PaymentTransaction{OrderID: 1, Token: "tok-1", AmountMinor: 100}
	if err := txn.Validate(); err != nil {
		t.Fatalf("expected valid transaction, got %v", err)
	}

	cases := []struct {
		name string
		txn  domain.PaymentTransaction
		want error
	}{
		{"no order", domain.PaymentTransaction{Token: "tok-1"}, domain.ErrOrderNotFound},
		{"no token", domain.PaymentTransaction{OrderID: 1}, domain.ErrTransactionNotFound},
		{"negative amount", domain.PaymentTransaction{OrderID: 1, Token: "tok-1", AmountMinor: -1}, domain.ErrTotalMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.txn.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestOrderIdentityValidate(t *testing.T) {
	if err := domain.UserIdentity(42).Validate(); err != nil {
		t.Fatalf("expected valid user identity, got %v", err)
	}
	if err := domain.GuestIdentity("guest@example.com").Validate(); err != nil {
		t.Fatalf("expected valid guest identity, got %v", err)
	}

	invalid := []domain.OrderIdentity{
		{},
		domain.UserIdentity(0),
		domain.GuestIdentity(""),
		{Kind: domain.IdentityGuest, UserID: 1, Email: "guest@example.com"},
	}
	for i, identity := range invalid {
		if err := identity.Validate(); !errors.Is(err, domain.ErrInvalidGuestData) {
			t.Fatalf("case %d: expected ErrInvalidGuestData, got %v", i, err)
		}
	}
}
