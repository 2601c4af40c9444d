package dedup

import (
	"testing"
	"time"

	"github.com/ledgerkit/statement-ingest/internal/dates"
	"github.com/ledgerkit/statement-ingest/internal/models"
)

func TestContentHashSignInvariance(t *testing.T) {
	date := dates.Date(2024, time.April, 17)

	positive := ContentHash(date, "WOOLWORTHS 1234 SYDNEY", 86.20, "amex_credit_card")
	negative := ContentHash(date, "WOOLWORTHS 1234 SYDNEY", -86.20, "amex_credit_card")

	if positive != negative {
		t.Errorf("sign-flipped duplicates must collide: %s != %s", positive, negative)
	}

	other := ContentHash(date, "WOOLWORTHS 1234 SYDNEY", 86.21, "amex_credit_card")
	if positive == other {
		t.Error("different magnitudes must not collide")
	}
}

func TestContentHashDistinguishesFields(t *testing.T) {
	date := dates.Date(2024, time.April, 17)
	base := ContentHash(date, "UBER *TRIP", 23.50, "amex_credit_card")

	tests := []struct {
		name string
		hash string
	}{
		{"different date", ContentHash(dates.Date(2024, time.April, 18), "UBER *TRIP", 23.50, "amex_credit_card")},
		{"different description", ContentHash(date, "UBER *EATS", 23.50, "amex_credit_card")},
		{"different account type", ContentHash(date, "UBER *TRIP", 23.50, "citi_credit_card")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.hash == base {
				t.Error("expected distinct hash")
			}
		})
	}
}

func TestContentHashStable(t *testing.T) {
	date := dates.Date(2025, time.January, 3)

	a := ContentHash(date, "NETFLIX.COM", 22.99, "citi_credit_card")
	b := ContentHash(date, "NETFLIX.COM", 22.99, "citi_credit_card")
	if a != b {
		t.Error("hash must be deterministic across calls")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestContentHashTrimsDescription(t *testing.T) {
	date := dates.Date(2025, time.January, 3)

	trimmed := ContentHash(date, "SPOTIFY P2B4A8", 12.99, "amex_credit_card")
	padded := ContentHash(date, "  SPOTIFY P2B4A8  ", 12.99, "amex_credit_card")

	if trimmed != padded {
		t.Error("surrounding whitespace must not change the hash")
	}
}

func TestHashTransaction(t *testing.T) {
	txn := &models.Transaction{
		Date:        dates.Date(2024, time.December, 22),
		Description: "QANTAS AIRWAYS MASCOT",
		Amount:      512.40,
		AccountType: "amex_credit_card",
	}
	HashTransaction(txn)

	want := ContentHash(txn.Date, txn.Description, txn.Amount, txn.AccountType)
	if txn.ContentHash != want {
		t.Errorf("got %s, want %s", txn.ContentHash, want)
	}
}
