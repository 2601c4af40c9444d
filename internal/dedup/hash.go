// Package dedup derives the content hash used as the ledger's dedup key.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ledgerkit/statement-ingest/internal/models"
)

// ContentHash computes the stable identity of a transaction from its
// date, description, absolute amount, and account type.
//
// The hash deliberately uses abs(amount), not the signed value: a
// transaction and a later sign-corrected copy of the same line are the
// same logical event and must collide, so overlapping statement periods
// never double-import. The flip side — a genuine sign-correction
// re-import is rejected as a duplicate instead of updating the stored
// amount — is a known limitation, not something to patch here.
func ContentHash(date time.Time, description string, amount float64, accountType string) string {
	canonical := strings.Join([]string{
		date.Format("2006-01-02"),
		strings.TrimSpace(description),
		fmt.Sprintf("%.2f", math.Abs(amount)),
		accountType,
	}, "|")

	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// HashTransaction fills in the ContentHash field of a transaction.
func HashTransaction(txn *models.Transaction) {
	txn.ContentHash = ContentHash(txn.Date, txn.Description, txn.Amount, txn.AccountType)
}
