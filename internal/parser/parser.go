// Package parser turns raw statement and payslip text into typed records.
// Each issuer's token grammar is isolated behind one StatementParser
// implementation; new issuers are added without touching the others.
package parser

import (
	"fmt"
	"strings"

	"github.com/ledgerkit/statement-ingest/internal/models"
)

// StatementParser recovers transactions from one statement's raw text.
// Parsers are stateless and safe for concurrent use.
type StatementParser interface {
	// Parse scans the full extracted text of a statement. A text with no
	// recognizable structure yields an empty statement, not an error.
	Parse(text string) (*models.Statement, error)
	// Issuer returns the document type this parser handles.
	Issuer() models.DocumentType
	// AccountType returns the ledger account identifier for records
	// produced by this parser.
	AccountType() string
}

// New returns the statement parser for the given document type.
// Payslips have their own entry point (ParsePayslip) because they yield
// an income record, not transactions.
func New(docType models.DocumentType) (StatementParser, error) {
	switch docType {
	case models.DocAmex:
		return &AmexParser{}, nil
	case models.DocCiti:
		return &CitiParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported document type: %q", docType)
	}
}

// AutoDetect identifies the document type from its text content.
func AutoDetect(text string) (models.DocumentType, error) {
	lower := strings.ToLower(text)

	if containsAny(lower, []string{"american express", "americanexpress.com.au", "amex"}) {
		return models.DocAmex, nil
	}
	if containsAny(lower, []string{"citibank", "citi.com.au", "citigroup"}) {
		return models.DocCiti, nil
	}
	if containsAny(lower, []string{"payslip", "pay slip", "superannuation", "gross pay"}) {
		return models.DocPayslip, nil
	}

	return "", fmt.Errorf("could not detect document type from content; specify it explicitly")
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
