package models

import "time"

// Transaction is one ledger entry produced by the ingestion pipeline.
// Dates are always normalized to the ledger timezone (UTC+10) regardless
// of server locale. A transaction is created once at ingestion and never
// mutated in place; category corrections live in CategoryOverride records
// keyed by ContentHash.
type Transaction struct {
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"` // expenses positive, credits negative
	Category    string    `json:"category"`
	AccountType string    `json:"accountType"` // e.g. "amex_credit_card"
	CardMember  string    `json:"cardMember,omitempty"`
	ContentHash string    `json:"contentHash"`
}

// DocumentType identifies the parser used for an ingested document.
type DocumentType string

const (
	DocAmex    DocumentType = "amex"
	DocCiti    DocumentType = "citi"
	DocPayslip DocumentType = "payslip"
)

// RawTransaction is a single record recovered from statement text,
// before classification and hashing.
type RawTransaction struct {
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	CardMember  string    `json:"cardMember,omitempty"`
}

// StatementPeriod is the "From <Month> <Day> to <Month> <Day>, <Year>"
// header of a statement. Year applies to the period end; a period whose
// start month is numerically greater than its end month crosses a year
// boundary.
type StatementPeriod struct {
	StartMonth time.Month `json:"startMonth"`
	EndMonth   time.Month `json:"endMonth"`
	Year       int        `json:"year"`
}

// Crossing reports whether the period spans a year boundary
// (e.g. December 20 to January 15).
func (p StatementPeriod) Crossing() bool {
	return p.StartMonth > p.EndMonth
}

// Statement is the parsed form of one statement document.
type Statement struct {
	Issuer       DocumentType     `json:"issuer"`
	Period       StatementPeriod  `json:"period"`
	Transactions []RawTransaction `json:"transactions"`
	Dropped      int              `json:"dropped"` // malformed candidates discarded
}

// IncomeRecord is the parsed form of one payslip document.
// A record is a duplicate when one already exists with identical
// (PeriodStart, PeriodEnd, GrossPay).
type IncomeRecord struct {
	PeriodStart    time.Time `json:"periodStart"`
	PeriodEnd      time.Time `json:"periodEnd"`
	GrossPay       float64   `json:"grossPay"`
	NetPay         float64   `json:"netPay"`
	Tax            float64   `json:"tax"`
	Superannuation float64   `json:"superannuation"`
}

// CategoryRule matches a case-insensitive substring of a transaction
// description to a category. Lower priority wins; ties break by ID
// ascending (insertion order).
type CategoryRule struct {
	ID       int64  `json:"id"`
	Pattern  string `json:"pattern"`
	Category string `json:"category"`
	Priority int    `json:"priority"`
	Enabled  bool   `json:"enabled"`
}

// CategoryOverride corrects the category of every transaction sharing a
// content hash. At most one override per hash; last write wins.
type CategoryOverride struct {
	ContentHash      string `json:"contentHash"`
	OriginalCategory string `json:"originalCategory"`
	OverrideCategory string `json:"overrideCategory"`
}

// MonthlySummary is the derived per-month aggregate. It is recomputed
// wholesale from the underlying transactions and income, never patched
// incrementally.
type MonthlySummary struct {
	Month             string             `json:"month"` // YYYY-MM
	TotalSpend        float64            `json:"totalSpend"`
	TotalIncome       float64            `json:"totalIncome"`
	TransactionCount  int                `json:"transactionCount"`
	CategoryBreakdown map[string]float64 `json:"categoryBreakdown"`
}

// ImportResult reports what ingestion did with one document.
type ImportResult struct {
	DocumentID string       `json:"documentId"`
	Type       DocumentType `json:"type"`
	Parsed     int          `json:"parsed"`
	New        int          `json:"new"`
	Duplicate  int          `json:"duplicate"`
	Dropped    int          `json:"dropped"`
	Failed     int          `json:"failed"`
	Err        string       `json:"error,omitempty"`
}
