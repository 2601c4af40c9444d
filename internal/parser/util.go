package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ledgerkit/statement-ingest/internal/models"
)

// descriptionLookahead bounds how many lines a parser scans past a
// transaction-start line while looking for an amount.
const descriptionLookahead = 10

// monthNames in match order: full names before abbreviations so "June 1"
// captures "June" rather than "Jun".
const monthNames = `January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Oct|Nov|Dec`

// Transaction-start token: a month name followed by a day number.
// Extraction sometimes drops the separating space ("April17"), so the
// whitespace between them is optional.
var monthDayPattern = regexp.MustCompile(`(?i)^(` + monthNames + `)\s*(\d{1,2})\b`)

// Amount tokens. amountOnlyPattern matches a line that is nothing but an
// amount; amountToken finds an amount inside a line.
var (
	amountOnlyPattern = regexp.MustCompile(`^\$?\s*(-?[\d,]+\.\d{2})\s*$`)
	amountToken       = regexp.MustCompile(`\$?(-?[\d,]+\.\d{2})`)
)

// Statement period headers. Amex prints "From April 18 to May 17, 2024";
// Citi prints "Statement Period April 18 - May 17, 2024".
var (
	periodFromToPattern = regexp.MustCompile(
		`(?i)From\s+(` + monthNames + `)\s+\d{1,2}\s+to\s+(` + monthNames + `)\s+\d{1,2},?\s+(\d{4})`)
	periodDashPattern = regexp.MustCompile(
		`(?i)(?:Statement|Billing)\s+Period:?\s+(` + monthNames + `)\s+\d{1,2}\s*(?:-|to)\s*(` + monthNames + `)\s+\d{1,2},?\s+(\d{4})`)
)

// DefaultSkipPhrases are boilerplate lines skipped while accumulating a
// multi-line description. Kept as data so new statement noise can be
// added without touching the scanning logic.
var DefaultSkipPhrases = []string{
	"page ",
	" of 12",
	"continued on",
	"continued from",
	"american express",
	"citibank",
	"citigroup",
	"prepared for",
	"account ending",
	"membership rewards",
	"payments received",
	"please see",
	"www.",
}

// paymentPhrases mark resolved descriptions that are statement payments,
// not expenses. Matching transactions are dropped entirely.
var paymentPhrases = []string{
	"PAYMENT RECEIVED",
	"PAYMENT - THANK YOU",
	"PAYMENT THANK YOU",
	"THANK YOU FOR YOUR PAYMENT",
	"DIRECT DEBIT RECEIVED",
	"BPAY PAYMENT",
}

var monthsByName = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// parseMonth resolves a month name or abbreviation. Returns 0 when the
// name is not a month.
func parseMonth(name string) time.Month {
	key := strings.ToLower(name)
	if len(key) > 3 {
		key = key[:3]
	}
	return monthsByName[key]
}

// matchMonthDay tests a line for the transaction-start token and returns
// the month, day, and the remainder of the line after the token.
func matchMonthDay(line string) (time.Month, int, string, bool) {
	m := monthDayPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, "", false
	}
	month := parseMonth(m[1])
	day, err := strconv.Atoi(m[2])
	if month == 0 || err != nil || day < 1 || day > 31 {
		return 0, 0, "", false
	}
	rest := strings.TrimSpace(line[len(m[0]):])
	return month, day, rest, true
}

// parseAmount converts "1,234.56", "$86.20" or "-45.00" to a float64.
func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// isAmountOnly reports whether a line is a bare amount, returning it.
func isAmountOnly(line string) (float64, bool) {
	m := amountOnlyPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return 0, false
	}
	amt, err := parseAmount(m[1])
	if err != nil {
		return 0, false
	}
	return amt, true
}

// isCRMarker reports whether a line is a standalone credit marker.
func isCRMarker(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), "CR")
}

// isSkipLine tests a line against the boilerplate skip list, plus page
// numbers and standalone currency signs.
func isSkipLine(line string, skipPhrases []string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "$" || trimmed == "" {
		return true
	}
	if pageNumberPattern.MatchString(trimmed) {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, phrase := range skipPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

var pageNumberPattern = regexp.MustCompile(`(?i)^(page\s+\d+|\d+\s+of\s+\d+|\d{1,3})$`)

// isPaymentDescription reports whether a resolved description is
// payment/thank-you boilerplate rather than an expense.
func isPaymentDescription(desc string) bool {
	upper := strings.ToUpper(desc)
	for _, phrase := range paymentPhrases {
		if strings.Contains(upper, phrase) {
			return true
		}
	}
	return false
}

// extractStatementPeriod finds the statement's period header and returns
// its start month, end month, and declared year.
func extractStatementPeriod(text string) (models.StatementPeriod, bool) {
	for _, pat := range []*regexp.Regexp{periodFromToPattern, periodDashPattern} {
		if m := pat.FindStringSubmatch(text); m != nil {
			start := parseMonth(m[1])
			end := parseMonth(m[2])
			year, err := strconv.Atoi(m[3])
			if start == 0 || end == 0 || err != nil {
				continue
			}
			return models.StatementPeriod{StartMonth: start, EndMonth: end, Year: year}, true
		}
	}
	return models.StatementPeriod{}, false
}

// resolveYear assigns a year to a transaction month. The declared year
// applies throughout unless the period crosses a year boundary and the
// month falls on the earlier side of it (a December transaction on a
// December-to-January statement belongs to the previous year).
func resolveYear(month time.Month, period models.StatementPeriod) int {
	if period.Crossing() && month >= period.StartMonth {
		return period.Year - 1
	}
	return period.Year
}

// collapseSpaces squashes runs of whitespace left behind by extraction.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
