package parser

import (
	"regexp"
	"strings"

	"github.com/ledgerkit/statement-ingest/internal/dates"
	"github.com/ledgerkit/statement-ingest/internal/models"
)

// CitiParser handles Citibank statement text.
//
// Citi statements are the cleaner grammar: one whitespace-separated
// "Month Day  Description  Amount" line per transaction, sometimes with
// a card reference number after the amount. Amounts occasionally spill
// onto the following line, and credits carry a standalone "CR" marker
// like Amex.
type CitiParser struct {
	SkipPhrases []string
	Lookahead   int
}

func (p *CitiParser) Issuer() models.DocumentType {
	return models.DocCiti
}

func (p *CitiParser) AccountType() string {
	return "citi_credit_card"
}

// Line grammars for the remainder of a transaction-start line, tried in
// priority order.
var (
	// "DESC  86.20 5521XXXXXXXX1234" (reference after the amount)
	citiRefPattern = regexp.MustCompile(`^(.+?)\s+\$?(-?[\d,]+\.\d{2})\s+[\dX]{6,}$`)
	// "DESC  86.20"
	citiPlainPattern = regexp.MustCompile(`^(.+?)\s+\$?(-?[\d,]+\.\d{2})$`)
)

// citiHeaderPattern marks the start of the transaction table.
var citiHeaderPattern = regexp.MustCompile(`(?im)^\s*(your\s+)?transactions\b`)

func (p *CitiParser) Parse(text string) (*models.Statement, error) {
	stmt := &models.Statement{Issuer: models.DocCiti}

	period, ok := extractStatementPeriod(text)
	if !ok {
		return stmt, nil
	}
	stmt.Period = period

	skip := p.SkipPhrases
	if skip == nil {
		skip = DefaultSkipPhrases
	}
	window := p.Lookahead
	if window <= 0 {
		window = descriptionLookahead
	}

	lines := strings.Split(text, "\n")

	// When the transactions header survived extraction, dated lines
	// before it (the payments/summary region) are not expense data.
	// Some extractions lose the header entirely; then every dated line
	// is a candidate.
	inTransactionSection := !citiHeaderPattern.MatchString(text)

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		if citiHeaderPattern.MatchString(line) {
			inTransactionSection = true
			continue
		}
		if !inTransactionSection {
			continue
		}

		month, day, rest, ok := matchMonthDay(line)
		if !ok {
			continue
		}

		var desc string
		var amount float64
		credit := false
		resolved := false

		for _, pat := range []*regexp.Regexp{citiRefPattern, citiPlainPattern} {
			if m := pat.FindStringSubmatch(rest); m != nil {
				desc = m[1]
				amount, _ = parseAmount(m[2])
				resolved = true
				break
			}
		}

		if resolved {
			if i+1 < len(lines) && isCRMarker(lines[i+1]) {
				credit = true
				i++
			}
		} else {
			var parts []string
			if rest != "" && !isSkipLine(rest, skip) {
				parts = append(parts, rest)
			}
			limit := i + window
			j := i + 1
			for ; j < len(lines) && j <= limit; j++ {
				l := strings.TrimSpace(lines[j])
				if _, _, _, isStart := matchMonthDay(l); isStart {
					break
				}
				if isSkipLine(l, skip) {
					continue
				}
				if amt, isAmt := isAmountOnly(l); isAmt {
					amount = amt
					resolved = true
					if j+1 < len(lines) && isCRMarker(lines[j+1]) {
						credit = true
						j++
					}
					break
				}
				parts = append(parts, l)
			}
			if !resolved {
				stmt.Dropped++
				i = j - 1
				continue
			}
			desc = strings.Join(parts, " ")
			i = j
		}

		desc = collapseSpaces(desc)
		if desc == "" {
			stmt.Dropped++
			continue
		}
		if isPaymentDescription(desc) {
			continue
		}
		if credit {
			amount = -amount
		}

		stmt.Transactions = append(stmt.Transactions, models.RawTransaction{
			Date:        dates.Date(resolveYear(month, period), month, day),
			Description: desc,
			Amount:      amount,
		})
	}

	return stmt, nil
}
