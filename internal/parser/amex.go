package parser

import (
	"regexp"
	"strings"

	"github.com/ledgerkit/statement-ingest/internal/dates"
	"github.com/ledgerkit/statement-ingest/internal/models"
)

// AmexParser handles American Express statement text.
//
// Amex statements repeat a "New transactions for <card member>" header
// for each card member on the account; everything before the first such
// header (the payments-received region among it) is not expense data.
// Transaction lines start with a month name and day, sometimes
// concatenated ("April17"), and the amount may sit on the same line —
// often trailed by a long numeric reference — or alone on a following
// line, with a standalone "CR" marker after it for credits.
type AmexParser struct {
	// SkipPhrases overrides the boilerplate skip list; nil uses
	// DefaultSkipPhrases.
	SkipPhrases []string
	// Lookahead overrides the description accumulation window; zero uses
	// the default.
	Lookahead int
}

func (p *AmexParser) Issuer() models.DocumentType {
	return models.DocAmex
}

func (p *AmexParser) AccountType() string {
	return "amex_credit_card"
}

// Card member section header.
var amexSectionPattern = regexp.MustCompile(`(?im)^\s*New transactions for\s+(.+?)\s*$`)

// Inline grammars for the remainder of a transaction-start line, tried
// in priority order. Amex often runs the description straight into the
// amount and trails a long numeric reference after it.
var (
	// "DESC  86.20 920485671023845"
	amexInlineRefPattern = regexp.MustCompile(`^(.+?)\s+\$?([\d,]+\.\d{2})\s+(\d{6,})$`)
	// "DESC86.20 920485671023845" (no separator before the amount)
	amexConcatRefPattern = regexp.MustCompile(`^(.+?[A-Za-z*])\$?([\d,]+\.\d{2})\s+(\d{6,})$`)
	// "DESC  86.20"
	amexInlinePattern = regexp.MustCompile(`^(.+?)\s+\$?([\d,]+\.\d{2})$`)
)

func (p *AmexParser) Parse(text string) (*models.Statement, error) {
	stmt := &models.Statement{Issuer: models.DocAmex}

	period, ok := extractStatementPeriod(text)
	if !ok {
		// No period header means no recognizable structure. Surface an
		// empty result; flagging it is the caller's decision.
		return stmt, nil
	}
	stmt.Period = period

	for _, section := range amexSections(text) {
		txns, dropped := p.parseSection(section.lines, section.cardMember, period)
		stmt.Transactions = append(stmt.Transactions, txns...)
		stmt.Dropped += dropped
	}

	return stmt, nil
}

type amexSection struct {
	cardMember string
	lines      []string
}

// amexSections splits statement text into per-card-member sections.
// Text before the first header is excluded.
func amexSections(text string) []amexSection {
	headers := amexSectionPattern.FindAllStringSubmatchIndex(text, -1)
	sections := make([]amexSection, 0, len(headers))

	for i, h := range headers {
		member := collapseSpaces(text[h[2]:h[3]])
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		body := text[h[1]:end]
		sections = append(sections, amexSection{
			cardMember: member,
			lines:      strings.Split(body, "\n"),
		})
	}

	return sections
}

func (p *AmexParser) parseSection(lines []string, member string, period models.StatementPeriod) ([]models.RawTransaction, int) {
	skip := p.SkipPhrases
	if skip == nil {
		skip = DefaultSkipPhrases
	}
	window := p.Lookahead
	if window <= 0 {
		window = descriptionLookahead
	}

	var txns []models.RawTransaction
	dropped := 0

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		month, day, rest, ok := matchMonthDay(line)
		if !ok {
			continue
		}

		var desc string
		var amount float64
		credit := false
		resolved := false

		// Inline grammars first.
		for _, pat := range []*regexp.Regexp{amexInlineRefPattern, amexConcatRefPattern, amexInlinePattern} {
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
			// Amount on a following line: accumulate description text
			// within the lookahead window.
			var parts []string
			if rest != "" && !isSkipLine(rest, skip) {
				parts = append(parts, rest)
			}
			limit := i + window
			j := i + 1
			for ; j < len(lines) && j <= limit; j++ {
				l := strings.TrimSpace(lines[j])
				if _, _, _, isStart := matchMonthDay(l); isStart {
					// A new transaction opened before an amount was
					// found; the current candidate is malformed.
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
				dropped++
				i = j - 1
				continue
			}
			desc = strings.Join(parts, " ")
			i = j
		}

		desc = collapseSpaces(desc)
		if desc == "" {
			dropped++
			continue
		}
		if isPaymentDescription(desc) {
			continue
		}
		if credit {
			amount = -amount
		}

		txns = append(txns, models.RawTransaction{
			Date:        dates.Date(resolveYear(month, period), month, day),
			Description: desc,
			Amount:      amount,
			CardMember:  member,
		})
	}

	return txns, dropped
}
