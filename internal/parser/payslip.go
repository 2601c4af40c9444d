package parser

import (
	"fmt"
	"regexp"
	"time"

	"github.com/ledgerkit/statement-ingest/internal/dates"
	"github.com/ledgerkit/statement-ingest/internal/models"
)

// Payslip field labels vary by payroll system; each field gets a small
// ordered list of label patterns tried in sequence. Amounts follow the
// label on the same line.
var (
	payPeriodPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Pay\s+Period:?\s+(\d{1,2}/\d{1,2}/\d{4})\s*(?:-|to)\s*(\d{1,2}/\d{1,2}/\d{4})`),
		regexp.MustCompile(`(?i)Period:?\s+(\d{1,2}/\d{1,2}/\d{4})\s*(?:-|to)\s*(\d{1,2}/\d{1,2}/\d{4})`),
		regexp.MustCompile(`(?i)Period\s+Start(?:ing)?:?\s+(\d{1,2}/\d{1,2}/\d{4}).*?Period\s+End(?:ing)?:?\s+(\d{1,2}/\d{1,2}/\d{4})`),
	}
	grossPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Gross\s+Pay(?:ments)?:?\s+\$?([\d,]+\.\d{2})`),
		regexp.MustCompile(`(?i)Total\s+Gross:?\s+\$?([\d,]+\.\d{2})`),
		regexp.MustCompile(`(?i)Gross\s+Earnings:?\s+\$?([\d,]+\.\d{2})`),
	}
	netPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Net\s+Pay(?:ment)?:?\s+\$?([\d,]+\.\d{2})`),
		regexp.MustCompile(`(?i)Take\s+Home:?\s+\$?([\d,]+\.\d{2})`),
	}
	taxPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)PAYG\s+Tax:?\s+\$?([\d,]+\.\d{2})`),
		regexp.MustCompile(`(?i)Tax(?:ation)?\s+Withheld:?\s+\$?([\d,]+\.\d{2})`),
		regexp.MustCompile(`(?i)\bTax:?\s+\$?([\d,]+\.\d{2})`),
	}
	superPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Superannuation(?:\s+Guarantee)?:?\s+\$?([\d,]+\.\d{2})`),
		regexp.MustCompile(`(?i)Super\s+(?:Guarantee|Contribution):?\s+\$?([\d,]+\.\d{2})`),
		regexp.MustCompile(`(?i)\bSGC:?\s+\$?([\d,]+\.\d{2})`),
	}
)

// ParsePayslip turns one payslip's raw text into a single income record.
// The pay period and gross pay are required; a payslip missing them is a
// parse failure for that document. Tax and superannuation default to
// zero when absent.
func ParsePayslip(text string) (*models.IncomeRecord, error) {
	start, end, err := findPayPeriod(text)
	if err != nil {
		return nil, err
	}

	gross, ok := findLabeledAmount(text, grossPatterns)
	if !ok {
		return nil, fmt.Errorf("no gross pay found in payslip")
	}
	net, _ := findLabeledAmount(text, netPatterns)
	tax, _ := findLabeledAmount(text, taxPatterns)
	super, _ := findLabeledAmount(text, superPatterns)

	return &models.IncomeRecord{
		PeriodStart:    start,
		PeriodEnd:      end,
		GrossPay:       gross,
		NetPay:         net,
		Tax:            tax,
		Superannuation: super,
	}, nil
}

func findPayPeriod(text string) (time.Time, time.Time, error) {
	for _, pat := range payPeriodPatterns {
		m := pat.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		start, err1 := parseSlashDate(m[1])
		end, err2 := parseSlashDate(m[2])
		if err1 != nil || err2 != nil {
			continue
		}
		return start, end, nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("no pay period found in payslip")
}

func findLabeledAmount(text string, patterns []*regexp.Regexp) (float64, bool) {
	for _, pat := range patterns {
		if m := pat.FindStringSubmatch(text); m != nil {
			amt, err := parseAmount(m[1])
			if err == nil {
				return amt, true
			}
		}
	}
	return 0, false
}

// parseSlashDate parses DD/MM/YYYY into the ledger timezone.
func parseSlashDate(s string) (time.Time, error) {
	return time.ParseInLocation("2/1/2006", s, dates.Ledger)
}
