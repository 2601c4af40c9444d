package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ledgerkit/statement-ingest/internal/models"
)

// CSVWriter exports ledger transactions to CSV.
type CSVWriter struct {
	IncludeHash bool // append the content hash column
}

// WriteToFile writes transactions to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, txns []models.Transaction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, txns)
}

// Write writes transactions in CSV format to the given writer. Dates
// are formatted in the ledger timezone they were parsed in.
func (w *CSVWriter) Write(out io.Writer, txns []models.Transaction) error {
	writer := csv.NewWriter(out)
	defer writer.Flush()

	header := []string{"Date", "Description", "Amount", "Category", "Account", "Card Member"}
	if w.IncludeHash {
		header = append(header, "Content Hash")
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, txn := range txns {
		row := []string{
			txn.Date.Format("2006-01-02"),
			txn.Description,
			strconv.FormatFloat(txn.Amount, 'f', 2, 64),
			txn.Category,
			txn.AccountType,
			txn.CardMember,
		}
		if w.IncludeHash {
			row = append(row, txn.ContentHash)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	return nil
}
