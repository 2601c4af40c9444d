package extractor

import (
	"fmt"
	"io"
	"math"
	"os/exec"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// ExtractText reads a PDF file and returns its full text as one string,
// pages separated by blank lines. It tries multiple extraction methods
// to handle different PDF encodings; if the structured library fails it
// falls back to the external pdftotext command (poppler-utils).
func ExtractText(filePath string) (string, error) {
	text, libErr := extractWithLibrary(filePath)
	if libErr == nil && isReadableText(text) {
		return text, nil
	}

	popplerText, popplerErr := extractWithPdftotext(filePath)
	if popplerErr == nil && isReadableText(popplerText) {
		return popplerText, nil
	}

	// All methods failed — never return garbage text
	if libErr != nil {
		return "", fmt.Errorf("pdf text extraction failed: %w; the file may be scanned or use custom font encodings", libErr)
	}
	return "", fmt.Errorf("no readable text could be extracted from %s; the file may be image-based or use custom font encodings", filePath)
}

// textQuality returns the ratio of basic ASCII readable characters (a-z,
// A-Z, 0-9, common punctuation, whitespace) to total characters.
// Uses a strict ASCII check — unicode.IsLetter() is too broad and matches
// accented characters that appear in garbage from identity-encoded fonts.
func textQuality(text string) float64 {
	total := 0
	readable := 0
	for _, r := range text {
		total++
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || unicode.IsSpace(r) ||
			r == '.' || r == ',' || r == '-' || r == '/' || r == ':' ||
			r == ';' || r == '(' || r == ')' || r == '\'' || r == '"' ||
			r == '$' || r == '%' || r == '&' || r == '@' || r == '#' ||
			r == '!' || r == '?' || r == '+' || r == '=' || r == '*' {
			readable++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

// commonWords that appear in virtually every card statement or payslip.
// If the extracted text contains none of these, it's likely garbage.
var commonWords = []string{
	"account", "balance", "date", "payment", "statement", "total",
	"amount", "credit", "transaction", "card", "member", "period",
	"gross", "net", "pay", "closing", "opening", "page",
}

func containsCommonWords(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range commonWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// isReadableText checks that the text is long enough, actually readable
// (not binary garbage), and contains at least one recognizable word.
func isReadableText(text string) bool {
	if len(strings.TrimSpace(text)) <= 50 {
		return false
	}
	if textQuality(text) <= 0.6 {
		return false
	}
	return containsCommonWords(text)
}

// IsReadableText is the exported version for use by other packages.
func IsReadableText(text string) bool {
	return isReadableText(text)
}

// extractWithPdftotext uses the external pdftotext command from
// poppler-utils as a fallback for PDFs the Go library cannot handle.
func extractWithPdftotext(filePath string) (string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return "", fmt.Errorf("pdftotext not available: %w", err)
	}

	out, err := exec.Command("pdftotext", "-layout", filePath, "-").Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	text := strings.TrimSpace(string(out))
	if text == "" {
		return "", fmt.Errorf("pdftotext produced no output")
	}
	return text, nil
}

// extractWithLibrary uses the ledongthuc/pdf library, trying several
// extraction paths in order of layout fidelity.
func extractWithLibrary(filePath string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf library crashed: %v", r)
		}
	}()

	f, r, openErr := pdf.Open(filePath)
	if openErr != nil {
		return "", openErr
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return "", fmt.Errorf("pdf has no pages")
	}

	// Method 1: GetTextByRow (best layout preservation)
	text = extractByRow(r, numPages)
	if isReadableText(text) {
		return text, nil
	}

	// Method 2: Page.Content() with coordinate-based row reconstruction
	text = extractByContent(r, numPages)
	if isReadableText(text) {
		return text, nil
	}

	// Method 3: whole-document plain text
	text = extractByReaderPlainText(r)
	return text, nil
}

// Method 1: GetTextByRow — best for well-structured PDFs.
func extractByRow(r *pdf.Reader, numPages int) string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			line := strings.TrimSpace(strings.Join(parts, " "))
			if line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return strings.Join(pages, "\n\n")
}

// Method 2: Page.Content() — lower-level access to text objects.
// Groups text pieces by Y coordinate to reconstruct rows, then sorts by X.
func extractByContent(r *pdf.Reader, numPages int) string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		if len(content.Text) == 0 {
			continue
		}

		type textItem struct {
			x float64
			s string
		}
		rowMap := make(map[int][]textItem)
		for _, t := range content.Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			// Round Y to nearest integer to group into rows
			yKey := int(math.Round(t.Y))
			rowMap[yKey] = append(rowMap[yKey], textItem{x: t.X, s: t.S})
		}

		// PDF Y goes bottom-to-top, so rows sort descending
		yKeys := make([]int, 0, len(rowMap))
		for y := range rowMap {
			yKeys = append(yKeys, y)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(yKeys)))

		var lines []string
		for _, y := range yKeys {
			items := rowMap[y]
			sort.Slice(items, func(a, b int) bool {
				return items[a].x < items[b].x
			})

			var parts []string
			var prevX float64
			for j, item := range items {
				if j > 0 && item.x-prevX > 15 {
					// Large gap — insert extra space as column separator
					parts = append(parts, "  ")
				}
				parts = append(parts, item.s)
				prevX = item.x
			}
			line := strings.TrimSpace(strings.Join(parts, ""))
			if line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return strings.Join(pages, "\n\n")
}

// Method 3: Reader.GetPlainText — whole-document extraction.
func extractByReaderPlainText(r *pdf.Reader) string {
	reader, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
