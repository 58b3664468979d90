// Package pdf renders invoices and admin reports.
package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	companyName    = "TechAnswers"
	companyAddress = "Plateforme de contenus techniques"
)

func newDocument() (*fpdf.Fpdf, func(string) string) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(companyName, true)
	doc.SetAuthor(companyName, true)
	doc.SetMargins(20, 20, 20)
	doc.SetAutoPageBreak(true, 20)
	// core fonts are cp1252; translate so accents and the euro sign render
	return doc, doc.UnicodeTranslatorFromDescriptor("")
}

func output(doc *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// FormatAmount renders cents in the French convention, e.g. "12,50 €".
func FormatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	symbol := strings.ToUpper(currency)
	if strings.EqualFold(currency, "eur") {
		symbol = "€"
	}
	return fmt.Sprintf("%s%d,%02d %s", sign, cents/100, cents%100, symbol)
}

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// FormatDate renders t as "2 mars 2026".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), frenchMonths[t.Month()-1], t.Year())
}
