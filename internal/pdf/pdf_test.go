package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techanswers/internal/domain"
)

func TestInvoiceRendersPDF(t *testing.T) {
	out, err := Invoice(InvoiceData{
		Number:        "TA-202610-0a1b2c3d",
		IssuedAt:      time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
		CustomerName:  "Hélène",
		CustomerEmail: "helene@example.fr",
		ArticleTitle:  "Comprendre les générics",
		AmountCents:   499,
		Currency:      "eur",
		PaymentRef:    "pi_123",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestReportRendersPDF(t *testing.T) {
	stats := domain.DashboardStats{
		Users:        3,
		Articles:     4,
		RevenueCents: 1250,
		ViewsPerDay:  []domain.DailyCount{{Day: "2026-10-13", Count: 12}},
		TopArticles:  []domain.ArticleViews{{ArticleID: 1, Title: "Déployer", Views: 12}},
		Since:        time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
	}
	out, err := Report(stats, "eur", time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "4,99 €", FormatAmount(499, "eur"))
	assert.Equal(t, "12,05 €", FormatAmount(1205, "EUR"))
	assert.Equal(t, "1,00 USD", FormatAmount(100, "usd"))
	assert.Equal(t, "-0,50 €", FormatAmount(-50, "eur"))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "2 mars 2026", FormatDate(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "14 août 2026", FormatDate(time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC)))
}
