package pdf

import (
	"fmt"
	"time"
)

// InvoiceData is everything printed on an invoice.
type InvoiceData struct {
	Number        string
	IssuedAt      time.Time
	CustomerName  string
	CustomerEmail string
	ArticleTitle  string
	AmountCents   int64
	Currency      string
	PaymentRef    string
}

func Invoice(data InvoiceData) ([]byte, error) {
	doc, tr := newDocument()
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 20)
	doc.CellFormat(0, 10, tr(companyName), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 5, tr(companyAddress), "", 1, "L", false, 0, "")
	doc.Ln(10)

	doc.SetFont("Helvetica", "B", 14)
	doc.CellFormat(0, 8, tr(fmt.Sprintf("Facture n° %s", data.Number)), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 6, tr("Date d'émission : "+FormatDate(data.IssuedAt)), "", 1, "L", false, 0, "")
	if data.PaymentRef != "" {
		doc.CellFormat(0, 6, tr("Référence de paiement : "+data.PaymentRef), "", 1, "L", false, 0, "")
	}
	doc.Ln(6)

	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(0, 6, tr("Facturé à"), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 6, tr(data.CustomerName), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, tr(data.CustomerEmail), "", 1, "L", false, 0, "")
	doc.Ln(8)

	doc.SetFillColor(230, 230, 230)
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(120, 8, tr("Désignation"), "1", 0, "L", true, 0, "")
	doc.CellFormat(50, 8, tr("Montant TTC"), "1", 1, "R", true, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(120, 8, tr("Accès à l'article premium « "+data.ArticleTitle+" »"), "1", 0, "L", false, 0, "")
	doc.CellFormat(50, 8, tr(FormatAmount(data.AmountCents, data.Currency)), "1", 1, "R", false, 0, "")
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(120, 8, tr("Total"), "1", 0, "R", false, 0, "")
	doc.CellFormat(50, 8, tr(FormatAmount(data.AmountCents, data.Currency)), "1", 1, "R", false, 0, "")
	doc.Ln(10)

	doc.SetFont("Helvetica", "I", 9)
	doc.MultiCell(0, 5, tr("Paiement reçu par carte bancaire via Stripe. Merci pour votre confiance."), "", "L", false)

	return output(doc)
}
