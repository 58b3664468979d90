package pdf

import (
	"fmt"
	"strconv"
	"time"

	"techanswers/internal/domain"
)

// Report renders the admin dashboard statistics.
func Report(stats domain.DashboardStats, currency string, generatedAt time.Time) ([]byte, error) {
	doc, tr := newDocument()
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(0, 10, tr("Rapport d'activité "+companyName), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 6, tr(fmt.Sprintf("Période : du %s au %s", FormatDate(stats.Since), FormatDate(generatedAt))), "", 1, "L", false, 0, "")
	doc.Ln(6)

	rows := [][2]string{
		{"Utilisateurs", strconv.FormatInt(stats.Users, 10)},
		{"Articles", strconv.FormatInt(stats.Articles, 10)},
		{"Articles publiés", strconv.FormatInt(stats.PublishedArticles, 10)},
		{"Commentaires", strconv.FormatInt(stats.Comments, 10)},
		{"Paiements réussis", strconv.FormatInt(stats.Payments, 10)},
		{"Chiffre d'affaires", FormatAmount(stats.RevenueCents, currency)},
	}
	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 8, tr("Indicateurs"), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		doc.CellFormat(90, 7, tr(row[0]), "1", 0, "L", false, 0, "")
		doc.CellFormat(60, 7, tr(row[1]), "1", 1, "R", false, 0, "")
	}
	doc.Ln(6)

	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 8, tr("Articles les plus lus"), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	if len(stats.TopArticles) == 0 {
		doc.CellFormat(0, 7, tr("Aucun article publié."), "", 1, "L", false, 0, "")
	}
	for i, a := range stats.TopArticles {
		doc.CellFormat(120, 7, tr(fmt.Sprintf("%d. %s", i+1, a.Title)), "1", 0, "L", false, 0, "")
		doc.CellFormat(30, 7, tr(strconv.FormatInt(a.Views, 10)+" vues"), "1", 1, "R", false, 0, "")
	}
	doc.Ln(6)

	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 8, tr("Pages vues par jour"), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	if len(stats.ViewsPerDay) == 0 {
		doc.CellFormat(0, 7, tr("Aucune visite sur la période."), "", 1, "L", false, 0, "")
	}
	for _, d := range stats.ViewsPerDay {
		doc.CellFormat(60, 6, d.Day, "1", 0, "L", false, 0, "")
		doc.CellFormat(40, 6, strconv.FormatInt(d.Count, 10), "1", 1, "R", false, 0, "")
	}

	return output(doc)
}
