// Package export renders leads and profiles into downloadable files.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/avvvet/tap-services/internal/tapsvc/models"
)

var LeadColumns = []string{"Name", "Email", "Telefon", "Nachricht", "Datum"}

const (
	CSVContentType  = "text/csv; charset=utf-8"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// GermanDate matches the short de-DE date form, e.g. 7.3.2026.
const GermanDate = "2.1.2006"

// LeadsFilename names an export created at now, e.g. leads_2026-03-07.csv.
func LeadsFilename(now time.Time, ext string) string {
	return fmt.Sprintf("leads_%s.%s", now.Format("2006-01-02"), ext)
}

// LeadRow returns the export cells of a lead in LeadColumns order.
func LeadRow(l *models.Lead, loc *time.Location) []string {
	if loc == nil {
		loc = time.UTC
	}
	return []string{
		models.Deref(l.Name),
		models.Deref(l.Email),
		models.Deref(l.Phone),
		models.Deref(l.Message),
		l.CreatedAt.In(loc).Format(GermanDate),
	}
}

// LeadsCSV renders the header unquoted and quotes every data cell. Lines are
// separated by "\n" with no trailing newline.
func LeadsCSV(leads []*models.Lead, loc *time.Location) string {
	lines := make([]string, 0, len(leads)+1)
	lines = append(lines, strings.Join(LeadColumns, ","))

	for _, l := range leads {
		cells := LeadRow(l, loc)
		for i, c := range cells {
			cells[i] = quote(c)
		}
		lines = append(lines, strings.Join(cells, ","))
	}

	return strings.Join(lines, "\n")
}

func WriteLeadsCSV(w io.Writer, leads []*models.Lead, loc *time.Location) error {
	_, err := io.WriteString(w, LeadsCSV(leads, loc))
	return err
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
