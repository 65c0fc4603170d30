package exporter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"classwatch/pkg/contracts/domain"
)

// DisplayDate is the day/month/year form used in the summary and the email.
func DisplayDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// WriteSummary prints the human-readable run summary: reference date,
// parameters, match count and the selected classes as an aligned table.
func WriteSummary(w io.Writer, result *domain.ReportResult) error {
	p := result.Params
	var b strings.Builder

	fmt.Fprintf(&b, "\nToday is %s\n", DisplayDate(result.ReferenceDate))
	if result.Empty() {
		fmt.Fprintf(&b, "No classes need attention in the next %d days (0 matches).\n", p.DaysAhead)
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "Classes starting within %d days with fewer than %d students: %d\n",
		p.DaysAhead, p.MinStudents, result.Classes.Len())

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(result.Classes.Columns, "\t"))
	for i := range result.Classes.Records {
		cells := make([]string, len(result.Classes.Columns))
		for col := range cells {
			cells[col] = sanitizeCell(result.Classes.Value(i, col))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func sanitizeCell(s string) string {
	return strings.NewReplacer("\t", " ", "\r", " ", "\n", " ").Replace(s)
}
