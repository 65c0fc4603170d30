package testutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FeedHeader is the column set used by the class feed fixtures.
var FeedHeader = []string{"name", "start_date", "total_student"}

// FeedCSV renders rows under header as CSV text. A nil header uses FeedHeader.
// Cells are written as given; fixtures do not need quoting.
func FeedCSV(header []string, rows ...[]string) string {
	if header == nil {
		header = FeedHeader
	}
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString(strings.Join(r, ","))
		b.WriteString("\n")
	}
	return b.String()
}

// WriteFeedFile writes body into a temp file and returns its path.
func WriteFeedFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "classes.csv")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write feed: %v", err)
	}
	return path
}

// NewFileServer serves fixed bodies by path and 404s everything else.
// The server is closed when the test ends.
func NewFileServer(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}
