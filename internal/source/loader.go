package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	apperrors "classwatch/internal/errors"
	"classwatch/pkg/contracts/domain"
)

// maxPayloadBytes caps how much of a remote table is read into memory. A larger
// response is an error, never a truncated table.
var maxPayloadBytes int64 = 32 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Loader fetches the class feed and parses it into a Dataset.
type Loader struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewLoader creates a loader. A zero timeout leaves only the caller's context as a bound.
func NewLoader(client *http.Client, timeout time.Duration, logger *slog.Logger) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{client: client, timeout: timeout, logger: logger}
}

// Load reads the table at location (http(s) URL, file:// URL or local path).
// Column names and row order are kept as given by the source.
func (l *Loader) Load(ctx context.Context, location string) (*domain.Dataset, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	payload, err := Fetch(ctx, l.client, location)
	if err != nil {
		return nil, apperrors.NewDataFetchError(redactURL(location), err)
	}

	rows, err := ReadTable(payload)
	if err != nil {
		return nil, apperrors.NewDataParseError("class feed is not a well-formed CSV table", err).
			WithContext("location", location)
	}

	dataset, err := toDataset(rows)
	if err != nil {
		return nil, apperrors.NewDataParseError(err.Error(), nil).WithContext("location", location)
	}

	l.logger.InfoContext(ctx, "Loaded class feed",
		slog.String("location", redactURL(location)),
		slog.Int("columns", len(dataset.Columns)),
		slog.Int("records", dataset.Len()))

	return dataset, nil
}

// Fetch returns the raw bytes at location. Non-2xx HTTP responses are errors.
func Fetch(ctx context.Context, client *http.Client, location string) ([]byte, error) {
	u, err := url.Parse(location)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return fetchHTTP(ctx, client, location)
	}
	path := location
	if err == nil && u.Scheme == "file" {
		path = u.Path
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func fetchHTTP(ctx context.Context, client *http.Client, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > maxPayloadBytes {
		return nil, fmt.Errorf("payload exceeds limit of %d bytes", maxPayloadBytes)
	}
	return data, nil
}

// ReadTable parses CSV bytes into rows. The header row is required.
func ReadTable(payload []byte) ([][]string, error) {
	payload = bytes.TrimPrefix(payload, utf8BOM)
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, fmt.Errorf("empty payload")
	}

	reader := csv.NewReader(bytes.NewReader(payload))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no header row")
	}
	for i, name := range rows[0] {
		rows[0][i] = strings.TrimSpace(name)
	}
	return rows, nil
}

func toDataset(rows [][]string) (*domain.Dataset, error) {
	dataset := &domain.Dataset{
		Columns: rows[0],
		Records: make([]domain.ClassRecord, 0, len(rows)-1),
	}

	for _, required := range []string{domain.ColumnStartDate, domain.ColumnTotalStudent} {
		if dataset.ColumnIndex(required) < 0 {
			return nil, fmt.Errorf("class feed has no %q column", required)
		}
	}

	width := len(dataset.Columns)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		values := make([]string, width)
		copy(values, row)
		dataset.Records = append(dataset.Records, domain.ClassRecord{Values: values})
	}
	return dataset, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// redactURL drops query strings, which often carry sheet keys or tokens.
func redactURL(location string) string {
	u, err := url.Parse(location)
	if err != nil || u.RawQuery == "" {
		return location
	}
	u.RawQuery = ""
	return u.String() + "?…"
}
