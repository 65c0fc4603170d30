package config

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	apperrors "classwatch/internal/errors"
	"classwatch/internal/source"
	"classwatch/pkg/contracts/domain"
)

// Recognized keys of the remote key/value table.
const (
	KeyDaysAhead   = "days_ahead"
	KeyMinStudents = "min_students"
)

// KeyValueSource provides the remote two-column (key, value) table.
type KeyValueSource interface {
	Fetch(ctx context.Context) (map[string]string, error)
	Name() string
}

// Resolver produces the RunConfig for one run.
// Precedence per key: environment override, remote table, default.
type Resolver struct {
	remote    KeyValueSource
	overrides ReportConfig
	timeout   time.Duration
	logger    *slog.Logger
}

// NewResolver creates a resolver. remote may be nil when no table is declared.
func NewResolver(remote KeyValueSource, overrides ReportConfig, timeout time.Duration, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{remote: remote, overrides: overrides, timeout: timeout, logger: logger}
}

// Resolve fetches the remote table (if any) and coerces the recognized keys.
func (r *Resolver) Resolve(ctx context.Context) (domain.RunConfig, error) {
	table := map[string]string{}
	if r.remote != nil {
		fetchCtx := ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		var err error
		table, err = r.remote.Fetch(fetchCtx)
		if err != nil {
			return domain.RunConfig{}, apperrors.NewConfigFetchError(r.remote.Name(), err)
		}
	}

	rc := domain.RunConfig{
		DaysAhead:   resolveKey(domain.DefaultDaysAhead, r.overrides.DaysAhead, table[KeyDaysAhead]),
		MinStudents: resolveKey(domain.DefaultMinStudents, r.overrides.MinStudents, table[KeyMinStudents]),
	}

	r.logger.InfoContext(ctx, "Resolved run config",
		slog.Bool("remote", r.remote != nil),
		slog.Int("days_ahead", rc.DaysAhead),
		slog.Int("min_students", rc.MinStudents))

	return rc, nil
}

func resolveKey(fallback int, candidates ...string) int {
	for _, raw := range candidates {
		if v, ok := ParsePositiveInt(raw); ok {
			return v
		}
	}
	return fallback
}

// ParsePositiveInt coerces raw to a positive integer no larger than MaxInt32.
// Integral decimals such as "14.0" are accepted since spreadsheet exports
// often write numbers that way.
func ParsePositiveInt(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if v, err := strconv.ParseInt(raw, 10, 32); err == nil {
		return int(v), v > 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), f > 0
}

// TableFromRows builds the key/value map from a table whose header names the
// "key" and "value" columns. Later duplicates win.
func TableFromRows(rows [][]string) (map[string]string, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("config table is empty")
	}
	keyCol, valueCol := -1, -1
	for i, name := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "key":
			keyCol = i
		case "value":
			valueCol = i
		}
	}
	if keyCol < 0 || valueCol < 0 {
		return nil, fmt.Errorf("config table must have \"key\" and \"value\" columns, got %v", rows[0])
	}

	table := make(map[string]string, len(rows)-1)
	for _, row := range rows[1:] {
		if keyCol >= len(row) {
			continue
		}
		key := strings.TrimSpace(row[keyCol])
		if key == "" {
			continue
		}
		value := ""
		if valueCol < len(row) {
			value = strings.TrimSpace(row[valueCol])
		}
		table[key] = value
	}
	return table, nil
}

// HTTPTableSource reads the key/value table as CSV from a URL or local path.
type HTTPTableSource struct {
	client   *http.Client
	location string
}

// NewHTTPTableSource creates a CSV-backed key/value source.
func NewHTTPTableSource(client *http.Client, location string) *HTTPTableSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTableSource{client: client, location: location}
}

// Name identifies the source in errors and logs.
func (s *HTTPTableSource) Name() string {
	return s.location
}

// Fetch downloads and parses the table.
func (s *HTTPTableSource) Fetch(ctx context.Context) (map[string]string, error) {
	payload, err := source.Fetch(ctx, s.client, s.location)
	if err != nil {
		return nil, err
	}
	rows, err := source.ReadTable(payload)
	if err != nil {
		return nil, err
	}
	return TableFromRows(rows)
}

// SheetsTableSource reads the key/value table from a Google Sheets range.
type SheetsTableSource struct {
	service *sheets.Service
	sheetID string
	rng     string
}

// NewSheetsTableSource creates a Sheets-backed source. Without an API key the
// caller must supply credentials through opts.
func NewSheetsTableSource(ctx context.Context, sheetID, rng, apiKey string, opts ...option.ClientOption) (*SheetsTableSource, error) {
	if apiKey != "" {
		opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	}
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &SheetsTableSource{service: service, sheetID: sheetID, rng: rng}, nil
}

// Name identifies the source in errors and logs.
func (s *SheetsTableSource) Name() string {
	return "sheets:" + s.sheetID + "!" + s.rng
}

// Fetch reads the range and parses it like the CSV table.
func (s *SheetsTableSource) Fetch(ctx context.Context) (map[string]string, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.sheetID, s.rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet values: %w", err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = fmt.Sprint(cell)
		}
		rows = append(rows, cells)
	}
	return TableFromRows(rows)
}

// NewRemoteSource picks the declared key/value source, or nil when none is declared.
// A Sheets ID takes precedence over a CSV URL.
func NewRemoteSource(ctx context.Context, cfg RemoteConfig, client *http.Client) (KeyValueSource, error) {
	switch {
	case cfg.SheetID != "":
		src, err := NewSheetsTableSource(ctx, cfg.SheetID, cfg.SheetRange, cfg.SheetsAPIKey)
		if err != nil {
			return nil, apperrors.NewConfigFetchError("sheets:"+cfg.SheetID, err)
		}
		return src, nil
	case cfg.ConfigURL != "":
		return NewHTTPTableSource(client, cfg.ConfigURL), nil
	default:
		return nil, nil
	}
}
