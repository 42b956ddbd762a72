package dataprocessing

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/errors"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/infrastructure"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/pkg/contracts/domain"
)

const utf8BOM = "\ufeff"

// LoaderConfig holds configuration options for the Loader.
type LoaderConfig struct {
	Delimiter rune   // CSV field separator, ',' when zero
	Sheet     string // worksheet of an .xlsx input; empty picks the first sheet with a master_id header
}

// Loader reads customer records from CSV or XLSX files and validates them.
// Every invalid field of every record is collected before failing.
type Loader struct {
	logger    *slog.Logger
	config    LoaderConfig
	validator *RecordValidator
}

// NewLoader creates a new record loader with the given configuration.
func NewLoader(logger *slog.Logger, config LoaderConfig) *Loader {
	if config.Delimiter == 0 {
		config.Delimiter = ','
	}

	return &Loader{
		logger:    infrastructure.WithComponent(logger, "loader"),
		config:    config,
		validator: NewRecordValidator(),
	}
}

// Load reads the file at path. Files ending in .xlsx are read as workbooks,
// everything else as delimited text.
func (l *Loader) Load(ctx context.Context, path string) (*domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		header []string
		rows   [][]string
		err    error
	)

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		header, rows, err = l.readXLSX(ctx, path)
	} else {
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, apperrors.NewIOError(fmt.Sprintf("failed to open input %s", path), err)
		}
		defer f.Close()
		header, rows, err = l.readCSV(f)
	}
	if err != nil {
		return nil, err
	}

	ds, err := l.build(ctx, path, header, rows)
	if err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "records loaded",
		slog.String("source", path),
		slog.Int("records", ds.Len()),
		slog.Int("columns", len(ds.Header)))

	return ds, nil
}

// LoadReader reads delimited text from r. source names the input in logs and errors.
func (l *Loader) LoadReader(ctx context.Context, r io.Reader, source string) (*domain.Dataset, error) {
	header, rows, err := l.readCSV(r)
	if err != nil {
		return nil, err
	}
	return l.build(ctx, source, header, rows)
}

func (l *Loader) readCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = l.config.Delimiter
	// Ragged rows are reported as violations instead of aborting the read
	reader.FieldsPerRecord = -1

	all, err := reader.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, nil, apperrors.NewInputError(fmt.Sprintf("malformed delimited text at line %d", parseErr.Line), err)
		}
		return nil, nil, apperrors.NewIOError("failed to read input", err)
	}
	if len(all) == 0 {
		return nil, nil, apperrors.NewInputError("input is empty", nil)
	}

	header := all[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	return header, all[1:], nil
}

func (l *Loader) readXLSX(ctx context.Context, path string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, apperrors.NewIOError(fmt.Sprintf("failed to open workbook %s", path), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if l.config.Sheet != "" {
		sheets = []string{l.config.Sheet}
	}

	for _, name := range sheets {
		rows, err := f.GetRows(name)
		if err != nil {
			if l.config.Sheet != "" {
				return nil, nil, apperrors.NewInputError(fmt.Sprintf("failed to read sheet %q", name), err)
			}
			continue
		}
		if len(rows) == 0 || !containsString(rows[0], domain.ColMasterID) {
			continue
		}

		l.logger.DebugContext(ctx, "found customer sheet",
			slog.String("sheet_name", name),
			slog.Int("total_rows", len(rows)))

		header := rows[0]
		body := rows[1:]
		// GetRows trims trailing empty cells; pad back to the header width
		for i, row := range body {
			if len(row) < len(header) {
				padded := make([]string, len(header))
				copy(padded, row)
				body[i] = padded
			}
		}
		return header, body, nil
	}

	return nil, nil, apperrors.NewInputError(fmt.Sprintf("no sheet with a %s header in %s", domain.ColMasterID, path), nil)
}

// build validates the header, parses every row and fails with all violations found
func (l *Loader) build(ctx context.Context, source string, header []string, rows [][]string) (*domain.Dataset, error) {
	if err := checkHeader(header); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewInputError("input has a header but no records", nil)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}

	var violations apperrors.Violations
	records := make([]domain.CustomerRecord, 0, len(rows))
	firstSeen := make(map[string]int, len(rows))

	for i, fields := range rows {
		if i%5000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		// header is line 1
		line := i + 2
		if len(fields) != len(header) {
			violations = append(violations, apperrors.Violation{
				Row:    line,
				Field:  "record",
				Reason: fmt.Sprintf("expected %d fields, got %d", len(header), len(fields)),
			})
			continue
		}

		rec, vs := l.validator.ParseRecord(line, index, fields)
		if len(vs) > 0 {
			violations = append(violations, vs...)
			continue
		}

		if prev, dup := firstSeen[rec.MasterID]; dup {
			violations = append(violations, apperrors.Violation{
				Row:      line,
				MasterID: rec.MasterID,
				Field:    domain.ColMasterID,
				Reason:   fmt.Sprintf("duplicate of row %d", prev),
			})
			continue
		}
		firstSeen[rec.MasterID] = line
		records = append(records, rec)
	}

	if len(violations) > 0 {
		l.logger.ErrorContext(ctx, "input validation failed",
			slog.String("source", source),
			slog.Int("violations", len(violations)),
			slog.Int("invalid_records", violations.Rows()))
		return nil, apperrors.NewMalformedInputError(violations)
	}

	return &domain.Dataset{
		Source:  source,
		Header:  append([]string(nil), header...),
		Records: records,
	}, nil
}

func checkHeader(header []string) error {
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		if seen[h] {
			return apperrors.NewInputError(fmt.Sprintf("duplicate column %q in header", h), nil)
		}
		seen[h] = true
	}

	var missing []string
	for _, col := range domain.RequiredColumns {
		if !seen[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return apperrors.NewInputError(fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")), nil).
			WithContext("missing_columns", missing)
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if strings.TrimPrefix(v, utf8BOM) == s {
			return true
		}
	}
	return false
}
