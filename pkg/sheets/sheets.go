package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// GoogleReader reads one sheet of a Google spreadsheet.
type GoogleReader struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
}

// NewGoogleReader builds a read-only Sheets client. An empty jsonPath falls
// back to application default credentials.
func NewGoogleReader(ctx context.Context, jsonPath, spreadsheetID, sheetName string) (*GoogleReader, error) {
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsReadonlyScope)}
	if jsonPath != "" {
		opts = append(opts, option.WithCredentialsFile(jsonPath))
	}
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets client: %w", err)
	}
	return &GoogleReader{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func (s *GoogleReader) ReadRows(ctx context.Context) (*RowSet, error) {
	sheetName := s.sheetName
	if sheetName == "" {
		first, err := s.firstSheet(ctx)
		if err != nil {
			return nil, err
		}
		sheetName = first
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, quoteSheet(sheetName)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, describe(err, "read sheet %q", sheetName)
	}

	grid := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		grid[i] = cells
	}
	return fromGrid(grid), nil
}

func (s *GoogleReader) firstSheet(ctx context.Context) (string, error) {
	ss, err := s.service.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return "", describe(err, "read spreadsheet metadata")
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			return sh.Properties.Title, nil
		}
	}
	return "", fmt.Errorf("spreadsheet %s has no sheets", s.spreadsheetID)
}

// quoteSheet turns a sheet title into an A1 range covering the whole sheet.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func describe(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return fmt.Errorf("%s: google sheets returned %d: %w", msg, gErr.Code, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
