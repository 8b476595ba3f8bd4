package sheets

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

const googleScheme = "gsheets://"

// Source names where the rows come from.
type Source struct {
	// Location is a .xlsx/.xlsm/.csv path, gsheets://<id>, or a
	// docs.google.com spreadsheet URL.
	Location string
	// Sheet selects a sheet by name; empty means the first sheet.
	Sheet string
	// CredentialsFile is the service account JSON for Google sources.
	CredentialsFile string
}

// Open picks the reader for src.Location.
func Open(ctx context.Context, src Source) (Reader, error) {
	if id, ok := spreadsheetID(src.Location); ok {
		return NewGoogleReader(ctx, src.CredentialsFile, id, src.Sheet)
	}
	switch strings.ToLower(filepath.Ext(src.Location)) {
	case ".xlsx", ".xlsm":
		return NewXLSXReader(src.Location, src.Sheet), nil
	case ".csv":
		return NewCSVReader(src.Location), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupported, src.Location)
}

// spreadsheetID extracts the ID from gsheets://<id> or
// https://docs.google.com/spreadsheets/d/<id>/...
func spreadsheetID(location string) (string, bool) {
	if strings.HasPrefix(location, googleScheme) {
		id := strings.Trim(strings.TrimPrefix(location, googleScheme), "/")
		return id, id != ""
	}
	u, err := url.Parse(location)
	if err != nil || u.Host != "docs.google.com" {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "spreadsheets" && parts[i+1] == "d" {
			return parts[i+2], parts[i+2] != ""
		}
	}
	return "", false
}
