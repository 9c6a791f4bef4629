package sheets

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

var (
	// ErrUnauthorized is returned when Google rejects the access token
	ErrUnauthorized  = errors.New("google sheets: unauthorized")
	ErrSheetNotFound = errors.New("google sheets: sheet not found")
)

// ValueStore is the range-level access the gateway needs
type ValueStore interface {
	Read(ctx context.Context, rng string) ([][]interface{}, error)
	Write(ctx context.Context, rng string, rows [][]interface{}) error
	Append(ctx context.Context, rng string, rows [][]interface{}) error
	Clear(ctx context.Context, rng string) error
	// DeleteRow removes one row; rowIndex is 0-based over the whole sheet
	DeleteRow(ctx context.Context, sheet string, rowIndex int64) error
}

// SheetsStore implements ValueStore on the Google Sheets v4 API
type SheetsStore struct {
	srv           *sheetsapi.Service
	spreadsheetID string

	mu       sync.RWMutex
	sheetIDs map[string]int64
}

// NewSheetsStore creates a store for one spreadsheet
func NewSheetsStore(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*SheetsStore, error) {
	srv, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets client: %w", err)
	}
	return &SheetsStore{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		sheetIDs:      make(map[string]int64),
	}, nil
}

// Read returns the raw cell values of rng
func (s *SheetsStore) Read(ctx context.Context, rng string) ([][]interface{}, error) {
	resp, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, mapError("read "+rng, err)
	}
	return resp.Values, nil
}

// Write overwrites rng starting at its top-left cell
func (s *SheetsStore) Write(ctx context.Context, rng string, rows [][]interface{}) error {
	valueRange := &sheetsapi.ValueRange{Values: rows}
	_, err := s.srv.Spreadsheets.Values.Update(s.spreadsheetID, rng, valueRange).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	return mapError("write "+rng, err)
}

// Append inserts rows after the last row of the table in rng
func (s *SheetsStore) Append(ctx context.Context, rng string, rows [][]interface{}) error {
	valueRange := &sheetsapi.ValueRange{Values: rows}
	_, err := s.srv.Spreadsheets.Values.Append(s.spreadsheetID, rng, valueRange).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return mapError("append "+rng, err)
}

// Clear empties the cells of rng
func (s *SheetsStore) Clear(ctx context.Context, rng string) error {
	_, err := s.srv.Spreadsheets.Values.Clear(s.spreadsheetID, rng, &sheetsapi.ClearValuesRequest{}).
		Context(ctx).
		Do()
	return mapError("clear "+rng, err)
}

// DeleteRow removes a row and shifts the following rows up
func (s *SheetsStore) DeleteRow(ctx context.Context, sheet string, rowIndex int64) error {
	sheetID, err := s.sheetID(ctx, sheet)
	if err != nil {
		return err
	}

	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{
			{
				DeleteDimension: &sheetsapi.DeleteDimensionRequest{
					Range: &sheetsapi.DimensionRange{
						SheetId:    sheetID,
						Dimension:  "ROWS",
						StartIndex: rowIndex,
						EndIndex:   rowIndex + 1,
					},
				},
			},
		},
	}
	_, err = s.srv.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	return mapError(fmt.Sprintf("delete row %d of %s", rowIndex, sheet), err)
}

// sheetID resolves and caches the numeric id of a sheet title
func (s *SheetsStore) sheetID(ctx context.Context, title string) (int64, error) {
	s.mu.RLock()
	id, found := s.sheetIDs[title]
	s.mu.RUnlock()
	if found {
		return id, nil
	}

	resp, err := s.srv.Spreadsheets.Get(s.spreadsheetID).
		Fields("sheets(properties(title,sheetId))").
		Context(ctx).
		Do()
	if err != nil {
		return 0, mapError("get spreadsheet properties", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sheet := range resp.Sheets {
		if sheet.Properties == nil {
			continue
		}
		s.sheetIDs[sheet.Properties.Title] = sheet.Properties.SheetId
	}
	if id, found := s.sheetIDs[title]; found {
		return id, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrSheetNotFound, title)
}

func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrUnauthorized, op)
	}
	log.Printf("Google Sheets error (%s): %v", op, err)
	return fmt.Errorf("google sheets %s: %w", op, err)
}
