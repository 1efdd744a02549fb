package ledger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// GoogleClient reaches spreadsheets through the Sheets API and resolves them
// by name through the Drive API, both under one service account.
type GoogleClient struct {
	sheets *sheets.Service
	drive  *drive.Service
	logger zerolog.Logger
}

func NewGoogleClient(ctx context.Context, credentialsFile string) (*GoogleClient, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account file: %w", err)
	}

	jwt, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account file: %w", err)
	}
	client := jwt.Client(ctx)

	sheetsService, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	driveService, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &GoogleClient{
		sheets: sheetsService,
		drive:  driveService,
		logger: log.With().Str("component", "ledger").Logger(),
	}, nil
}

// OpenOrCreate finds the spreadsheet by exact name, creating and sharing a
// new one when nothing matches. A fresh spreadsheet is editable by anyone
// with the link; the ledger is meant to be passed around.
func (c *GoogleClient) OpenOrCreate(ctx context.Context, name string) (Store, error) {
	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		escapeQueryValue(name), spreadsheetMimeType)

	list, err := c.drive.Files.List().Q(query).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to look up store %q: %w", name, err)
	}

	if len(list.Files) > 0 {
		doc, err := c.sheets.Spreadsheets.Get(list.Files[0].Id).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to open store %q: %w", name, err)
		}
		return &googleStore{client: c, id: doc.SpreadsheetId, url: doc.SpreadsheetUrl}, nil
	}

	c.logger.Info().Str("store", name).Msg("store not found, creating it")

	doc, err := c.sheets.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: name},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create store %q: %w", name, err)
	}

	_, err = c.drive.Permissions.Create(doc.SpreadsheetId, &drive.Permission{
		Role: "writer",
		Type: "anyone",
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to share store %q: %w", name, err)
	}

	return &googleStore{client: c, id: doc.SpreadsheetId, url: doc.SpreadsheetUrl}, nil
}

type googleStore struct {
	client *GoogleClient
	id     string
	url    string
}

func (s *googleStore) URL() string {
	return s.url
}

func (s *googleStore) Table(ctx context.Context, name string) (Table, error) {
	doc, err := s.client.sheets.Spreadsheets.Get(s.id).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	for _, sh := range doc.Sheets {
		if sh.Properties != nil && sh.Properties.Title == name {
			return &googleTable{store: s, sheetID: sh.Properties.SheetId, name: name}, nil
		}
	}

	return nil, fmt.Errorf("table %q: %w", name, ErrTableNotFound)
}

func (s *googleStore) CreateTable(ctx context.Context, name string, rows, cols int64) (Table, error) {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: name,
					GridProperties: &sheets.GridProperties{
						RowCount:    rows,
						ColumnCount: cols,
					},
				},
			},
		}},
	}

	resp, err := s.client.sheets.Spreadsheets.BatchUpdate(s.id, req).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
			return nil, fmt.Errorf("table %q: %w", name, ErrConflict)
		}
		return nil, fmt.Errorf("failed to create table %q: %w", name, err)
	}

	props := resp.Replies[0].AddSheet.Properties
	return &googleTable{store: s, sheetID: props.SheetId, name: name}, nil
}

func (s *googleStore) DeleteTable(ctx context.Context, table Table) error {
	gt, ok := table.(*googleTable)
	if !ok {
		return fmt.Errorf("table %q does not belong to this store", table.Name())
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteSheet: &sheets.DeleteSheetRequest{SheetId: gt.sheetID},
		}},
	}

	if _, err := s.client.sheets.Spreadsheets.BatchUpdate(s.id, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete table %q: %w", table.Name(), err)
	}
	return nil
}

type googleTable struct {
	store   *googleStore
	sheetID int64
	name    string
}

func (t *googleTable) Name() string {
	return t.name
}

func (t *googleTable) ReadAll(ctx context.Context) ([][]string, error) {
	resp, err := t.store.client.sheets.Spreadsheets.Values.Get(t.store.id, t.wholeTableRange()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read table %q: %w", t.name, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, fmt.Sprintf("%v", cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (t *googleTable) Clear(ctx context.Context) error {
	_, err := t.store.client.sheets.Spreadsheets.Values.Clear(t.store.id, t.wholeTableRange(), &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear table %q: %w", t.name, err)
	}
	return nil
}

func (t *googleTable) WriteRows(ctx context.Context, startRow int, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	endRow := startRow + len(rows) - 1
	writeRange := fmt.Sprintf("'%s'!A%d:%s%d", t.name, startRow, columnLetter(width), endRow)

	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data: []*sheets.ValueRange{{
			Range:  writeRange,
			Values: rows,
		}},
	}

	if _, err := t.store.client.sheets.Spreadsheets.Values.BatchUpdate(t.store.id, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to write rows %d-%d of table %q: %w", startRow, endRow, t.name, err)
	}
	return nil
}

// wholeTableRange quotes the table name so names with spaces stay valid A1
// notation.
func (t *googleTable) wholeTableRange() string {
	return fmt.Sprintf("'%s'", t.name)
}

// columnLetter turns a 1-based column count into its A1 column, e.g. 4 -> D,
// 27 -> AA.
func columnLetter(n int) string {
	letters := ""
	for n > 0 {
		n--
		letters = string(rune('A'+n%26)) + letters
		n /= 26
	}
	return letters
}

func escapeQueryValue(v string) string {
	return strings.ReplaceAll(v, "'", `\'`)
}
