// Package google adapts the pipeline's sheet ports to the Google Sheets v4
// API.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"tally/internal/grid"
	"tally/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// Ensure interface conformance
var (
	_ sheets.GridLoader   = (*Client)(nil)
	_ sheets.ReportWriter = (*Client)(nil)
)

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID}
}

// NewFromEnv creates a Sheets client using Service Account credentials.
// Required: GOOGLE_SPREADSHEET_ID. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID), nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// resolveSheet maps a requested name onto an actual sheet title and id using
// the shared fuzzy matching.
func (c *Client) resolveSheet(ctx context.Context, name string) (string, int64, error) {
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties(sheetId,title)").Context(ctx).Do()
	if err != nil {
		return "", 0, fmt.Errorf("get spreadsheet metadata: %w", err)
	}
	titles := make([]string, 0, len(meta.Sheets))
	byTitle := make(map[string]int64, len(meta.Sheets))
	for _, sh := range meta.Sheets {
		if sh.Properties == nil {
			continue
		}
		titles = append(titles, sh.Properties.Title)
		byTitle[sh.Properties.Title] = sh.Properties.SheetId
	}
	title, ok := sheets.MatchSheetName(titles, name)
	if !ok {
		return "", 0, fmt.Errorf("%w: %q (have %v)", sheets.ErrSheetNotFound, name, titles)
	}
	return title, byTitle[title], nil
}

// LoadGrid fetches the full values matrix of the named sheet.
func (c *Client) LoadGrid(ctx context.Context, sheetName string) (grid.Grid, error) {
	title, _, err := c.resolveSheet(ctx, sheetName)
	if err != nil {
		return nil, err
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, fmt.Sprintf("'%s'", title)).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", title, err)
	}
	return grid.Grid(resp.Values), nil
}

// ReplaceReport wipes the previous summary region and writes the new header
// and rows. The clear and the header styling tolerate failures by degrading;
// only the content writes are allowed to fail the call.
func (c *Client) ReplaceReport(ctx context.Context, sheetName string, startRow int, header []string, rows [][]any, clear sheets.ClearRegion) error {
	title, sheetID, err := c.resolveSheet(ctx, sheetName)
	if err != nil {
		return err
	}

	if err := c.clearRegion(ctx, title, sheetID, startRow, clear); err != nil {
		// Merged cells or protected ranges can fail a large clear; fall back
		// to a smaller region rather than aborting the rebuild.
		slog.WarnContext(ctx, "Full clear failed, retrying with reduced region",
			"sheet", title, "rows", clear.Rows, "error", err)
		small := sheets.ClearRegion{Rows: 100, Cols: clear.Cols}
		if err := c.clearRegion(ctx, title, sheetID, startRow, small); err != nil {
			slog.WarnContext(ctx, "Reduced clear failed as well, writing over stale region",
				"sheet", title, "error", err)
		}
	}

	headerVals := make([]any, len(header))
	for i, h := range header {
		headerVals[i] = h
	}
	headerRange := fmt.Sprintf("'%s'!A%d:%s%d", title, startRow, colLetter(len(header)), startRow)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, headerRange,
		&gsheet.ValueRange{Values: [][]any{headerVals}}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header at %s: %w", headerRange, err)
	}

	if err := c.styleHeader(ctx, sheetID, startRow, len(header)); err != nil {
		slog.WarnContext(ctx, "Header formatting failed, keeping unstyled header",
			"sheet", title, "error", err)
	}

	if len(rows) == 0 {
		return nil
	}
	dataRange := fmt.Sprintf("'%s'!A%d:%s%d", title, startRow+1, colLetter(len(header)), startRow+len(rows))
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange,
		&gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write rows at %s: %w", dataRange, err)
	}
	return nil
}

// clearRegion wipes content, formatting, validation and notes in one pass.
func (c *Client) clearRegion(ctx context.Context, title string, sheetID int64, startRow int, clear sheets.ClearRegion) error {
	rng := fmt.Sprintf("'%s'!A%d:%s%d", title, startRow, colLetter(clear.Cols), startRow+clear.Rows-1)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear values %s: %w", rng, err)
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			RepeatCell: &gsheet.RepeatCellRequest{
				Range: &gsheet.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    int64(startRow - 1),
					EndRowIndex:      int64(startRow - 1 + clear.Rows),
					StartColumnIndex: 0,
					EndColumnIndex:   int64(clear.Cols),
				},
				Cell:   &gsheet.CellData{},
				Fields: "userEnteredFormat,dataValidation,note",
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear formatting %s: %w", rng, err)
	}
	return nil
}

func (c *Client) styleHeader(ctx context.Context, sheetID int64, row, cols int) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			RepeatCell: &gsheet.RepeatCellRequest{
				Range: &gsheet.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    int64(row - 1),
					EndRowIndex:      int64(row),
					StartColumnIndex: 0,
					EndColumnIndex:   int64(cols),
				},
				Cell: &gsheet.CellData{
					UserEnteredFormat: &gsheet.CellFormat{
						TextFormat: &gsheet.TextFormat{Bold: true},
						BackgroundColor: &gsheet.Color{
							Red: 0.91, Green: 0.96, Blue: 0.91,
						},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		}},
	}
	_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	return err
}

// colLetter converts a 1-based column count to its A1 letter.
func colLetter(n int) string {
	if n < 1 {
		return "A"
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}
