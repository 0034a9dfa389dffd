package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	applog "fornitori/internal/log"
	"fornitori/internal/sheets"
)

const lastColumn = "F"

// Client keeps one sheet of a spreadsheet in step with the entries table.
// Column A holds the entry ID; rows are located by scanning it.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *applog.Logger

	// writes are serialized so that row lookups and appends do not race
	mu sync.Mutex
}

var _ sheets.Replica = (*Client)(nil)

// Credentials selects the service account used to reach the Sheets API.
// When both fields are empty GOOGLE_APPLICATION_CREDENTIALS is consulted.
type Credentials struct {
	JSON string
	File string
}

func New(ctx context.Context, spreadsheetID, sheetName string, creds Credentials, logger *applog.Logger) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, creds, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newWithService(svc, spreadsheetID, sheetName, logger), nil
}

func newWithService(svc *gsheet.Service, spreadsheetID, sheetName string, logger *applog.Logger) *Client {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Spese"
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName, logger: logger}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, creds Credentials, logger *applog.Logger) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(creds.JSON)
	serviceAccountFile := strings.TrimSpace(creds.File)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created", "credentials_size", len(credentialsJSON))
	return service, nil
}

// EnsureHeader writes the header row when the first row is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rng := c.a1("A1:" + lastColumn + "1")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header %s: %w", rng, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	header := make([]any, len(sheets.Header))
	for i, h := range sheets.Header {
		header[i] = h
	}
	return c.writeRow(ctx, 1, header)
}

// Upsert rewrites the row holding row.ID, or writes it after the last used row.
func (c *Client) Upsert(ctx context.Context, row sheets.Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.idColumn(ctx)
	if err != nil {
		return err
	}
	n := indexOf(ids, row.ID)
	if n < 0 {
		n = max(len(ids)+1, 2)
	}
	if err := c.writeRow(ctx, n, row.Values()); err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "Replica row written", applog.FieldEntryID, row.ID, "row", n)
	return nil
}

// Delete clears the row holding id. Rows are cleared rather than removed so
// that row numbers seen by concurrent readers stay valid.
func (c *Client) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.idColumn(ctx)
	if err != nil {
		return err
	}
	n := indexOf(ids, id)
	if n < 0 {
		return nil
	}
	rng := c.a1(fmt.Sprintf("A%d:%s%d", n, lastColumn, n))
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	c.logger.DebugContext(ctx, "Replica row cleared", applog.FieldEntryID, id, "row", n)
	return nil
}

// Rows reads the whole replica back, skipping the header and cleared rows.
// Rows that cannot be parsed are logged and left out.
func (c *Client) Rows(ctx context.Context) ([]sheets.Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rng := c.a1("A:" + lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	var out []sheets.Row
	for i, raw := range resp.Values {
		if i == 0 {
			continue
		}
		cells := toStrings(raw)
		if len(cells) == 0 || cells[0] == "" {
			continue
		}
		row, err := sheets.ParseRow(cells)
		if err != nil {
			c.logger.WarnContext(ctx, "Skipping unreadable replica row", "row", i+1, "error", err)
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// idColumn returns column A; index i holds sheet row i+1.
func (c *Client) idColumn(ctx context.Context) ([]string, error) {
	rng := c.a1("A:A")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			out[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return out, nil
}

func (c *Client) writeRow(ctx context.Context, n int, values []any) error {
	rng := c.a1(fmt.Sprintf("A%d:%s%d", n, lastColumn, n))
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// a1 qualifies a cell range with the quoted sheet name.
func (c *Client) a1(cells string) string {
	return "'" + strings.ReplaceAll(c.sheetName, "'", "''") + "'!" + cells
}

// indexOf returns the 1-based sheet row holding id, or -1.
func indexOf(col []string, id string) int {
	if id == "" {
		return -1
	}
	for i, v := range col {
		if i > 0 && v == id {
			return i + 1
		}
	}
	return -1
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}
