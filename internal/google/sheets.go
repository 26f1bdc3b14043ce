package google

import (
	"context"
	"fmt"
	"os"

	"harborbook/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const outcomesRange = "Outcomes!A:F"

// SheetsService mirrors the local outcome journal to a spreadsheet the
// managers watch. The journal stays authoritative; the sheet is a view.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
}

func NewSheetsService(credentialsFile, spreadsheetID string) (*SheetsService, error) {
	ctx := context.Background()

	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
	}, nil
}

// TestConnection reads the header cell to verify access.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, "Outcomes!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// AppendOutcome appends one journal row to the sheet.
func (s *SheetsService) AppendOutcome(ctx context.Context, record models.OutcomeRecord) error {
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{outcomeRow(record)},
	}

	_, err := s.service.Spreadsheets.Values.
		Append(s.spreadsheetID, outcomesRange, valueRange).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append outcome: %v", err)
	}
	return nil
}

// ReplaceOutcomes rewrites the sheet from the full journal.
func (s *SheetsService) ReplaceOutcomes(ctx context.Context, records []models.OutcomeRecord) error {
	values := [][]interface{}{
		{"ID", "Booking", "Result", "Amount", "Message", "Created At"},
	}
	for _, r := range records {
		values = append(values, outcomeRow(r))
	}

	clearReq := &sheets.ClearValuesRequest{}
	if _, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, outcomesRange, clearReq).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to clear outcomes sheet: %v", err)
	}

	valueRange := &sheets.ValueRange{Values: values}
	_, err := s.service.Spreadsheets.Values.
		Update(s.spreadsheetID, fmt.Sprintf("Outcomes!A1:F%d", len(values)), valueRange).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update outcomes sheet: %v", err)
	}
	return nil
}

func outcomeRow(r models.OutcomeRecord) []interface{} {
	return []interface{}{
		r.ID,
		r.BookingID,
		string(r.Result),
		r.Amount,
		r.Message,
		r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
