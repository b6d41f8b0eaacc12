package googlesheets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ValuesClient is the slice of the Sheets values API the exporter needs.
type ValuesClient interface {
	Clear(ctx context.Context, spreadsheetID, readRange string) error
	Update(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) (int64, error)
	Get(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error)
}

// NewSheetsService builds an authenticated client. credentials is either the
// service account JSON itself or a path to a file holding it.
func NewSheetsService(ctx context.Context, credentials string) (*sheets.Service, error) {
	raw := []byte(credentials)
	if !strings.HasPrefix(strings.TrimSpace(credentials), "{") {
		b, err := os.ReadFile(credentials)
		if err != nil {
			return nil, fmt.Errorf("unable to read Google credentials file: %w", err)
		}
		raw = b
	}

	creds, err := google.CredentialsFromJSON(ctx, raw, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to load Google credentials: %w", err)
	}

	client := oauth2.NewClient(ctx, creds.TokenSource)
	service, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Google Sheets client: %w", err)
	}

	return service, nil
}

type sheetsValues struct {
	service *sheets.Service
}

func NewValuesClient(service *sheets.Service) ValuesClient {
	return &sheetsValues{service: service}
}

func (s *sheetsValues) Clear(ctx context.Context, spreadsheetID, readRange string) error {
	_, err := s.service.Spreadsheets.Values.
		Clear(spreadsheetID, readRange, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("unable to clear range %s: %w", readRange, err)
	}
	return nil
}

func (s *sheetsValues) Update(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) (int64, error) {
	resp, err := s.service.Spreadsheets.Values.
		Update(spreadsheetID, writeRange, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("unable to write range %s: %w", writeRange, err)
	}
	return resp.UpdatedCells, nil
}

func (s *sheetsValues) Get(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error) {
	resp, err := s.service.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to read range %s: %w", readRange, err)
	}
	return resp.Values, nil
}
