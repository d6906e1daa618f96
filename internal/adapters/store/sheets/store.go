package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/ogurasousui/feedback-survey/internal/core/tabular"
)

const (
	valueInputRaw    = "RAW"
	insertRows       = "INSERT_ROWS"
	defaultRowCount  = 100
	defaultColCount  = 10
	unparsableRange  = "Unable to parse range"
	spreadsheetField = "sheets.properties.title"
)

// Scope はスプレッドシートの読み書きに必要な OAuth スコープです。
const Scope = gsheets.SpreadsheetsScope

// ErrInvalidSpreadsheetURL はスプレッドシート URL から ID を取り出せない場合に返却されます。
var ErrInvalidSpreadsheetURL = errors.New("sheets: invalid spreadsheet url")

// Store は Google スプレッドシートの各ワークシートを表として扱う tabular.Store の実装です。
type Store struct {
	svc           *gsheets.Service
	spreadsheetID string
}

// New は Sheets API クライアントを生成します。認証情報やエンドポイントは opts で指定します。
func New(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Store, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, ErrInvalidSpreadsheetURL
	}
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w: %v", tabular.ErrUnavailable, err)
	}
	return &Store{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// ListTable はワークシートの 2 行目以降を返します。途中の空行も位置を保ったまま返します。
func (s *Store) ListTable(ctx context.Context, name string) ([]tabular.Row, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, quoteTitle(name)).Context(ctx).Do()
	if err != nil {
		return nil, mapError(name, err)
	}
	if len(resp.Values) == 0 {
		return []tabular.Row{}, nil
	}

	header := toCells(resp.Values[0])
	rows := make([]tabular.Row, 0, len(resp.Values)-1)
	for _, raw := range resp.Values[1:] {
		rows = append(rows, tabular.RowFromCells(header, toCells(raw)))
	}
	return rows, nil
}

// AppendRows は 1 回の API 呼び出しで行を末尾に追記します。
func (s *Store) AppendRows(ctx context.Context, name string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	body := &gsheets.ValueRange{Values: toValues(rows)}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, quoteTitle(name)+"!A1", body).
		ValueInputOption(valueInputRaw).
		InsertDataOption(insertRows).
		Context(ctx).
		Do()
	if err != nil {
		return mapError(name, err)
	}
	return nil
}

// UpdateCell は A1 表記で指定したセルを書き換えます。
func (s *Store) UpdateCell(ctx context.Context, name string, rowIndex, colIndex int, value string) error {
	if rowIndex < 1 || colIndex < 1 {
		return fmt.Errorf("row %d col %d: %w", rowIndex, colIndex, tabular.ErrInvalidCell)
	}
	body := &gsheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, CellRange(name, rowIndex, colIndex), body).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	if err != nil {
		return mapError(name, err)
	}
	return nil
}

// EnsureTable はワークシートが無ければ追加し、ヘッダーと初期データを書き込みます。
func (s *Store) EnsureTable(ctx context.Context, spec tabular.Spec) (bool, error) {
	if strings.TrimSpace(spec.Name) == "" || len(spec.Header) == 0 {
		return false, tabular.ErrInvalidSpec
	}

	ss, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields(spreadsheetField).Context(ctx).Do()
	if err != nil {
		return false, mapError(spec.Name, err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == spec.Name {
			return false, nil
		}
	}

	rowCount := spec.Rows
	if rowCount <= 0 {
		rowCount = defaultRowCount
	}
	colCount := defaultColCount
	if len(spec.Header) > colCount {
		colCount = len(spec.Header)
	}

	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{
				Properties: &gsheets.SheetProperties{
					Title: spec.Name,
					GridProperties: &gsheets.GridProperties{
						RowCount:    int64(rowCount),
						ColumnCount: int64(colCount),
					},
				},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return false, mapError(spec.Name, err)
	}

	values := make([][]string, 0, len(spec.Seed)+1)
	values = append(values, spec.Header)
	values = append(values, spec.Seed...)
	body := &gsheets.ValueRange{Values: toValues(values)}
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, quoteTitle(spec.Name)+"!A1", body).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	if err != nil {
		return false, mapError(spec.Name, err)
	}
	return true, nil
}

// CellRange は 1 始まりの行・列位置を A1 表記の範囲に変換します。
func CellRange(name string, rowIndex, colIndex int) string {
	return fmt.Sprintf("%s!%s%d", quoteTitle(name), ColumnLetters(colIndex), rowIndex)
}

// ColumnLetters は 1 始まりの列位置を A, B, ..., Z, AA のような列名に変換します。
func ColumnLetters(colIndex int) string {
	if colIndex < 1 {
		return ""
	}
	var b []byte
	for n := colIndex; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// ExtractSpreadsheetID はスプレッドシートの URL（または ID そのもの）から ID を取り出します。
func ExtractSpreadsheetID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidSpreadsheetURL
	}
	if !strings.Contains(raw, "/") {
		return raw, nil
	}

	_, rest, ok := strings.Cut(raw, "/d/")
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidSpreadsheetURL, raw)
	}
	id, _, _ := strings.Cut(rest, "/")
	id, _, _ = strings.Cut(id, "?")
	id, _, _ = strings.Cut(id, "#")
	if id == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidSpreadsheetURL, raw)
	}
	return id, nil
}

func quoteTitle(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func toCells(raw []interface{}) []string {
	cells := make([]string, len(raw))
	for i, v := range raw {
		if v == nil {
			continue
		}
		cells[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return cells
}

func toValues(rows [][]string) [][]interface{} {
	values := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		row := make([]interface{}, len(r))
		for i, c := range r {
			row[i] = c
		}
		values = append(values, row)
	}
	return values
}

func mapError(name string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusNotFound:
			return fmt.Errorf("%s: %w", name, tabular.ErrTableNotFound)
		case gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, unparsableRange):
			return fmt.Errorf("%s: %w", name, tabular.ErrTableNotFound)
		case gerr.Code == http.StatusUnauthorized, gerr.Code == http.StatusForbidden:
			return fmt.Errorf("%s: %w: %v", name, tabular.ErrUnavailable, gerr.Message)
		}
	}
	return fmt.Errorf("%s: %w: %v", name, tabular.ErrUnavailable, err)
}
