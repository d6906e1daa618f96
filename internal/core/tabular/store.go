package tabular

import "context"

// Row はヘッダー名をキーとした 1 行分のセル値です。
type Row map[string]string

// Get は列の値を返します。存在しない列は空文字列です。
func (r Row) Get(column string) string {
	if r == nil {
		return ""
	}
	return r[column]
}

// Spec はテーブルの名前・ヘッダー・初期データを定義します。
type Spec struct {
	Name   string
	Header []string
	Seed   [][]string
	// Rows は作成時に確保する行数のヒントです。0 の場合はバックエンドの既定値を使います。
	Rows int
}

// ColumnIndex はヘッダー内の列位置を 1 始まりで返します。見つからない場合は 0 です。
func (s Spec) ColumnIndex(column string) int {
	for i, h := range s.Header {
		if h == column {
			return i + 1
		}
	}
	return 0
}

// Store は外部の表形式ストアへの読み書きを抽象化します。
//
// 行・列の位置はスプレッドシートと同じ 1 始まりで、1 行目がヘッダーです。
// 呼び出しの失敗はリトライせずにそのまま返却します。
type Store interface {
	// ListTable はヘッダーを除いたデータ行をストア上の順序で返します。
	ListTable(ctx context.Context, name string) ([]Row, error)
	// AppendRows はヘッダー順に並んだセル値の行を一括で追記します。
	AppendRows(ctx context.Context, name string, rows [][]string) error
	// UpdateCell は指定したセルの値を書き換えます。
	UpdateCell(ctx context.Context, name string, rowIndex, colIndex int, value string) error
	// EnsureTable はテーブルが存在しなければヘッダーと初期データ付きで作成します。
	// 既に存在する場合は何もせず created=false を返します。
	EnsureTable(ctx context.Context, spec Spec) (created bool, err error)
}

// HeaderRowIndex はヘッダー行の位置です。
const HeaderRowIndex = 1

// SheetRowIndex は ListTable が返したスライス上の位置をストアの行位置に変換します。
func SheetRowIndex(dataIndex int) int {
	return dataIndex + HeaderRowIndex + 1
}

// RowFromCells はヘッダーとセル値から Row を構築します。足りないセルは空文字列として扱います。
func RowFromCells(header, cells []string) Row {
	row := make(Row, len(header))
	for i, h := range header {
		if h == "" {
			continue
		}
		if i < len(cells) {
			row[h] = cells[i]
		} else {
			row[h] = ""
		}
	}
	return row
}
