package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ogurasousui/feedback-survey/internal/core/tabular"
)

type table struct {
	header []string
	rows   [][]string
}

// Store はプロセス内メモリ上に表を保持する tabular.Store の実装です。
type Store struct {
	mu     sync.Mutex
	tables map[string]*table
}

// NewStore は空の Store を生成します。
func NewStore() *Store {
	return &Store{tables: make(map[string]*table)}
}

// ListTable はデータ行を追加順に返します。
func (s *Store) ListTable(_ context.Context, name string) ([]tabular.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, tabular.ErrTableNotFound)
	}

	rows := make([]tabular.Row, 0, len(t.rows))
	for _, cells := range t.rows {
		rows = append(rows, tabular.RowFromCells(t.header, cells))
	}
	return rows, nil
}

// AppendRows は行を末尾に追記します。
func (s *Store) AppendRows(_ context.Context, name string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, tabular.ErrTableNotFound)
	}
	for _, r := range rows {
		t.rows = append(t.rows, cloneCells(r))
	}
	return nil
}

// UpdateCell は 1 始まりの行・列位置のセルを書き換えます。
func (s *Store) UpdateCell(_ context.Context, name string, rowIndex, colIndex int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, tabular.ErrTableNotFound)
	}
	if colIndex < 1 {
		return fmt.Errorf("column %d: %w", colIndex, tabular.ErrInvalidCell)
	}

	if rowIndex == tabular.HeaderRowIndex {
		t.header = setCell(t.header, colIndex, value)
		return nil
	}

	dataIdx := rowIndex - tabular.HeaderRowIndex - 1
	if dataIdx < 0 || dataIdx >= len(t.rows) {
		return fmt.Errorf("row %d: %w", rowIndex, tabular.ErrInvalidCell)
	}
	t.rows[dataIdx] = setCell(t.rows[dataIdx], colIndex, value)
	return nil
}

// EnsureTable は未作成のテーブルをヘッダーと初期データ付きで作成します。
func (s *Store) EnsureTable(_ context.Context, spec tabular.Spec) (bool, error) {
	if strings.TrimSpace(spec.Name) == "" || len(spec.Header) == 0 {
		return false, tabular.ErrInvalidSpec
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[spec.Name]; ok {
		return false, nil
	}

	t := &table{header: cloneCells(spec.Header)}
	for _, r := range spec.Seed {
		t.rows = append(t.rows, cloneCells(r))
	}
	s.tables[spec.Name] = t
	return true, nil
}

// Header はテーブルのヘッダーを返します。
func (s *Store) Header(name string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	if !ok {
		return nil, false
	}
	return cloneCells(t.header), true
}

func setCell(cells []string, colIndex int, value string) []string {
	for len(cells) < colIndex {
		cells = append(cells, "")
	}
	cells[colIndex-1] = value
	return cells
}

func cloneCells(cells []string) []string {
	out := make([]string, len(cells))
	copy(out, cells)
	return out
}
