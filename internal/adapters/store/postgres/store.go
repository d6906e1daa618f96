package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ogurasousui/feedback-survey/internal/core/tabular"
	pgdb "github.com/ogurasousui/feedback-survey/internal/platform/db/postgres"
)

const foreignKeyViolationCode = "23503"

// TransactionManager はトランザクション境界を制御します。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// Store は PostgreSQL 上に表を保持する tabular.Store の実装です。
//
// 行番号はスプレッドシートと同じく 1 行目がヘッダー、2 行目以降がデータです。
type Store struct {
	pool pgdb.Queryer
	tx   TransactionManager
}

// NewStore は Store を生成します。tx が nil の場合はトランザクションを張りません。
func NewStore(pool pgdb.Queryer, tx TransactionManager) *Store {
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Store{pool: pool, tx: tx}
}

// ListTable はデータ行を行番号順に返します。欠番は空行として埋めます。
func (s *Store) ListTable(ctx context.Context, name string) ([]tabular.Row, error) {
	var rows []tabular.Row
	err := s.tx.WithinReadOnly(ctx, func(ctx context.Context) error {
		exec := pgdb.QueryerFromContext(ctx, s.pool)

		header, err := s.header(ctx, exec, name)
		if err != nil {
			return err
		}

		result, err := exec.Query(ctx, `
        SELECT row_number, cells
          FROM tabular_rows
         WHERE table_name = $1
         ORDER BY row_number
    `, name)
		if err != nil {
			return err
		}
		defer result.Close()

		rows = make([]tabular.Row, 0)
		next := tabular.SheetRowIndex(0)
		for result.Next() {
			var (
				number int
				cells  []string
			)
			if err := result.Scan(&number, &cells); err != nil {
				return err
			}
			for ; next < number; next++ {
				rows = append(rows, tabular.RowFromCells(header, nil))
			}
			rows = append(rows, tabular.RowFromCells(header, cells))
			next = number + 1
		}
		return result.Err()
	})
	if err != nil {
		return nil, translate(name, err)
	}
	return rows, nil
}

// AppendRows はテーブル単位のアドバイザリロックを取得したうえで末尾に行を追記します。
func (s *Store) AppendRows(ctx context.Context, name string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	err := s.tx.WithinReadWrite(ctx, func(ctx context.Context) error {
		exec := pgdb.QueryerFromContext(ctx, s.pool)

		if err := pgdb.LockKey(ctx, exec, name); err != nil {
			return err
		}
		if _, err := s.header(ctx, exec, name); err != nil {
			return err
		}

		var last int
		if err := exec.QueryRow(ctx, `
        SELECT COALESCE(MAX(row_number), $2)
          FROM tabular_rows
         WHERE table_name = $1
    `, name, tabular.HeaderRowIndex).Scan(&last); err != nil {
			return err
		}

		for i, cells := range rows {
			if _, err := exec.Exec(ctx, `
            INSERT INTO tabular_rows (table_name, row_number, cells)
            VALUES ($1, $2, $3)
        `, name, last+i+1, cloneCells(cells)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return translate(name, err)
	}
	return nil
}

// UpdateCell は 1 始まりの行・列位置のセルを書き換えます。行 1 はヘッダーです。
func (s *Store) UpdateCell(ctx context.Context, name string, rowIndex, colIndex int, value string) error {
	if rowIndex < tabular.HeaderRowIndex || colIndex < 1 {
		return fmt.Errorf("row %d col %d: %w", rowIndex, colIndex, tabular.ErrInvalidCell)
	}

	err := s.tx.WithinReadWrite(ctx, func(ctx context.Context) error {
		exec := pgdb.QueryerFromContext(ctx, s.pool)

		header, err := s.header(ctx, exec, name)
		if err != nil {
			return err
		}

		if rowIndex == tabular.HeaderRowIndex {
			_, err := exec.Exec(ctx, `
            UPDATE tabular_tables
               SET header = $2
             WHERE name = $1
        `, name, setCell(header, colIndex, value))
			return err
		}

		var cells []string
		err = exec.QueryRow(ctx, `
        SELECT cells
          FROM tabular_rows
         WHERE table_name = $1 AND row_number = $2
           FOR UPDATE
    `, name, rowIndex).Scan(&cells)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("row %d: %w", rowIndex, tabular.ErrInvalidCell)
		}
		if err != nil {
			return err
		}

		_, err = exec.Exec(ctx, `
        UPDATE tabular_rows
           SET cells = $3
         WHERE table_name = $1 AND row_number = $2
    `, name, rowIndex, setCell(cells, colIndex, value))
		return err
	})
	if err != nil {
		return translate(name, err)
	}
	return nil
}

// EnsureTable はヘッダーを登録し、新規作成時のみ初期データを投入します。
func (s *Store) EnsureTable(ctx context.Context, spec tabular.Spec) (bool, error) {
	if strings.TrimSpace(spec.Name) == "" || len(spec.Header) == 0 {
		return false, tabular.ErrInvalidSpec
	}

	var created bool
	err := s.tx.WithinReadWrite(ctx, func(ctx context.Context) error {
		exec := pgdb.QueryerFromContext(ctx, s.pool)

		tag, err := exec.Exec(ctx, `
        INSERT INTO tabular_tables (name, header)
        VALUES ($1, $2)
        ON CONFLICT (name) DO NOTHING
    `, spec.Name, cloneCells(spec.Header))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		created = true

		for i, cells := range spec.Seed {
			if _, err := exec.Exec(ctx, `
            INSERT INTO tabular_rows (table_name, row_number, cells)
            VALUES ($1, $2, $3)
        `, spec.Name, tabular.SheetRowIndex(i), cloneCells(cells)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, translate(spec.Name, err)
	}
	return created, nil
}

func (s *Store) header(ctx context.Context, exec pgdb.Queryer, name string) ([]string, error) {
	var header []string
	err := exec.QueryRow(ctx, `
        SELECT header
          FROM tabular_tables
         WHERE name = $1
    `, name).Scan(&header)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, tabular.ErrTableNotFound
	}
	if err != nil {
		return nil, err
	}
	return header, nil
}

func translate(name string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, tabular.ErrTableNotFound) ||
		errors.Is(err, tabular.ErrInvalidCell) ||
		errors.Is(err, tabular.ErrInvalidSpec) {
		return fmt.Errorf("%s: %w", name, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode {
		return fmt.Errorf("%s: %w", name, tabular.ErrTableNotFound)
	}
	return fmt.Errorf("%s: %w: %v", name, tabular.ErrUnavailable, err)
}

func setCell(cells []string, colIndex int, value string) []string {
	out := cloneCells(cells)
	for len(out) < colIndex {
		out = append(out, "")
	}
	out[colIndex-1] = value
	return out
}

func cloneCells(cells []string) []string {
	out := make([]string, len(cells))
	copy(out, cells)
	return out
}
