package tabular

import "errors"

var (
	// ErrUnavailable はストアに到達できない、または認可で拒否された場合に返却されます。
	ErrUnavailable = errors.New("tabular: store unavailable")
	// ErrTableNotFound はテーブル（ワークシート）が存在しない場合に返却されます。
	ErrTableNotFound = errors.New("tabular: table not found")
	// ErrInvalidCell はセル位置が範囲外の場合に返却されます。
	ErrInvalidCell = errors.New("tabular: invalid cell position")
	// ErrInvalidSpec はテーブル定義が不正な場合に返却されます。
	ErrInvalidSpec = errors.New("tabular: invalid table spec")
)
