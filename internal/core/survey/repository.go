package survey

import "context"

// Repository は社員・設問・回答の永続化を抽象化します。
type Repository interface {
	FetchEmployees(ctx context.Context) ([]Employee, error)
	FetchQuestions(ctx context.Context) ([]Question, error)
	// FetchResponses はキャッシュを経由しません。取得失敗時は空スライスを返します。
	FetchResponses(ctx context.Context) ([]Response, error)
	AppendResponses(ctx context.Context, responses []Response) error
	// UpdateEmployeeStatus は社員を回答済みにします。該当者がいなければ ErrEmployeeNotFound です。
	UpdateEmployeeStatus(ctx context.Context, email string) error
}
