package survey

import "strings"

// Status は社員の回答状況を表します。
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Employee は社員エンティティです。
type Employee struct {
	Name   string
	Email  string
	Status Status
}

// Completed は回答済みかどうかを返します。
func (e Employee) Completed() bool {
	return e.Status == StatusCompleted
}

// Question は設問エンティティです。
type Question struct {
	ID   int
	Text string
}

// Response は 1 設問分の回答レコードです。追記のみで更新されません。
type Response struct {
	Email       string
	Respondent  string
	QuestionID  int
	NomineeName string
}

// SameEmail はメールアドレスを大文字小文字と前後の空白を無視して比較します。
func SameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
