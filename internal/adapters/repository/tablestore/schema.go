package tablestore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ogurasousui/feedback-survey/internal/core/tabular"
)

// テーブル名
const (
	EmployeesTable = "employee_details"
	QuestionsTable = "questions"
	ResponsesTable = "employee_responses"
)

// 列名
const (
	colName       = "name"
	colEmail      = "email"
	colStatus     = "status"
	colQuestionID = "question_id"
	colQuestion   = "question"
	colNominee    = "name_of_person_in_response"
	statusYes     = "yes"
	statusNo      = "no"
	defaultRows   = 100
	responsesRows = 1000
)

// EmployeesSpec は社員テーブルの定義です。
var EmployeesSpec = tabular.Spec{
	Name:   EmployeesTable,
	Header: []string{colName, colEmail, colStatus},
	Seed: [][]string{
		{"Jane Doe", "jane.doe@keydynamicssolutions", statusNo},
		{"John Smith", "john.smith@keydynamicssolutions", statusNo},
	},
	Rows: defaultRows,
}

// QuestionsSpec は設問テーブルの定義です。
var QuestionsSpec = tabular.Spec{
	Name:   QuestionsTable,
	Header: []string{colQuestionID, colQuestion},
	Seed: [][]string{
		{"1", "Who is the most collaborative person on the team?"},
		{"2", "Who provides the most constructive feedback?"},
		{"3", "Who displays the best leadership?"},
		{"4", "Who is the most punctual?"},
		{"5", "Who is the best at mentoring others?"},
		{"6", "Who has the most positive attitude?"},
	},
	Rows: defaultRows,
}

// ResponsesSpec は回答テーブルの定義です。初期データはありません。
var ResponsesSpec = tabular.Spec{
	Name:   ResponsesTable,
	Header: []string{colEmail, colName, colQuestionID, colNominee},
	Rows:   responsesRows,
}

// Specs はアプリケーションが使用するすべてのテーブル定義です。
func Specs() []tabular.Spec {
	return []tabular.Spec{EmployeesSpec, QuestionsSpec, ResponsesSpec}
}

// EnsureSchema は必要なテーブルを作成します。既存のテーブルには触れません。
func EnsureSchema(ctx context.Context, store tabular.Store, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for _, spec := range Specs() {
		created, err := store.EnsureTable(ctx, spec)
		if err != nil {
			return fmt.Errorf("ensure table %s: %w", spec.Name, err)
		}
		if created {
			logger.Info("table created", "table", spec.Name, "seed_rows", len(spec.Seed))
		}
	}
	return nil
}
