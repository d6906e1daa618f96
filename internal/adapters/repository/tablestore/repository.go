package tablestore

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ogurasousui/feedback-survey/internal/core/survey"
	"github.com/ogurasousui/feedback-survey/internal/core/tabular"
	"github.com/ogurasousui/feedback-survey/internal/platform/cache"
)

const (
	// DefaultEmployeesTTL は社員一覧のキャッシュ有効期間です。
	DefaultEmployeesTTL = 5 * time.Minute
	// DefaultQuestionsTTL は設問一覧のキャッシュ有効期間です。
	DefaultQuestionsTTL = time.Hour
)

// Options は Repository の任意設定です。
type Options struct {
	EmployeesTTL time.Duration
	QuestionsTTL time.Duration
	Logger       *slog.Logger
}

// Repository は表形式ストア上に survey.Repository を実装するデータアクセス層です。
//
// 社員と設問はテーブル名をキーとしてキャッシュし、書き込みが成功するたびに全キャッシュを破棄します。
// 回答は常にストアから読み直します。
type Repository struct {
	store        tabular.Store
	cache        *cache.Cache
	employeesTTL time.Duration
	questionsTTL time.Duration
	logger       *slog.Logger
}

// NewRepository は Repository を生成します。c が nil の場合は専用のキャッシュを作ります。
func NewRepository(store tabular.Store, c *cache.Cache, opts Options) *Repository {
	if c == nil {
		c = cache.New(nil)
	}
	if opts.EmployeesTTL <= 0 {
		opts.EmployeesTTL = DefaultEmployeesTTL
	}
	if opts.QuestionsTTL <= 0 {
		opts.QuestionsTTL = DefaultQuestionsTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Repository{
		store:        store,
		cache:        c,
		employeesTTL: opts.EmployeesTTL,
		questionsTTL: opts.QuestionsTTL,
		logger:       opts.Logger,
	}
}

// FetchEmployees は社員一覧を返します。
func (r *Repository) FetchEmployees(ctx context.Context) ([]survey.Employee, error) {
	if cached, ok := cache.Lookup[[]survey.Employee](r.cache, EmployeesTable); ok {
		return cloneEmployees(cached), nil
	}

	rows, err := r.store.ListTable(ctx, EmployeesTable)
	if err != nil {
		return nil, err
	}

	employees := r.parseEmployees(rows)
	r.cache.Set(EmployeesTable, employees, r.employeesTTL)
	return cloneEmployees(employees), nil
}

// FetchQuestions は設問一覧をストア上の順序で返します。
func (r *Repository) FetchQuestions(ctx context.Context) ([]survey.Question, error) {
	if cached, ok := cache.Lookup[[]survey.Question](r.cache, QuestionsTable); ok {
		return cloneQuestions(cached), nil
	}

	rows, err := r.store.ListTable(ctx, QuestionsTable)
	if err != nil {
		return nil, err
	}

	questions := make([]survey.Question, 0, len(rows))
	seen := make(map[int]struct{}, len(rows))
	for i, row := range rows {
		q, err := parseQuestion(row)
		if err == nil {
			if _, dup := seen[q.ID]; dup {
				err = fmt.Errorf("question_id %d: duplicate", q.ID)
			}
		}
		if err != nil {
			r.logger.Warn("skipping malformed row", "table", QuestionsTable, "row", tabular.SheetRowIndex(i), "error", err)
			continue
		}
		seen[q.ID] = struct{}{}
		questions = append(questions, q)
	}

	r.cache.Set(QuestionsTable, questions, r.questionsTTL)
	return cloneQuestions(questions), nil
}

// FetchResponses は回答一覧を返します。取得に失敗しても処理は止めず、警告を出して空スライスを返します。
func (r *Repository) FetchResponses(ctx context.Context) ([]survey.Response, error) {
	rows, err := r.store.ListTable(ctx, ResponsesTable)
	if err != nil {
		r.logger.Warn("failed to fetch responses", "error", err)
		return []survey.Response{}, nil
	}

	responses := make([]survey.Response, 0, len(rows))
	for i, row := range rows {
		resp, err := parseResponse(row)
		if err != nil {
			r.logger.Warn("skipping malformed row", "table", ResponsesTable, "row", tabular.SheetRowIndex(i), "error", err)
			continue
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

// AppendResponses は回答を 1 回の一括追記で保存します。
func (r *Repository) AppendResponses(ctx context.Context, responses []survey.Response) error {
	if len(responses) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(responses))
	for _, resp := range responses {
		rows = append(rows, []string{
			resp.Email,
			resp.Respondent,
			strconv.Itoa(resp.QuestionID),
			resp.NomineeName,
		})
	}

	if err := r.store.AppendRows(ctx, ResponsesTable, rows); err != nil {
		return err
	}

	r.cache.InvalidateAll()
	return nil
}

// UpdateEmployeeStatus は最新の社員テーブルからメールアドレスが一致する行を探し、ステータスを回答済みにします。
func (r *Repository) UpdateEmployeeStatus(ctx context.Context, email string) error {
	rows, err := r.store.ListTable(ctx, EmployeesTable)
	if err != nil {
		return err
	}

	col := EmployeesSpec.ColumnIndex(colStatus)
	for i, row := range rows {
		if !survey.SameEmail(row.Get(colEmail), email) {
			continue
		}
		if err := r.store.UpdateCell(ctx, EmployeesTable, tabular.SheetRowIndex(i), col, statusYes); err != nil {
			return err
		}
		r.cache.InvalidateAll()
		return nil
	}

	return fmt.Errorf("%s: %w", email, survey.ErrEmployeeNotFound)
}

func (r *Repository) parseEmployees(rows []tabular.Row) []survey.Employee {
	employees := make([]survey.Employee, 0, len(rows))
	for i, row := range rows {
		name := strings.TrimSpace(row.Get(colName))
		email := strings.TrimSpace(row.Get(colEmail))
		if name == "" || email == "" {
			r.logger.Warn("skipping malformed row", "table", EmployeesTable, "row", tabular.SheetRowIndex(i))
			continue
		}
		employees = append(employees, survey.Employee{
			Name:   name,
			Email:  email,
			Status: parseStatus(row.Get(colStatus)),
		})
	}
	return employees
}

func parseStatus(raw string) survey.Status {
	if strings.EqualFold(strings.TrimSpace(raw), statusYes) {
		return survey.StatusCompleted
	}
	return survey.StatusPending
}

func parseQuestion(row tabular.Row) (survey.Question, error) {
	id, err := parseQuestionID(row.Get(colQuestionID))
	if err != nil {
		return survey.Question{}, err
	}
	text := strings.TrimSpace(row.Get(colQuestion))
	if text == "" {
		return survey.Question{}, fmt.Errorf("question %d: empty text", id)
	}
	return survey.Question{ID: id, Text: text}, nil
}

func parseResponse(row tabular.Row) (survey.Response, error) {
	id, err := parseQuestionID(row.Get(colQuestionID))
	if err != nil {
		return survey.Response{}, err
	}
	return survey.Response{
		Email:       strings.TrimSpace(row.Get(colEmail)),
		Respondent:  strings.TrimSpace(row.Get(colName)),
		QuestionID:  id,
		NomineeName: strings.TrimSpace(row.Get(colNominee)),
	}, nil
}

func parseQuestionID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("question_id %q: not an integer", raw)
	}
	return id, nil
}

func cloneEmployees(in []survey.Employee) []survey.Employee {
	out := make([]survey.Employee, len(in))
	copy(out, in)
	return out
}

func cloneQuestions(in []survey.Question) []survey.Question {
	out := make([]survey.Question, len(in))
	copy(out, in)
	return out
}
