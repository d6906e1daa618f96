package report

import (
	"context"
	"fmt"
	"sort"

	"github.com/ogurasousui/feedback-survey/internal/core/survey"
)

// Reader は集計に必要な読み取り専用の永続化操作です。
type Reader interface {
	FetchEmployees(ctx context.Context) ([]survey.Employee, error)
	FetchQuestions(ctx context.Context) ([]survey.Question, error)
	FetchResponses(ctx context.Context) ([]survey.Response, error)
}

// Tally は 1 人の被推薦者の得票数です。
type Tally struct {
	Nominee string
	Votes   int
}

// QuestionReport は設問ごとの集計結果です。
type QuestionReport struct {
	Question survey.Question
	Tallies  []Tally
}

// EmployeeStatus は社員ごとの回答状況です。
type EmployeeStatus struct {
	Name      string
	Email     string
	Completed bool
}

// Report は管理者向けの集計結果です。
type Report struct {
	Questions      []QuestionReport
	Employees      []EmployeeStatus
	TotalResponses int
}

// HasResponses は回答が 1 件でもあるかどうかを返します。
func (r *Report) HasResponses() bool {
	return r.TotalResponses > 0
}

// UseCase は管理者向け集計のユースケースです。
type UseCase interface {
	Build(ctx context.Context) (*Report, error)
}

// Service は UseCase の実装です。
type Service struct {
	reader Reader
}

// NewService は Service を生成します。
func NewService(reader Reader) *Service {
	return &Service{reader: reader}
}

// Build は設問ごとの得票集計と社員の回答状況を構築します。
func (s *Service) Build(ctx context.Context) (*Report, error) {
	questions, err := s.reader.FetchQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}

	responses, err := s.reader.FetchResponses(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch responses: %w", err)
	}

	employees, err := s.reader.FetchEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch employees: %w", err)
	}

	active := survey.ActiveQuestions(questions)
	out := &Report{
		Questions:      make([]QuestionReport, 0, len(active)),
		Employees:      make([]EmployeeStatus, 0, len(employees)),
		TotalResponses: len(responses),
	}

	for _, q := range active {
		out.Questions = append(out.Questions, QuestionReport{Question: q, Tallies: TallyVotes(responses, q.ID)})
	}

	for _, e := range employees {
		out.Employees = append(out.Employees, EmployeeStatus{Name: e.Name, Email: e.Email, Completed: e.Completed()})
	}

	return out, nil
}

// TallyVotes は設問の回答を被推薦者ごとに集計し、得票数の降順・同数は名前の昇順で返します。
func TallyVotes(responses []survey.Response, questionID int) []Tally {
	counts := make(map[string]int)
	for _, r := range responses {
		if r.QuestionID != questionID {
			continue
		}
		counts[r.NomineeName]++
	}

	tallies := make([]Tally, 0, len(counts))
	for name, votes := range counts {
		tallies = append(tallies, Tally{Nominee: name, Votes: votes})
	}

	sort.Slice(tallies, func(i, j int) bool {
		if tallies[i].Votes != tallies[j].Votes {
			return tallies[i].Votes > tallies[j].Votes
		}
		return tallies[i].Nominee < tallies[j].Nominee
	})
	return tallies
}
