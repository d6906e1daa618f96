package survey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ogurasousui/feedback-survey/internal/core/session"
)

const (
	// RequiredDomain はログインに必要なメールアドレスのドメイン部分です。
	RequiredDomain = "@keydynamicssolutions"
	// MaxQuestions は回答対象とする先頭の設問数です。
	MaxQuestions = 6
)

// UseCase は回答者向け画面のユースケースです。すべての操作はセッションの State を明示的に受け取ります。
type UseCase interface {
	Current(ctx context.Context, st *session.State) *PageView
	Login(ctx context.Context, st *session.State, in LoginInput) (*PageView, error)
	Questions(ctx context.Context, st *session.State) (*QuestionsView, error)
	Select(ctx context.Context, st *session.State, in SelectInput) (*QuestionsView, error)
	Back(ctx context.Context, st *session.State) (*PageView, error)
	Submit(ctx context.Context, st *session.State) (*SubmitResult, error)
	Acknowledge(ctx context.Context, st *session.State) (*PageView, error)
}

// Service は回答者向け画面のユースケースをまとめます。
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService は Service を生成します。
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// LoginInput はログイン時の入力です。
type LoginInput struct {
	Email string
}

// SelectInput は設問への回答選択の入力です。Nominee が空文字列なら未選択に戻します。
type SelectInput struct {
	QuestionID int
	Nominee    string
}

// PageView は現在のページとログインユーザーを表します。
type PageView struct {
	Page      session.Page
	UserEmail string
	UserName  string
	// Reset は未知の状態からログイン画面へ戻された場合に true です。
	Reset bool
}

// QuestionItem は 1 設問分の表示内容です。
type QuestionItem struct {
	Position int
	Total    int
	ID       int
	Text     string
	Selected string
}

// QuestionsView は設問画面の表示内容です。
type QuestionsView struct {
	UserEmail   string
	UserName    string
	Questions   []QuestionItem
	Nominees    []string
	Remaining   int
	AllAnswered bool
}

// CanSubmit は送信ボタンを有効にできるかどうかを返します。
func (v *QuestionsView) CanSubmit() bool {
	return v.AllAnswered
}

// Warning は未回答が残っている場合の案内文を返します。
func (v *QuestionsView) Warning() string {
	if v.Remaining == 0 {
		return ""
	}
	return fmt.Sprintf("Please answer all questions to continue. %d question(s) remaining.", v.Remaining)
}

// SubmitResult は回答送信の結果です。
type SubmitResult struct {
	Page          session.Page
	Saved         int
	StatusUpdated bool
	Warning       string
}

// Current は現在のページを返します。未知の状態はログイン画面へ戻します。
func (s *Service) Current(_ context.Context, st *session.State) *PageView {
	reset := st.Normalize()
	if reset {
		s.logger.Warn("unknown page state, resetting to login")
	}
	view := pageView(st)
	view.Reset = reset
	return view
}

// Login はメールアドレスを検証し、未回答の社員であれば設問画面へ遷移します。
func (s *Service) Login(ctx context.Context, st *session.State, in LoginInput) (*PageView, error) {
	st.Normalize()
	if st.Page != session.PageLogin {
		return nil, fmt.Errorf("login: %w", session.ErrInvalidTransition)
	}

	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if !strings.Contains(email, RequiredDomain) {
		return nil, fmt.Errorf("only %s addresses can log in: %w", RequiredDomain, ErrInvalidDomain)
	}

	employees, err := s.repo.FetchEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch employees: %w", err)
	}

	found, ok := findEmployee(employees, email)
	if !ok {
		return nil, ErrEmployeeNotFound
	}
	if found.Completed() {
		return nil, ErrAlreadyCompleted
	}

	if err := st.Authenticate(found.Email, found.Name); err != nil {
		return nil, err
	}

	s.logger.Info("respondent logged in", "email", found.Email)
	return pageView(st), nil
}

// Questions は設問画面の表示内容を構築します。
func (s *Service) Questions(ctx context.Context, st *session.State) (*QuestionsView, error) {
	st.Normalize()
	if !st.Authenticated() {
		return nil, ErrSessionExpired
	}
	if st.Page != session.PageQuestions {
		return nil, fmt.Errorf("questions on %s page: %w", st.Page, session.ErrInvalidTransition)
	}

	questions, err := s.activeQuestions(ctx)
	if err != nil {
		return nil, err
	}

	employees, err := s.repo.FetchEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch employees: %w", err)
	}

	nominees := eligibleNominees(employees, st.UserEmail, st.UserName)
	if len(nominees) == 0 {
		return nil, ErrNoNominees
	}

	st.EnsureSelections(questionIDs(questions))
	for id, selected := range st.Selections {
		if selected != "" && !containsName(nominees, selected) {
			st.Select(id, "")
		}
	}

	return buildQuestionsView(st, questions, nominees), nil
}

// Select は設問の回答を記録し、更新後の設問画面を返します。
func (s *Service) Select(ctx context.Context, st *session.State, in SelectInput) (*QuestionsView, error) {
	view, err := s.Questions(ctx, st)
	if err != nil {
		return nil, err
	}

	if !containsQuestion(view.Questions, in.QuestionID) {
		return nil, fmt.Errorf("question %d: %w", in.QuestionID, ErrUnknownQuestion)
	}

	nominee := strings.TrimSpace(in.Nominee)
	if nominee != "" && !containsName(view.Nominees, nominee) {
		return nil, fmt.Errorf("%q: %w", nominee, ErrInvalidNominee)
	}

	st.Select(in.QuestionID, nominee)

	for i := range view.Questions {
		if view.Questions[i].ID == in.QuestionID {
			view.Questions[i].Selected = nominee
		}
	}
	ids := make([]int, 0, len(view.Questions))
	for _, q := range view.Questions {
		ids = append(ids, q.ID)
	}
	view.Remaining = st.Remaining(ids)
	view.AllAnswered = st.AllAnswered(ids)
	return view, nil
}

// Back は設問画面からログイン画面へ戻ります。
func (s *Service) Back(_ context.Context, st *session.State) (*PageView, error) {
	st.Normalize()
	if err := st.Back(); err != nil {
		return nil, err
	}
	return pageView(st), nil
}

// Submit は全設問に回答済みの場合に回答を保存し、社員を回答済みにして完了画面へ遷移します。
//
// 回答の保存に失敗した場合は状態を変えずにエラーを返します。保存後のステータス更新の失敗は
// 警告として返し、完了画面への遷移は妨げません。
func (s *Service) Submit(ctx context.Context, st *session.State) (*SubmitResult, error) {
	view, err := s.Questions(ctx, st)
	if err != nil {
		return nil, err
	}
	if !view.AllAnswered {
		return nil, fmt.Errorf("%d question(s) remaining: %w", view.Remaining, ErrIncompleteAnswers)
	}

	if err := s.ensureNotSubmitted(ctx, st.UserEmail); err != nil {
		return nil, err
	}

	records := make([]Response, 0, len(view.Questions))
	ids := make([]int, 0, len(view.Questions))
	for _, q := range view.Questions {
		records = append(records, Response{
			Email:       st.UserEmail,
			Respondent:  st.UserName,
			QuestionID:  q.ID,
			NomineeName: q.Selected,
		})
		ids = append(ids, q.ID)
	}

	if err := s.repo.AppendResponses(ctx, records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	result := &SubmitResult{Saved: len(records), StatusUpdated: true}
	if err := s.repo.UpdateEmployeeStatus(ctx, st.UserEmail); err != nil {
		s.logger.Warn("responses saved but status update failed", "email", st.UserEmail, "error", err)
		result.StatusUpdated = false
		result.Warning = "Responses saved but status update failed. Please contact admin if needed."
	}

	if err := st.Complete(ids); err != nil {
		return nil, err
	}

	s.logger.Info("survey submitted", "email", st.UserEmail, "responses", len(records))
	result.Page = st.Page
	return result, nil
}

// Acknowledge は完了画面からログイン画面へ戻ります。
func (s *Service) Acknowledge(_ context.Context, st *session.State) (*PageView, error) {
	st.Normalize()
	if err := st.Acknowledge(); err != nil {
		return nil, err
	}
	return pageView(st), nil
}

func (s *Service) activeQuestions(ctx context.Context) ([]Question, error) {
	questions, err := s.repo.FetchQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	return ActiveQuestions(questions), nil
}

func (s *Service) ensureNotSubmitted(ctx context.Context, email string) error {
	employees, err := s.repo.FetchEmployees(ctx)
	if err != nil {
		return fmt.Errorf("fetch employees: %w", err)
	}
	if found, ok := findEmployee(employees, email); ok && found.Completed() {
		return ErrAlreadyCompleted
	}

	responses, err := s.repo.FetchResponses(ctx)
	if err != nil {
		return fmt.Errorf("fetch responses: %w", err)
	}
	for _, r := range responses {
		if SameEmail(r.Email, email) {
			return ErrAlreadyCompleted
		}
	}
	return nil
}

// ActiveQuestions は先頭 MaxQuestions 件の設問を返します。
func ActiveQuestions(questions []Question) []Question {
	if len(questions) > MaxQuestions {
		return questions[:MaxQuestions]
	}
	return questions
}

// IsValidation は入力検証エラーかどうかを返します。
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmailRequired) ||
		errors.Is(err, ErrInvalidDomain) ||
		errors.Is(err, ErrUnknownQuestion) ||
		errors.Is(err, ErrInvalidNominee) ||
		errors.Is(err, ErrIncompleteAnswers)
}

func findEmployee(employees []Employee, email string) (Employee, bool) {
	for _, e := range employees {
		if SameEmail(e.Email, email) {
			return e, true
		}
	}
	return Employee{}, false
}

// eligibleNominees は回答者本人および本人と同名の社員を除いた氏名一覧を返します。
func eligibleNominees(employees []Employee, selfEmail, selfName string) []string {
	seen := make(map[string]struct{}, len(employees))
	names := make([]string, 0, len(employees))
	for _, e := range employees {
		if SameEmail(e.Email, selfEmail) || e.Name == selfName {
			continue
		}
		if _, ok := seen[e.Name]; ok {
			continue
		}
		seen[e.Name] = struct{}{}
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

func questionIDs(questions []Question) []int {
	ids := make([]int, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	return ids
}

func buildQuestionsView(st *session.State, questions []Question, nominees []string) *QuestionsView {
	ids := questionIDs(questions)
	items := make([]QuestionItem, 0, len(questions))
	for i, q := range questions {
		selected, _ := st.Selection(q.ID)
		items = append(items, QuestionItem{
			Position: i + 1,
			Total:    len(questions),
			ID:       q.ID,
			Text:     q.Text,
			Selected: selected,
		})
	}

	return &QuestionsView{
		UserEmail:   st.UserEmail,
		UserName:    st.UserName,
		Questions:   items,
		Nominees:    nominees,
		Remaining:   st.Remaining(ids),
		AllAnswered: st.AllAnswered(ids),
	}
}

func containsName(names []string, name string) bool {
	i := sort.SearchStrings(names, name)
	return i < len(names) && names[i] == name
}

func containsQuestion(items []QuestionItem, id int) bool {
	for _, q := range items {
		if q.ID == id {
			return true
		}
	}
	return false
}

func pageView(st *session.State) *PageView {
	return &PageView{Page: st.Page, UserEmail: st.UserEmail, UserName: st.UserName}
}
