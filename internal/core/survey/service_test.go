package survey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ogurasousui/feedback-survey/internal/core/session"
)

type fakeRepo struct {
	employees []Employee
	questions []Question
	responses []Response

	fetchEmployeesErr error
	fetchQuestionsErr error
	appendErr         error
	updateErr         error

	appendCalls int
	updateCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		employees: []Employee{
			{Name: "Jane Doe", Email: "jane.doe@keydynamicssolutions", Status: StatusPending},
			{Name: "John Smith", Email: "john.smith@keydynamicssolutions", Status: StatusPending},
			{Name: "Alice", Email: "alice@keydynamicssolutions", Status: StatusPending},
			{Name: "Alice", Email: "alice.dup@keydynamicssolutions", Status: StatusPending},
			{Name: "Done", Email: "done@keydynamicssolutions", Status: StatusCompleted},
		},
		questions: sampleQuestions(7),
	}
}

func sampleQuestions(n int) []Question {
	qs := make([]Question, 0, n)
	for i := 1; i <= n; i++ {
		qs = append(qs, Question{ID: i, Text: fmt.Sprintf("Question %d?", i)})
	}
	return qs
}

func (r *fakeRepo) FetchEmployees(context.Context) ([]Employee, error) {
	if r.fetchEmployeesErr != nil {
		return nil, r.fetchEmployeesErr
	}
	out := make([]Employee, len(r.employees))
	copy(out, r.employees)
	return out, nil
}

func (r *fakeRepo) FetchQuestions(context.Context) ([]Question, error) {
	if r.fetchQuestionsErr != nil {
		return nil, r.fetchQuestionsErr
	}
	out := make([]Question, len(r.questions))
	copy(out, r.questions)
	return out, nil
}

func (r *fakeRepo) FetchResponses(context.Context) ([]Response, error) {
	out := make([]Response, len(r.responses))
	copy(out, r.responses)
	return out, nil
}

func (r *fakeRepo) AppendResponses(_ context.Context, responses []Response) error {
	r.appendCalls++
	if r.appendErr != nil {
		return r.appendErr
	}
	r.responses = append(r.responses, responses...)
	return nil
}

func (r *fakeRepo) UpdateEmployeeStatus(_ context.Context, email string) error {
	r.updateCalls++
	if r.updateErr != nil {
		return r.updateErr
	}
	for i := range r.employees {
		if SameEmail(r.employees[i].Email, email) {
			r.employees[i].Status = StatusCompleted
			return nil
		}
	}
	return ErrEmployeeNotFound
}

func loggedIn(t *testing.T, svc *Service, email string) *session.State {
	t.Helper()

	st := session.New()
	if _, err := svc.Login(context.Background(), st, LoginInput{Email: email}); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	return st
}

func answerAll(t *testing.T, svc *Service, st *session.State, nominee string) *QuestionsView {
	t.Helper()

	view, err := svc.Questions(context.Background(), st)
	if err != nil {
		t.Fatalf("Questions returned error: %v", err)
	}
	for _, q := range view.Questions {
		view, err = svc.Select(context.Background(), st, SelectInput{QuestionID: q.ID, Nominee: nominee})
		if err != nil {
			t.Fatalf("Select returned error: %v", err)
		}
	}
	return view
}

func TestService_Login_Success(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil)
	st := session.New()

	view, err := svc.Login(context.Background(), st, LoginInput{Email: "  Jane.Doe@keydynamicssolutions "})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if view.Page != session.PageQuestions {
		t.Fatalf("expected questions page, got %s", view.Page)
	}
	if st.UserName != "Jane Doe" || st.UserEmail != "jane.doe@keydynamicssolutions" {
		t.Fatalf("expected stored identity, got %q %q", st.UserName, st.UserEmail)
	}
}

func TestService_Login_RejectsWrongDomain(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil)

	for _, email := range []string{"jane.doe@example.com", "jane.doe", "keydynamicssolutions.com", "JANE.DOE@KEYDYNAMICSSOLUTIONS"} {
		st := session.New()
		_, err := svc.Login(context.Background(), st, LoginInput{Email: email})
		if !errors.Is(err, ErrInvalidDomain) {
			t.Fatalf("%s: expected ErrInvalidDomain, got %v", email, err)
		}
		if st.Page != session.PageLogin || st.Authenticated() {
			t.Fatalf("%s: expected no state change, got %+v", email, st)
		}
	}
}

func TestService_Login_Validation(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil)

	if _, err := svc.Login(context.Background(), session.New(), LoginInput{Email: "   "}); !errors.Is(err, ErrEmailRequired) {
		t.Fatalf("expected ErrEmailRequired, got %v", err)
	}
	if _, err := svc.Login(context.Background(), session.New(), LoginInput{Email: "ghost@keydynamicssolutions"}); !errors.Is(err, ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestService_Login_RejectsCompleted(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil)
	st := session.New()

	_, err := svc.Login(context.Background(), st, LoginInput{Email: "DONE@keydynamicssolutions"})
	if !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
	if st.Page != session.PageLogin {
		t.Fatalf("expected to stay on login, got %s", st.Page)
	}
}

func TestService_Login_StoreFailure(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	storeErr := errors.New("unreachable")
	repo.fetchEmployeesErr = storeErr
	svc := NewService(repo, nil)

	st := session.New()
	if _, err := svc.Login(context.Background(), st, LoginInput{Email: "jane.doe@keydynamicssolutions"}); !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
	if st.Page != session.PageLogin {
		t.Fatalf("expected to stay on login, got %s", st.Page)
	}
}

func TestService_Questions_ViewModel(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil)
	st := loggedIn(t, svc, "jane.doe@keydynamicssolutions")

	view, err := svc.Questions(context.Background(), st)
	if err != nil {
		t.Fatalf("Questions returned error: %v", err)
	}

	if len(view.Questions) != MaxQuestions {
		t.Fatalf("expected %d questions, got %d", MaxQuestions, len(view.Questions))
	}
	if view.Questions[0].Position != 1 || view.Questions[5].Total != 6 {
		t.Fatalf("unexpected positions: %+v", view.Questions)
	}

	want := []string{"Alice", "Done", "John Smith"}
	if strings.Join(view.Nominees, ",") != strings.Join(want, ",") {
		t.Fatalf("expected nominees %v, got %v", want, view.Nominees)
	}
	if view.Remaining != 6 || view.AllAnswered || view.CanSubmit() {
		t.Fatalf("expected nothing answered, got remaining=%d all=%v", view.Remaining, view.AllAnswered)
	}
}

func TestService_Questions_ExcludesRespondentName(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil)
	st := loggedIn(t, svc, "alice@keydynamicssolutions")

	view, err := svc.Questions(context.Background(), st)
	if err != nil {
		t.Fatalf("Questions returned error: %v", err)
	}

	want := []string{"Done", "Jane Doe", "John Smith"}
	if strings.Join(view.Nominees, ",") != strings.Join(want, ",") {
		t.Fatalf("expected nominees %v, got %v", want, view.Nominees)
	}
	if _, err := svc.Select(context.Background(), st, SelectInput{QuestionID: 1, Nominee: "Alice"}); !errors.Is(err, ErrInvalidNominee) {
		t.Fatalf("expected ErrInvalidNominee for own name, got %v", err)
	}
}

func TestService_Questions_RequiresUser(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil)
	if _, err := svc.Questions(context.Background(), session.New()); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestService_Questions_NoQuestions(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, nil)
	st := loggedIn(t, svc, "jane.doe@keydynamicssolutions")
	repo.questions = nil

	if _, err := svc.Questions(context.Background(), st); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestService_Questions_NoNominees(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.employees = []Employee{{Name: "Jane Doe", Email: "jane.doe@keydynamicssolutions"}}
	svc := NewService(repo, nil)
	st := loggedIn(t, svc, "jane.doe@keydynamicssolutions")

	if _, err := svc.Questions(context.Background(), st); !errors.Is(err, ErrNoNominees) {
		t.Fatalf("expected ErrNoNominees, got %v", err)
	}
}

func TestService_Select_RemainingCount(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil)
	st := loggedIn(t, svc, "jane.doe@keydynamicssolutions")

	view, err := svc.Questions(context.Background(), st)
	if err != nil {
		t.Fatalf("Questions returned error: %v", err)
	}
	for _, q := range view.Questions[:5] {
		view, err = svc.Select(context.Background(), st, SelectInput{QuestionID: q.ID, Nominee: "John Smith"})
		if err != nil {
			t.Fatalf("Select returned error: %v", err)
		}
	}

	if view.Remaining != 1 || view.CanSubmit() {
		t.Fatalf("expected 1 remaining and submit disabled, got remaining=%d", view.Remaining)
	}
	if view.Warning() != "Please answer all questions to continue. 1 question(s) remaining." {
		t.Fatalf("unexpected warning %q", view.Warning())
	}

	if _, err := svc.Submit(context.Background(), st); !errors.Is(err, ErrIncompleteAnswers) {
		t.Fatalf("expected ErrIncompleteAnswers, got %v", err)
	}

	view, err = svc.Select(context.Background(), st, SelectInput{QuestionID: 6, Nominee: "Alice"})
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if view.Remaining != 0 || !view.CanSubmit() || view.Warning() != "" {
		t.Fatalf("expected submit enabled, got remaining=%d", view.Remaining)
	}

	view, err = svc.Select(context.Background(), st, SelectInput{QuestionID: 6, Nominee: ""})
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if view.Remaining != 1 {
		t.Fatalf("expected clearing a choice to reopen it, got remaining=%d", view.Remaining)
	}
}

func TestService_Select_PreservesChoiceAcrossRenders(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil)
	st := loggedIn(t, svc, "jane.doe@keydynamicssolutions")

	if _, err := svc.Select(context.Background(), st, SelectInput{QuestionID: 2, Nominee: "Alice"}); err != nil {
		t.Fatalf("Select returned error: %v", err)
	}

	view, err := svc.Questions(context.Background(), st)
	if err != nil {
		t.Fatalf("Questions returned error: %v", err)
	}
	if view.Questions[1].Selected != "Alice" {
		t.Fatalf("expected choice to be preserved, got %q", view.Questions[1].Selected)
	}
}

func TestService_Select_Validation(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil)
	st := loggedIn(t, svc, "jane.doe@keydynamicssolutions")

	if _, err := svc.Select(context.Background(), st, SelectInput{QuestionID: 7, Nominee: "Alice"}); !errors.Is(err, ErrUnknownQuestion) {
		t.Fatalf("expected ErrUnknownQuestion for question beyond cap, got %v", err)
	}
	if _, err := svc.Select(context.Background(), st, SelectInput{QuestionID: 1, Nominee: "Jane Doe"}); !errors.Is(err, ErrInvalidNominee) {
		t.Fatalf("expected ErrInvalidNominee for self nomination, got %v", err)
	}
	if _, err := svc.Select(context.Background(), st, SelectInput{QuestionID: 1, Nominee: "Nobody"}); !errors.Is(err, ErrInvalidNominee) {
		t.Fatalf("expected ErrInvalidNominee for unknown name, got %v", err)
	}
}

func TestService_Submit_Success(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, nil)
	st := loggedIn(t, svc, "jane.doe@keydynamicssolutions")
	answerAll(t, svc, st, "John Smith")

	result, err := svc.Submit(context.Background(), st)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	if result.Page != session.PageSuccess || st.Page != session.PageSuccess {
		t.Fatalf("expected success page, got %s", st.Page)
	}
	if !result.StatusUpdated || result.Warning != "" {
		t.Fatalf("expected clean status update, got %+v", result)
	}
	if result.Saved != MaxQuestions || len(repo.responses) != MaxQuestions {
		t.Fatalf("expected %d responses, got %d", MaxQuestions, len(repo.responses))
	}

	seen := make(map[int]bool)
	for _, r := range repo.responses {
		if seen[r.QuestionID] {
			t.Fatalf("duplicate question id %d", r.QuestionID)
		}
		seen[r.QuestionID] = true
		if r.QuestionID < 1 || r.QuestionID > MaxQuestions {
			t.Fatalf("question id %d outside active set", r.QuestionID)
		}
		if r.NomineeName == "Jane Doe" {
			t.Fatal("respondent nominated themselves")
		}
		if r.Email != "jane.doe@keydynamicssolutions" || r.Respondent != "Jane Doe" {
			t.Fatalf("unexpected respondent identity %+v", r)
		}
	}

	if _, err := svc.Acknowledge(context.Background(), st); err != nil {
		t.Fatalf("Acknowledge returned error: %v", err)
	}
	if _, err := svc.Login(context.Background(), st, LoginInput{Email: "jane.doe@keydynamicssolutions"}); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected second login to be rejected, got %v", err)
	}
}

func TestService_Submit_AppendFailureKeepsState(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	storeErr := errors.New("quota exceeded")
	repo.appendErr = storeErr
	svc := NewService(repo, nil)
	st := loggedIn(t, svc, "jane.doe@keydynamicssolutions")
	answerAll(t, svc, st, "Alice")

	_, err := svc.Submit(context.Background(), st)
	if !errors.Is(err, ErrSaveFailed) || !errors.Is(err, storeErr) {
		t.Fatalf("expected ErrSaveFailed wrapping store error, got %v", err)
	}
	if repo.updateCalls != 0 {
		t.Fatalf("expected no status update after failed append, got %d", repo.updateCalls)
	}
	if st.Page != session.PageQuestions {
		t.Fatalf("expected to stay on questions, got %s", st.Page)
	}
}

func TestService_Submit_StatusFailureIsWarning(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.updateErr = errors.New("permission denied")
	svc := NewService(repo, nil)
	st := loggedIn(t, svc, "jane.doe@keydynamicssolutions")
	answerAll(t, svc, st, "Alice")

	result, err := svc.Submit(context.Background(), st)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if result.StatusUpdated || result.Warning == "" {
		t.Fatalf("expected status warning, got %+v", result)
	}
	if st.Page != session.PageSuccess {
		t.Fatalf("expected success page, got %s", st.Page)
	}
}

func TestService_Submit_RejectsDuplicateResponses(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, nil)
	st := loggedIn(t, svc, "jane.doe@keydynamicssolutions")
	answerAll(t, svc, st, "Alice")

	repo.responses = append(repo.responses, Response{Email: "JANE.DOE@keydynamicssolutions", QuestionID: 1, NomineeName: "Alice"})

	if _, err := svc.Submit(context.Background(), st); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
	if repo.appendCalls != 0 {
		t.Fatalf("expected no append, got %d", repo.appendCalls)
	}
}

func TestService_Back_DiscardsSession(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil)
	st := loggedIn(t, svc, "jane.doe@keydynamicssolutions")
	answerAll(t, svc, st, "Alice")

	view, err := svc.Back(context.Background(), st)
	if err != nil {
		t.Fatalf("Back returned error: %v", err)
	}
	if view.Page != session.PageLogin || st.Authenticated() || st.Selections != nil {
		t.Fatalf("expected reset session, got %+v", st)
	}
}

func TestService_Current_ResetsUnknownPage(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil)
	st := &session.State{Page: "mystery", UserEmail: "jane.doe@keydynamicssolutions"}

	view := svc.Current(context.Background(), st)
	if !view.Reset || view.Page != session.PageLogin || st.Authenticated() {
		t.Fatalf("expected reset to login, got %+v", view)
	}
}

func TestService_Acknowledge_OnlyFromSuccess(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil)
	if _, err := svc.Acknowledge(context.Background(), session.New()); !errors.Is(err, session.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestActiveQuestions_Cap(t *testing.T) {
	t.Parallel()

	if got := len(ActiveQuestions(sampleQuestions(3))); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := len(ActiveQuestions(sampleQuestions(10))); got != MaxQuestions {
		t.Fatalf("expected %d, got %d", MaxQuestions, got)
	}
}

func TestIsValidation(t *testing.T) {
	t.Parallel()

	for _, err := range []error{ErrEmailRequired, ErrInvalidDomain, ErrUnknownQuestion, ErrInvalidNominee, fmt.Errorf("2 left: %w", ErrIncompleteAnswers)} {
		if !IsValidation(err) {
			t.Errorf("expected %v to be a validation error", err)
		}
	}
	for _, err := range []error{nil, ErrAlreadyCompleted, ErrEmployeeNotFound, ErrSaveFailed} {
		if IsValidation(err) {
			t.Errorf("expected %v not to be a validation error", err)
		}
	}
}
