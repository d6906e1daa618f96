package handler

import (
	"context"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ogurasousui/feedback-survey/internal/core/session"
	"github.com/ogurasousui/feedback-survey/internal/core/survey"
	"github.com/ogurasousui/feedback-survey/internal/core/tabular"
)

type stubSurveyUseCase struct {
	loginInput  survey.LoginInput
	loginErr    error
	selectInput survey.SelectInput
	selectErr   error
	submitErr   error
	submitOut   *survey.SubmitResult
}

func (s *stubSurveyUseCase) Current(_ context.Context, st *session.State) *survey.PageView {
	return &survey.PageView{Page: st.Page, UserEmail: st.UserEmail, UserName: st.UserName}
}

func (s *stubSurveyUseCase) Login(_ context.Context, st *session.State, in survey.LoginInput) (*survey.PageView, error) {
	s.loginInput = in
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	if err := st.Authenticate(in.Email, "Jane Doe"); err != nil {
		return nil, err
	}
	return &survey.PageView{Page: st.Page, UserEmail: st.UserEmail, UserName: st.UserName}, nil
}

func (s *stubSurveyUseCase) Questions(_ context.Context, st *session.State) (*survey.QuestionsView, error) {
	return s.view(st), nil
}

func (s *stubSurveyUseCase) Select(_ context.Context, st *session.State, in survey.SelectInput) (*survey.QuestionsView, error) {
	s.selectInput = in
	if s.selectErr != nil {
		return nil, s.selectErr
	}
	st.Select(in.QuestionID, in.Nominee)
	return s.view(st), nil
}

func (s *stubSurveyUseCase) Back(_ context.Context, st *session.State) (*survey.PageView, error) {
	if err := st.Back(); err != nil {
		return nil, err
	}
	return &survey.PageView{Page: st.Page}, nil
}

func (s *stubSurveyUseCase) Submit(_ context.Context, st *session.State) (*survey.SubmitResult, error) {
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return s.submitOut, nil
}

func (s *stubSurveyUseCase) Acknowledge(_ context.Context, st *session.State) (*survey.PageView, error) {
	if err := st.Acknowledge(); err != nil {
		return nil, err
	}
	return &survey.PageView{Page: st.Page}, nil
}

func (s *stubSurveyUseCase) view(st *session.State) *survey.QuestionsView {
	selected, _ := st.Selection(1)
	remaining := 1
	if selected != "" {
		remaining = 0
	}
	return &survey.QuestionsView{
		UserEmail:   st.UserEmail,
		UserName:    st.UserName,
		Questions:   []survey.QuestionItem{{Position: 1, Total: 1, ID: 1, Text: "Who is the most punctual?", Selected: selected}},
		Nominees:    []string{"John Smith"},
		Remaining:   remaining,
		AllAnswered: remaining == 0,
	}
}

func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("failed to build struct: %v", err)
	}
	return s
}

func startSession(t *testing.T, h *SurveyGrpcHandler) string {
	t.Helper()
	resp, err := h.StartSession(context.Background(), &structpb.Struct{})
	if err != nil {
		t.Fatalf("StartSession returned error: %v", err)
	}
	if page := resp.GetFields()[keyPage].GetStringValue(); page != string(session.PageLogin) {
		t.Fatalf("expected login page, got %s", page)
	}
	id := resp.GetFields()[keySessionID].GetStringValue()
	if id == "" {
		t.Fatalf("expected session id")
	}
	return id
}

func TestSurveyGrpcHandler_LoginAndSelect(t *testing.T) {
	t.Parallel()

	stub := &stubSurveyUseCase{}
	h := NewSurveyGrpcHandler(stub, session.NewManager(0, nil))
	ctx := context.Background()
	id := startSession(t, h)

	resp, err := h.Login(ctx, mustStruct(t, map[string]any{keySessionID: id, keyEmail: "jane.doe@keydynamicssolutions"}))
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if stub.loginInput.Email != "jane.doe@keydynamicssolutions" {
		t.Errorf("expected email passed through, got %s", stub.loginInput.Email)
	}
	if got := resp.GetFields()[keyPage].GetStringValue(); got != string(session.PageQuestions) {
		t.Fatalf("expected questions page, got %s", got)
	}
	if got := resp.GetFields()[keyUserName].GetStringValue(); got != "Jane Doe" {
		t.Fatalf("expected user name, got %s", got)
	}

	resp, err = h.GetQuestions(ctx, mustStruct(t, map[string]any{keySessionID: id}))
	if err != nil {
		t.Fatalf("GetQuestions returned error: %v", err)
	}
	if resp.GetFields()["can_submit"].GetBoolValue() {
		t.Fatalf("expected submit to be disabled before answering")
	}
	if got := resp.GetFields()[keyWarning].GetStringValue(); got != "Please answer all questions to continue. 1 question(s) remaining." {
		t.Fatalf("unexpected warning %q", got)
	}

	resp, err = h.SelectNominee(ctx, mustStruct(t, map[string]any{keySessionID: id, keyQuestionID: 1, keyNominee: "John Smith"}))
	if err != nil {
		t.Fatalf("SelectNominee returned error: %v", err)
	}
	if stub.selectInput.QuestionID != 1 || stub.selectInput.Nominee != "John Smith" {
		t.Fatalf("unexpected select input %+v", stub.selectInput)
	}
	if !resp.GetFields()["can_submit"].GetBoolValue() {
		t.Fatalf("expected submit to be enabled")
	}
	items := resp.GetFields()["questions"].GetListValue().GetValues()
	if len(items) != 1 || items[0].GetStructValue().GetFields()["selected"].GetStringValue() != "John Smith" {
		t.Fatalf("unexpected questions %v", items)
	}
}

func TestSurveyGrpcHandler_SelectNominee_StringQuestionID(t *testing.T) {
	t.Parallel()

	stub := &stubSurveyUseCase{}
	h := NewSurveyGrpcHandler(stub, session.NewManager(0, nil))
	id := startSession(t, h)

	if _, err := h.SelectNominee(context.Background(), mustStruct(t, map[string]any{keySessionID: id, keyQuestionID: "3", keyNominee: ""})); err != nil {
		t.Fatalf("SelectNominee returned error: %v", err)
	}
	if stub.selectInput.QuestionID != 3 || stub.selectInput.Nominee != "" {
		t.Fatalf("unexpected select input %+v", stub.selectInput)
	}

	_, err := h.SelectNominee(context.Background(), mustStruct(t, map[string]any{keySessionID: id, keyQuestionID: 1.5}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for fractional id, got %v", err)
	}
}

func TestSurveyGrpcHandler_SessionErrors(t *testing.T) {
	t.Parallel()

	h := NewSurveyGrpcHandler(&stubSurveyUseCase{}, session.NewManager(0, nil))
	ctx := context.Background()

	if _, err := h.GetState(ctx, &structpb.Struct{}); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument without session id, got %v", err)
	}
	if _, err := h.GetState(ctx, mustStruct(t, map[string]any{keySessionID: "unknown"})); status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound for unknown session, got %v", err)
	}
}

func TestSurveyGrpcHandler_ErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		code codes.Code
	}{
		{survey.ErrInvalidDomain, codes.InvalidArgument},
		{survey.ErrEmailRequired, codes.InvalidArgument},
		{fmt.Errorf("question 9: %w", survey.ErrUnknownQuestion), codes.InvalidArgument},
		{survey.ErrIncompleteAnswers, codes.InvalidArgument},
		{survey.ErrAlreadyCompleted, codes.FailedPrecondition},
		{survey.ErrEmployeeNotFound, codes.NotFound},
		{fmt.Errorf("fetch employees: %w", tabular.ErrUnavailable), codes.Unavailable},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
	}

	for _, tc := range cases {
		stub := &stubSurveyUseCase{loginErr: tc.err}
		h := NewSurveyGrpcHandler(stub, session.NewManager(0, nil))
		id := startSession(t, h)

		_, err := h.Login(context.Background(), mustStruct(t, map[string]any{keySessionID: id, keyEmail: "x"}))
		if status.Code(err) != tc.code {
			t.Errorf("%v: expected %s, got %v", tc.err, tc.code, err)
		}
	}
}

func TestSurveyGrpcHandler_SubmitAndAcknowledge(t *testing.T) {
	t.Parallel()

	stub := &stubSurveyUseCase{submitOut: &survey.SubmitResult{
		Page:    session.PageSuccess,
		Saved:   6,
		Warning: "status update failed",
	}}
	sessions := session.NewManager(0, nil)
	h := NewSurveyGrpcHandler(stub, sessions)
	ctx := context.Background()
	id := startSession(t, h)

	resp, err := h.Submit(ctx, mustStruct(t, map[string]any{keySessionID: id}))
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if resp.GetFields()[keySaved].GetNumberValue() != 6 {
		t.Fatalf("unexpected saved count %v", resp.GetFields()[keySaved])
	}
	if resp.GetFields()[keyStatusUpdated].GetBoolValue() {
		t.Fatalf("expected status_updated false")
	}
	if resp.GetFields()[keyWarning].GetStringValue() == "" {
		t.Fatalf("expected warning to be passed through")
	}

	if _, err := h.Acknowledge(ctx, mustStruct(t, map[string]any{keySessionID: id})); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition acknowledging from login, got %v", err)
	}

	stub.submitErr = fmt.Errorf("%w: %w", survey.ErrSaveFailed, tabular.ErrUnavailable)
	if _, err := h.Submit(ctx, mustStruct(t, map[string]any{keySessionID: id})); status.Code(err) != codes.Unavailable {
		t.Fatalf("expected Unavailable, got %v", err)
	}
}

func TestSurveyGrpcHandler_Back(t *testing.T) {
	t.Parallel()

	h := NewSurveyGrpcHandler(&stubSurveyUseCase{}, session.NewManager(0, nil))
	ctx := context.Background()
	id := startSession(t, h)

	if _, err := h.Login(ctx, mustStruct(t, map[string]any{keySessionID: id, keyEmail: "jane.doe@keydynamicssolutions"})); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	resp, err := h.Back(ctx, mustStruct(t, map[string]any{keySessionID: id}))
	if err != nil {
		t.Fatalf("Back returned error: %v", err)
	}
	if got := resp.GetFields()[keyPage].GetStringValue(); got != string(session.PageLogin) {
		t.Fatalf("expected login page, got %s", got)
	}

	resp, err = h.GetState(ctx, mustStruct(t, map[string]any{keySessionID: id}))
	if err != nil {
		t.Fatalf("GetState returned error: %v", err)
	}
	if got := resp.GetFields()[keyUserEmail].GetStringValue(); got != "" {
		t.Fatalf("expected user binding to be discarded, got %s", got)
	}
}

func TestSurveyGrpcHandler_EndSession(t *testing.T) {
	t.Parallel()

	h := NewSurveyGrpcHandler(&stubSurveyUseCase{}, session.NewManager(0, nil))
	id := startSession(t, h)

	resp, err := h.EndSession(context.Background(), mustStruct(t, map[string]any{keySessionID: id}))
	if err != nil {
		t.Fatalf("EndSession returned error: %v", err)
	}
	if !resp.GetFields()[keyEnded].GetBoolValue() {
		t.Fatalf("expected ended flag, got %v", resp)
	}

	if _, err := h.GetState(context.Background(), mustStruct(t, map[string]any{keySessionID: id})); status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound after EndSession, got %v", err)
	}
	if _, err := h.EndSession(context.Background(), &structpb.Struct{}); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument without session id, got %v", err)
	}
}
