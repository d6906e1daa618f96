package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ogurasousui/feedback-survey/internal/core/session"
	"github.com/ogurasousui/feedback-survey/internal/core/survey"
)

// SessionStore はセッション ID ごとの状態を保持します。
type SessionStore interface {
	Create() (string, *session.State)
	With(ctx context.Context, id string, fn func(*session.State) error) error
	Delete(id string)
}

// SurveyGrpcHandler は SurveyService の gRPC 実装です。
type SurveyGrpcHandler struct {
	svc      survey.UseCase
	sessions SessionStore
}

var _ SurveyServiceServer = (*SurveyGrpcHandler)(nil)

// NewSurveyGrpcHandler は SurveyGrpcHandler を生成します。
func NewSurveyGrpcHandler(svc survey.UseCase, sessions SessionStore) *SurveyGrpcHandler {
	return &SurveyGrpcHandler{svc: svc, sessions: sessions}
}

// StartSession は新しいセッションをログイン画面の状態で開始します。
func (h *SurveyGrpcHandler) StartSession(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	id, st := h.sessions.Create()
	return newStruct(pageFields(id, h.svc.Current(ctx, st)))
}

// GetState は現在のページを返します。
func (h *SurveyGrpcHandler) GetState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.pageCall(ctx, req, func(st *session.State) (*survey.PageView, error) {
		return h.svc.Current(ctx, st), nil
	})
}

// Login は回答者のメールアドレスでログインします。
func (h *SurveyGrpcHandler) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email := stringField(req, keyEmail)
	return h.pageCall(ctx, req, func(st *session.State) (*survey.PageView, error) {
		return h.svc.Login(ctx, st, survey.LoginInput{Email: email})
	})
}

// GetQuestions は設問画面の表示内容を返します。
func (h *SurveyGrpcHandler) GetQuestions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.questionsCall(ctx, req, func(st *session.State) (*survey.QuestionsView, error) {
		return h.svc.Questions(ctx, st)
	})
}

// SelectNominee は設問への回答を選択します。nominee が空文字列なら未選択に戻します。
func (h *SurveyGrpcHandler) SelectNominee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	questionID, err := intField(req, keyQuestionID)
	if err != nil {
		return nil, err
	}
	in := survey.SelectInput{QuestionID: questionID, Nominee: stringField(req, keyNominee)}
	return h.questionsCall(ctx, req, func(st *session.State) (*survey.QuestionsView, error) {
		return h.svc.Select(ctx, st, in)
	})
}

// Back は設問画面からログイン画面へ戻ります。
func (h *SurveyGrpcHandler) Back(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.pageCall(ctx, req, func(st *session.State) (*survey.PageView, error) {
		return h.svc.Back(ctx, st)
	})
}

// Submit は回答を保存し完了画面へ遷移します。
func (h *SurveyGrpcHandler) Submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := sessionID(req)
	if err != nil {
		return nil, err
	}

	var result *survey.SubmitResult
	err = h.sessions.With(ctx, id, func(st *session.State) error {
		var err error
		result, err = h.svc.Submit(ctx, st)
		return err
	})
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(submitFields(id, result))
}

// Acknowledge は完了画面からログイン画面へ戻り、セッションを初期化します。
func (h *SurveyGrpcHandler) Acknowledge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.pageCall(ctx, req, func(st *session.State) (*survey.PageView, error) {
		return h.svc.Acknowledge(ctx, st)
	})
}

// EndSession はセッションを破棄します。破棄後の ID を使う呼び出しは NotFound になります。
func (h *SurveyGrpcHandler) EndSession(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := sessionID(req)
	if err != nil {
		return nil, err
	}
	h.sessions.Delete(id)
	return newStruct(map[string]any{keySessionID: id, keyEnded: true})
}

func (h *SurveyGrpcHandler) pageCall(ctx context.Context, req *structpb.Struct, fn func(*session.State) (*survey.PageView, error)) (*structpb.Struct, error) {
	id, err := sessionID(req)
	if err != nil {
		return nil, err
	}

	var view *survey.PageView
	err = h.sessions.With(ctx, id, func(st *session.State) error {
		var err error
		view, err = fn(st)
		return err
	})
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(pageFields(id, view))
}

func (h *SurveyGrpcHandler) questionsCall(ctx context.Context, req *structpb.Struct, fn func(*session.State) (*survey.QuestionsView, error)) (*structpb.Struct, error) {
	id, err := sessionID(req)
	if err != nil {
		return nil, err
	}

	var view *survey.QuestionsView
	err = h.sessions.With(ctx, id, func(st *session.State) error {
		var err error
		view, err = fn(st)
		return err
	})
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(questionsFields(id, view))
}
