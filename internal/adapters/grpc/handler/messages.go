package handler

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ogurasousui/feedback-survey/internal/core/report"
	"github.com/ogurasousui/feedback-survey/internal/core/session"
	"github.com/ogurasousui/feedback-survey/internal/core/survey"
)

// リクエスト・レスポンスのキー
const (
	keySessionID     = "session_id"
	keyPage          = "page"
	keyEmail         = "email"
	keyUserEmail     = "user_email"
	keyUserName      = "user_name"
	keyReset         = "reset"
	keyQuestionID    = "question_id"
	keyNominee       = "nominee"
	keyPassword      = "password"
	keyToken         = "token"
	keyExpiresAt     = "expires_at"
	keyWarning       = "warning"
	keyStatusUpdated = "status_updated"
	keySaved         = "saved"
	keyEnded         = "ended"
)

func stringField(req *structpb.Struct, key string) string {
	v, ok := req.GetFields()[key]
	if !ok {
		return ""
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
	default:
		return ""
	}
}

// intField は数値または数値文字列を整数として取り出します。
func intField(req *structpb.Struct, key string) (int, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		if k.NumberValue != math.Trunc(k.NumberValue) {
			return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", key)
		}
		return int(k.NumberValue), nil
	case *structpb.Value_StringValue:
		n, err := strconv.Atoi(strings.TrimSpace(k.StringValue))
		if err != nil {
			return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", key)
		}
		return n, nil
	default:
		return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", key)
	}
}

func sessionID(req *structpb.Struct) (string, error) {
	id := strings.TrimSpace(stringField(req, keySessionID))
	if id == "" {
		return "", status.Error(codes.InvalidArgument, "session_id is required")
	}
	return id, nil
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return s, nil
}

func pageFields(id string, view *survey.PageView) map[string]any {
	return map[string]any{
		keySessionID: id,
		keyPage:      string(view.Page),
		keyUserEmail: view.UserEmail,
		keyUserName:  view.UserName,
		keyReset:     view.Reset,
	}
}

func questionsFields(id string, view *survey.QuestionsView) map[string]any {
	questions := make([]any, 0, len(view.Questions))
	for _, q := range view.Questions {
		questions = append(questions, map[string]any{
			"position": q.Position,
			"total":    q.Total,
			"id":       q.ID,
			"text":     q.Text,
			"selected": q.Selected,
		})
	}
	nominees := make([]any, 0, len(view.Nominees))
	for _, n := range view.Nominees {
		nominees = append(nominees, n)
	}

	return map[string]any{
		keySessionID:   id,
		keyPage:        string(session.PageQuestions),
		keyUserEmail:   view.UserEmail,
		keyUserName:    view.UserName,
		"questions":    questions,
		"nominees":     nominees,
		"remaining":    view.Remaining,
		"all_answered": view.AllAnswered,
		"can_submit":   view.CanSubmit(),
		keyWarning:     view.Warning(),
	}
}

func submitFields(id string, result *survey.SubmitResult) map[string]any {
	return map[string]any{
		keySessionID:     id,
		keyPage:          string(result.Page),
		keySaved:         result.Saved,
		keyStatusUpdated: result.StatusUpdated,
		keyWarning:       result.Warning,
	}
}

func reportFields(rep *report.Report) map[string]any {
	questions := make([]any, 0, len(rep.Questions))
	for _, q := range rep.Questions {
		tallies := make([]any, 0, len(q.Tallies))
		for _, t := range q.Tallies {
			tallies = append(tallies, map[string]any{
				keyNominee: t.Nominee,
				"votes":    t.Votes,
			})
		}
		questions = append(questions, map[string]any{
			keyQuestionID: q.Question.ID,
			"question":    q.Question.Text,
			"tallies":     tallies,
		})
	}

	employees := make([]any, 0, len(rep.Employees))
	for _, e := range rep.Employees {
		employees = append(employees, map[string]any{
			"name":      e.Name,
			keyEmail:    e.Email,
			"completed": e.Completed,
		})
	}

	return map[string]any{
		"questions":       questions,
		"employees":       employees,
		"total_responses": rep.TotalResponses,
		"has_responses":   rep.HasResponses(),
	}
}

func tokenFields(value string, expiresAt time.Time) map[string]any {
	return map[string]any{
		keyToken:     value,
		keyExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}
}
