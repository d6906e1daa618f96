package handler

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ogurasousui/feedback-survey/internal/core/admin"
	"github.com/ogurasousui/feedback-survey/internal/core/report"
	"github.com/ogurasousui/feedback-survey/internal/core/session"
)

const (
	authorizationHeader = "authorization"
	bearerPrefix        = "bearer "
)

// AdminGrpcHandler は AdminService の gRPC 実装です。
type AdminGrpcHandler struct {
	auth     admin.UseCase
	reports  report.UseCase
	sessions SessionStore
}

var _ AdminServiceServer = (*AdminGrpcHandler)(nil)

// NewAdminGrpcHandler は AdminGrpcHandler を生成します。
func NewAdminGrpcHandler(auth admin.UseCase, reports report.UseCase, sessions SessionStore) *AdminGrpcHandler {
	return &AdminGrpcHandler{auth: auth, reports: reports, sessions: sessions}
}

// Login は管理者パスワードを検証しトークンを返します。
func (h *AdminGrpcHandler) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	password := stringField(req, keyPassword)
	if password == "" {
		return nil, status.Error(codes.InvalidArgument, "password is required")
	}

	tok, err := h.auth.Login(ctx, password)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(tokenFields(tok.Value, tok.ExpiresAt))
}

// GetReport は authorization メタデータのトークンを検証し、集計結果を返します。
func (h *AdminGrpcHandler) GetReport(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := h.auth.Authorize(ctx, bearerToken(ctx)); err != nil {
		return nil, toStatusError(err)
	}

	rep, err := h.reports.Build(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(reportFields(rep))
}

// Logout は呼び出し元のセッションを初期化してログイン画面へ戻します。
func (h *AdminGrpcHandler) Logout(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := sessionID(req)
	if err != nil {
		return nil, err
	}

	var page session.Page
	err = h.sessions.With(ctx, id, func(st *session.State) error {
		st.Reset()
		page = st.Page
		return nil
	})
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(map[string]any{
		keySessionID: id,
		keyPage:      string(page),
	})
}

func bearerToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, v := range md.Get(authorizationHeader) {
		v = strings.TrimSpace(v)
		if len(v) > len(bearerPrefix) && strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
			return strings.TrimSpace(v[len(bearerPrefix):])
		}
	}
	return ""
}
