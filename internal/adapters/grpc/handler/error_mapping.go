package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ogurasousui/feedback-survey/internal/core/admin"
	"github.com/ogurasousui/feedback-survey/internal/core/session"
	"github.com/ogurasousui/feedback-survey/internal/core/survey"
	"github.com/ogurasousui/feedback-survey/internal/core/tabular"
)

func toStatusError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case survey.IsValidation(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, survey.ErrAlreadyCompleted),
		errors.Is(err, survey.ErrSessionExpired),
		errors.Is(err, survey.ErrNoQuestions),
		errors.Is(err, survey.ErrNoNominees),
		errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, session.ErrIncomplete):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, survey.ErrEmployeeNotFound),
		errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, tabular.ErrTableNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, admin.ErrInvalidCredentials),
		errors.Is(err, admin.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, admin.ErrDisabled):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, tabular.ErrUnavailable), errors.Is(err, survey.ErrSaveFailed):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
