package survey

import "errors"

var (
	ErrEmailRequired     = errors.New("survey: email is required")
	ErrInvalidDomain     = errors.New("survey: email domain is not allowed")
	ErrEmployeeNotFound  = errors.New("survey: employee not found")
	ErrAlreadyCompleted  = errors.New("survey: survey already completed")
	ErrSessionExpired    = errors.New("survey: session expired")
	ErrNoQuestions       = errors.New("survey: no questions available")
	ErrNoNominees        = errors.New("survey: no other employees available")
	ErrUnknownQuestion   = errors.New("survey: unknown question")
	ErrInvalidNominee    = errors.New("survey: invalid nominee")
	ErrIncompleteAnswers = errors.New("survey: all questions must be answered")
	ErrSaveFailed        = errors.New("survey: failed to save responses")
)
