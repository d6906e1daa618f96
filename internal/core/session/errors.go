package session

import "errors"

var (
	// ErrInvalidTransition は現在のページから許可されていない遷移を要求した場合に返却されます。
	ErrInvalidTransition = errors.New("session: invalid page transition")
	// ErrIncomplete は未回答の設問が残っている場合に返却されます。
	ErrIncomplete = errors.New("session: unanswered questions remain")
	// ErrSessionNotFound はセッションが存在しないか期限切れの場合に返却されます。
	ErrSessionNotFound = errors.New("session: not found")
)
