package session

import "fmt"

// Page は画面の状態です。
type Page string

const (
	PageLogin     Page = "login"
	PageQuestions Page = "questions"
	PageSuccess   Page = "success"
)

// Valid は既知のページかどうかを返します。
func (p Page) Valid() bool {
	switch p {
	case PageLogin, PageQuestions, PageSuccess:
		return true
	default:
		return false
	}
}

// State は 1 セッション分の画面状態・ログインユーザー・回答途中の選択を保持します。
//
// Selections の値が空文字列の設問は未回答として扱います。
type State struct {
	Page       Page
	UserEmail  string
	UserName   string
	Selections map[int]string
}

// New はログイン画面から始まる State を生成します。
func New() *State {
	return &State{Page: PageLogin}
}

// Reset はユーザー情報と選択をすべて破棄してログイン画面に戻します。
func (s *State) Reset() {
	s.Page = PageLogin
	s.UserEmail = ""
	s.UserName = ""
	s.Selections = nil
}

// Normalize は未知のページ状態をログイン画面へ戻します。戻した場合は true を返します。
func (s *State) Normalize() bool {
	if s.Page.Valid() {
		return false
	}
	s.Reset()
	return true
}

// Authenticated はユーザーが紐づいているかどうかを返します。
func (s *State) Authenticated() bool {
	return s.UserEmail != ""
}

// Authenticate はログイン成功時に login から questions へ遷移します。
func (s *State) Authenticate(email, name string) error {
	if s.Page != PageLogin {
		return s.transitionError(PageQuestions)
	}
	s.Page = PageQuestions
	s.UserEmail = email
	s.UserName = name
	s.Selections = make(map[int]string)
	return nil
}

// EnsureSelections は設問 ID ごとの選択枠を未回答で用意します。既存の選択は保持します。
func (s *State) EnsureSelections(questionIDs []int) {
	if s.Selections == nil {
		s.Selections = make(map[int]string, len(questionIDs))
	}
	for _, id := range questionIDs {
		if _, ok := s.Selections[id]; !ok {
			s.Selections[id] = ""
		}
	}
}

// Select は設問の選択を記録します。nominee が空文字列なら未回答に戻します。
func (s *State) Select(questionID int, nominee string) {
	if s.Selections == nil {
		s.Selections = make(map[int]string)
	}
	s.Selections[questionID] = nominee
}

// Selection は設問の現在の選択を返します。
func (s *State) Selection(questionID int) (string, bool) {
	v := s.Selections[questionID]
	return v, v != ""
}

// Remaining は指定した設問のうち未回答の数を返します。
func (s *State) Remaining(questionIDs []int) int {
	n := 0
	for _, id := range questionIDs {
		if _, ok := s.Selection(id); !ok {
			n++
		}
	}
	return n
}

// AllAnswered はすべての設問が回答済みかどうかを返します。
func (s *State) AllAnswered(questionIDs []int) bool {
	return len(questionIDs) > 0 && s.Remaining(questionIDs) == 0
}

// Back は questions からログイン画面へ戻り、選択とユーザー情報を破棄します。
func (s *State) Back() error {
	if s.Page != PageQuestions {
		return s.transitionError(PageLogin)
	}
	s.Reset()
	return nil
}

// Complete はすべて回答済みの場合に questions から success へ遷移します。
func (s *State) Complete(questionIDs []int) error {
	if s.Page != PageQuestions {
		return s.transitionError(PageSuccess)
	}
	if !s.AllAnswered(questionIDs) {
		return fmt.Errorf("%d remaining: %w", s.Remaining(questionIDs), ErrIncomplete)
	}
	s.Page = PageSuccess
	return nil
}

// Acknowledge は success からログイン画面へ戻り、セッションを初期化します。
func (s *State) Acknowledge() error {
	if s.Page != PageSuccess {
		return s.transitionError(PageLogin)
	}
	s.Reset()
	return nil
}

// Clone は State の複製を返します。
func (s *State) Clone() *State {
	clone := *s
	if s.Selections != nil {
		clone.Selections = make(map[int]string, len(s.Selections))
		for k, v := range s.Selections {
			clone.Selections[k] = v
		}
	}
	return &clone
}

func (s *State) transitionError(to Page) error {
	return fmt.Errorf("%s -> %s: %w", s.Page, to, ErrInvalidTransition)
}
