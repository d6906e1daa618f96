package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// DefaultIdleTimeout は操作がないセッションを破棄するまでの既定時間です。
const DefaultIdleTimeout = 30 * time.Minute

type entry struct {
	mu       sync.Mutex
	state    *State
	lastSeen time.Time
}

// Manager はセッション ID ごとの State を保持します。
type Manager struct {
	mu          sync.Mutex
	entries     map[string]*entry
	idleTimeout time.Duration
	clock       Clock
	newID       func() string
}

// NewManager は Manager を生成します。idleTimeout が 0 以下の場合は既定値を使います。
func NewManager(idleTimeout time.Duration, clock Clock) *Manager {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if clock == nil {
		clock = realClock{}
	}
	return &Manager{
		entries:     make(map[string]*entry),
		idleTimeout: idleTimeout,
		clock:       clock,
		newID:       func() string { return uuid.NewString() },
	}
}

// Create は新しいセッションをログイン画面の状態で作成し、ID を返します。
func (m *Manager) Create() (string, *State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.purgeLocked()

	id := m.newID()
	st := New()
	m.entries[id] = &entry{state: st, lastSeen: m.clock.Now()}
	return id, st.Clone()
}

// With はセッションごとのロックを取得して fn を実行します。
func (m *Manager) With(ctx context.Context, id string, fn func(*State) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e, err := m.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	err = fn(e.state)

	m.mu.Lock()
	e.lastSeen = m.clock.Now()
	m.mu.Unlock()

	return err
}

// Delete はセッションを破棄します。存在しない ID は無視します。
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, strings.TrimSpace(id))
}

func (m *Manager) lookup(id string) (*entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrSessionNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if m.expiredLocked(e) {
		delete(m.entries, id)
		return nil, ErrSessionNotFound
	}
	return e, nil
}

func (m *Manager) purgeLocked() {
	for id, e := range m.entries {
		if m.expiredLocked(e) {
			delete(m.entries, id)
		}
	}
}

func (m *Manager) expiredLocked(e *entry) bool {
	return m.clock.Now().Sub(e.lastSeen) > m.idleTimeout
}
