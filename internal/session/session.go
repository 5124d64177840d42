package session

import (
	"sync"
	"time"

	"github.com/tanyadoc/tanyadoc/internal/ingest"
	"github.com/tanyadoc/tanyadoc/internal/model"
	errs "github.com/tanyadoc/tanyadoc/internal/pkg/errors"
)

// historyDepth bounds the conversation memory: the 6th appended turn
// evicts the oldest.
const historyDepth = 5

// Session is the per-user mutable state: focus file, bounded history and
// the in-flight ingestion task handle.
type Session struct {
	userID string

	mu       sync.Mutex
	focus    string
	history  []model.ConversationTurn
	task     *ingest.Task
	lastSeen time.Time
}

func (s *Session) UserID() string {
	return s.userID
}

func (s *Session) Focus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focus
}

func (s *Session) SetFocus(fileName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focus = fileName
	s.lastSeen = time.Now()
}

// ClearFocus reports whether a focus was actually active.
func (s *Session) ClearFocus() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := s.focus != ""
	s.focus = ""
	s.lastSeen = time.Now()
	return had
}

// History returns a copy; callers never see later mutations.
func (s *Session) History() []model.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ConversationTurn, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) AppendTurn(question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, model.ConversationTurn{Question: question, Answer: answer})
	if len(s.history) > historyDepth {
		s.history = s.history[len(s.history)-historyDepth:]
	}
	s.lastSeen = time.Now()
}

func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.lastSeen = time.Now()
}

// Reset clears focus and history. A live ingestion task survives a reset;
// dropping the handle would orphan a running upload.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focus = ""
	s.history = nil
	s.lastSeen = time.Now()
}

// SetTask installs the ingestion handle. At most one ingestion may run per
// user; a second upload while one is incomplete gets ErrBusy.
func (s *Session) SetTask(task *ingest.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.task != nil && !s.task.Done() {
		return errs.ErrBusy
	}
	s.task = task
	s.lastSeen = time.Now()
	return nil
}

// Task returns the active ingestion handle, or nil when none is running.
func (s *Session) Task() *ingest.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.task == nil || s.task.Done() {
		return nil
	}
	return s.task
}

func (s *Session) ClearTask() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.task = nil
}

func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.task != nil && !s.task.Done() {
		return false
	}
	return s.lastSeen.Before(cutoff)
}

// Manager holds all sessions, keyed by user identity, created on first
// contact.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

func (m *Manager) Get(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok {
		sess = &Session{userID: userID, lastSeen: time.Now()}
		m.sessions[userID] = sess
	}
	return sess
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than the given duration. Sessions
// with a live ingestion task are never swept.
func (m *Manager) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for userID, sess := range m.sessions {
		if sess.idleSince(cutoff) {
			delete(m.sessions, userID)
			removed++
		}
	}
	return removed
}
