package session

import (
	"strings"
	"sync"

	"docchat/internal/models"
)

// Store keeps per-session chat history in memory. Every session shares
// one system prompt; history holds alternating human and assistant turns.
type Store struct {
	systemPrompt string
	maxTurns     int

	mu       sync.Mutex
	sessions map[string]*state
}

type state struct {
	history []models.Message
	lock    sync.Mutex
}

// NewStore builds a session registry. maxTurns bounds the number of
// human/assistant exchanges kept per session; zero means unbounded.
func NewStore(systemPrompt string, maxTurns int) *Store {
	return &Store{
		systemPrompt: strings.TrimSpace(systemPrompt),
		maxTurns:     maxTurns,
		sessions:     make(map[string]*state),
	}
}

func (s *Store) get(sessionID string) *state {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		st = &state{}
		s.sessions[sessionID] = st
	}
	return st
}

// GetOrCreate ensures the session exists. Creating is idempotent.
func (s *Store) GetOrCreate(sessionID string) {
	s.get(sessionID)
}

// Acquire serializes message handling for one session. The returned
// release must be called when the exchange is complete. If the session is
// removed while waiting, the lock is retaken on the replacement state so
// two exchanges on one id never run unserialized.
func (s *Store) Acquire(sessionID string) (release func()) {
	for {
		st := s.get(sessionID)
		st.lock.Lock()
		s.mu.Lock()
		current := s.sessions[sessionID] == st
		s.mu.Unlock()
		if current {
			return st.lock.Unlock
		}
		st.lock.Unlock()
	}
}

// AppendTurn records one completed exchange and trims history to the
// configured window.
func (s *Store) AppendTurn(sessionID, humanMsg, assistantMsg string) {
	st := s.get(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	st.history = append(st.history,
		models.Message{Role: models.RoleHuman, Content: humanMsg},
		models.Message{Role: models.RoleAssistant, Content: assistantMsg},
	)
	if s.maxTurns > 0 && len(st.history) > 2*s.maxTurns {
		trimmed := st.history[len(st.history)-2*s.maxTurns:]
		st.history = append([]models.Message(nil), trimmed...)
	}
}

// History returns a copy of the session's recorded exchanges.
func (s *Store) History(sessionID string) []models.Message {
	st := s.get(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(st.history))
	copy(out, st.history)
	return out
}

// PromptMessages assembles the full message list for one generation:
// system prompt, prior history, then the pending human message.
func (s *Store) PromptMessages(sessionID, pending string) []models.Message {
	st := s.get(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, 0, len(st.history)+2)
	if s.systemPrompt != "" {
		out = append(out, models.Message{Role: models.RoleSystem, Content: s.systemPrompt})
	}
	out = append(out, st.history...)
	out = append(out, models.Message{Role: models.RoleHuman, Content: pending})
	return out
}

// Clear drops the session's history but keeps the session itself.
func (s *Store) Clear(sessionID string) {
	st := s.get(sessionID)
	s.mu.Lock()
	st.history = nil
	s.mu.Unlock()
}

// Remove forgets the session entirely. It waits for any in-flight
// exchange on the session to finish before dropping it.
func (s *Store) Remove(sessionID string) {
	s.mu.Lock()
	st, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return
	}
	st.lock.Lock()
	s.mu.Lock()
	if s.sessions[sessionID] == st {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	st.lock.Unlock()
}
