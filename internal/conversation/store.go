package conversation

import "sync"

// Store keeps one State per user id. Handlers only ever touch the state of
// the user whose event they process.
type Store struct {
	mu     sync.Mutex
	states map[int64]State
}

func NewStore() *Store {
	return &Store{states: make(map[int64]State)}
}

// Get returns the user's state, Idle for users never seen.
func (s *Store) Get(userID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[userID]
	if !ok {
		return IdleState()
	}
	return state
}

// Set replaces the user's state. A new flow silently overwrites an open one.
func (s *Store) Set(userID int64, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state.Kind == Idle {
		delete(s.states, userID)
		return
	}
	s.states[userID] = state
}

// Clear returns the user to Idle and drops any partial input.
func (s *Store) Clear(userID int64) {
	s.Set(userID, IdleState())
}

// Open returns the number of users with a non-idle state.
func (s *Store) Open() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}
