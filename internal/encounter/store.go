package encounter

import (
	"context"
	"errors"
	"sync"
)

// SessionStore persists game sessions.
//
// Update loads the current record, runs apply against it, and commits the
// result only if apply returned nil. The load-apply-commit sequence must be
// atomic with respect to other Updates of the same id; that is what makes the
// "already chosen" guards on write-once fields race-free.
type SessionStore interface {
	Insert(ctx context.Context, g *GameSession) error
	Find(ctx context.Context, id string) (*GameSession, bool, error)
	Update(ctx context.Context, id string, apply func(*GameSession) error) (*GameSession, error)
}

var errIDTaken = errors.New("session id already taken")

// InMemorySessionStore keeps sessions in a map. Used in tests and good enough
// for a single node; the redis store is the durable one.
type InMemorySessionStore struct {
	mu sync.Mutex
	m  map[string]*GameSession
}

func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{m: make(map[string]*GameSession)}
}

func (s *InMemorySessionStore) Insert(ctx context.Context, g *GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[g.ID]; ok {
		return errIDTaken
	}
	s.m[g.ID] = cloneSession(g)
	return nil
}

func (s *InMemorySessionStore) Find(ctx context.Context, id string) (*GameSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.m[id]
	if !ok {
		return nil, false, nil
	}
	return cloneSession(g), true, nil
}

func (s *InMemorySessionStore) Update(ctx context.Context, id string, apply func(*GameSession) error) (*GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.m[id]
	if !ok {
		return nil, ErrNotFound
	}

	next := cloneSession(g)
	if err := apply(next); err != nil {
		return nil, err // stored record untouched
	}
	s.m[id] = next
	return cloneSession(next), nil
}

// cloneSession deep-copies a session so callers can never mutate the stored
// record outside Update.
func cloneSession(g *GameSession) *GameSession {
	out := *g
	out.App.SchemeIDs = append([]int(nil), g.App.SchemeIDs...)
	if g.Players.Creator != nil {
		p := clonePlayer(g.Players.Creator)
		out.Players.Creator = &p
	}
	if g.Players.Opponent != nil {
		p := clonePlayer(g.Players.Opponent)
		out.Players.Opponent = &p
	}
	return &out
}
