package encounter

import (
	"context"
	"crypto/rand"
	"log/slog"
	"time"
)

// Notifier pushes "something changed" to every observer of a session.
// Fire-and-forget: delivery is best-effort and the service stays correct if
// a notification is lost (clients re-fetch on reconnect).
type Notifier interface {
	Broadcast(sessionID string, actingRole Role)
}

// NopNotifier is used in tests and tools that don't run the ws hub.
type NopNotifier struct{}

func (NopNotifier) Broadcast(string, Role) {}

// Options are the creation-time session flags. Both are fixed for the
// session's lifetime.
type Options struct {
	Multiplayer bool
	ChooseCrew  bool
}

// Service exposes the encounter operations: session lifecycle plus the typed
// command set. Every mutation goes through the store's atomic Update and is
// followed by a broadcast naming the acting role.
type Service struct {
	store  SessionStore
	notify Notifier
	log    *slog.Logger

	// OnFinished runs after the commit that finishes the whole session
	// (both players done). Wired to the result store; nil is fine.
	OnFinished func(ctx context.Context, g *GameSession)
}

func NewService(store SessionStore, notify Notifier, log *slog.Logger) *Service {
	if notify == nil {
		notify = NopNotifier{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, notify: notify, log: log}
}

// Create decodes the scenario code and seeds a new session with the caller
// in the creator seat. Malformed codes are rejected before storage is
// touched.
func (s *Service) Create(ctx context.Context, code string, opts Options, identity string) (*GameSession, error) {
	if identity == "" {
		return nil, ErrUnauthorized
	}
	params, err := DecodeScenarioCode(code)
	if err != nil {
		return nil, err
	}

	g := &GameSession{
		ID: newSessionID(),
		App: AppState{
			DeploymentID: params.DeploymentID,
			StrategyID:   params.StrategyID,
			SchemeIDs:    params.SchemeIDs,
			Round:        1,
			Multiplayer:  opts.Multiplayer,
			ChooseCrew:   opts.ChooseCrew,
		},
		Players:   Seats{Creator: newPlayer(identity, opts.ChooseCrew)},
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.Insert(ctx, g); err != nil {
		return nil, err
	}
	s.log.Info("game created", "gameId", g.ID, "multiplayer", opts.Multiplayer, "chooseCrew", opts.ChooseCrew)
	return g, nil
}

// Join seats the caller as the opponent. A seat is filled at most once and
// the creator can never take the second seat.
func (s *Service) Join(ctx context.Context, id, identity string) (*GameSession, error) {
	if identity == "" {
		return nil, ErrUnauthorized
	}

	g, err := s.store.Update(ctx, id, func(g *GameSession) error {
		if !g.App.Multiplayer {
			return reject("game is single-player")
		}
		if g.Players.Creator.Identity == identity {
			return reject("you are already in this game")
		}
		if g.Players.Opponent != nil {
			return reject("game already has two players")
		}
		g.Players.Opponent = newPlayer(identity, g.App.ChooseCrew)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("opponent joined", "gameId", id)
	s.notify.Broadcast(id, RoleOpponent)
	return g, nil
}

// Apply resolves the caller's role, runs one command atomically against the
// stored record and broadcasts the change. The role check happens inside the
// same Update so it sees the same snapshot the command does.
func (s *Service) Apply(ctx context.Context, id, identity string, cmd Command) (*GameSession, error) {
	var (
		role         Role
		justFinished bool
	)
	g, err := s.store.Update(ctx, id, func(g *GameSession) error {
		role = ResolveRole(identity, g)
		if role == RoleNone {
			return ErrUnauthorized
		}
		wasFinished := g.IsFinished
		if err := cmd.apply(role, g); err != nil {
			return err
		}
		justFinished = !wasFinished && g.IsFinished
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.Broadcast(id, role)
	if justFinished && s.OnFinished != nil {
		s.OnFinished(ctx, g)
	}
	return g, nil
}

// View returns the caller's projection of the session.
func (s *Service) View(ctx context.Context, id, identity string) (PlayerView, error) {
	g, ok, err := s.store.Find(ctx, id)
	if err != nil {
		return PlayerView{}, err
	}
	if !ok {
		return PlayerView{}, ErrNotFound
	}
	return Project(ResolveRole(identity, g), g)
}

// Resolve looks the session up and answers which seat, if any, the identity
// occupies. Used by the ws endpoint before subscribing.
func (s *Service) Resolve(ctx context.Context, id, identity string) (*GameSession, Role, error) {
	g, ok, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, RoleNone, err
	}
	if !ok {
		return nil, RoleNone, ErrNotFound
	}
	return g, ResolveRole(identity, g), nil
}

func newPlayer(identity string, chooseCrew bool) *PlayerState {
	p := &PlayerState{
		Identity: identity,
		Step:     PhaseChoose,
	}
	if chooseCrew {
		p.ChooseStep = StepFaction
	}
	return p
}

func newSessionID() string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 10)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return string(b)
}
