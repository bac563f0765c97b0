package encounter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	events []ChangePayload
}

func (n *recordingNotifier) Broadcast(sessionID string, actingRole Role) {
	n.events = append(n.events, ChangePayload{GameID: sessionID, ActingRole: actingRole})
}

func newTestService() (*Service, *recordingNotifier) {
	n := &recordingNotifier{}
	return NewService(NewInMemorySessionStore(), n, nil), n
}

const (
	alice = "alice@example.com"
	bob   = "bob@example.com"
)

func TestService_FullEncounter(t *testing.T) {
	ctx := context.Background()
	svc, notes := newTestService()

	g, err := svc.Create(ctx, "00B4C0", Options{Multiplayer: true, ChooseCrew: true}, alice)
	require.NoError(t, err)
	require.NotEmpty(t, g.ID)
	id := g.ID

	assert.Equal(t, 1, g.App.Round)
	assert.Equal(t, []int{0, 0, 4, 11, 12}, g.App.SchemeIDs)
	assert.Equal(t, PhaseChoose, g.Players.Creator.Step)
	assert.Equal(t, StepFaction, g.Players.Creator.ChooseStep)
	assert.Nil(t, g.Players.Opponent)

	g, err = svc.Join(ctx, id, bob)
	require.NoError(t, err)
	require.NotNil(t, g.Players.Opponent)
	assert.Equal(t, PhaseChoose, g.Players.Opponent.Step)
	assert.Equal(t, StepFaction, g.Players.Opponent.ChooseStep)

	// creator walks the crew steps
	g, err = svc.Apply(ctx, id, alice, ChooseFaction{Value: "Guild"})
	require.NoError(t, err)
	assert.Equal(t, StepLeader, g.Players.Creator.ChooseStep)
	assert.Equal(t, StepFaction, g.Players.Opponent.ChooseStep) // opponent unaffected

	_, err = svc.Apply(ctx, id, alice, ChooseLeader{Value: "Lady Justice"})
	require.NoError(t, err)
	_, err = svc.Apply(ctx, id, alice, ChooseCrewList{Value: "list-a"})
	require.NoError(t, err)
	g, err = svc.Apply(ctx, id, alice, ChooseSchemes{IDs: []int{4, 11}})
	require.NoError(t, err)
	assert.Equal(t, PhaseScore, g.Players.Creator.Step)

	// opponent repeats independently
	_, err = svc.Apply(ctx, id, bob, ChooseFaction{Value: "Outcasts"})
	require.NoError(t, err)
	_, err = svc.Apply(ctx, id, bob, ChooseLeader{Value: "Viktoria"})
	require.NoError(t, err)
	_, err = svc.Apply(ctx, id, bob, ChooseCrewList{Value: "list-b"})
	require.NoError(t, err)
	g, err = svc.Apply(ctx, id, bob, ChooseSchemes{IDs: []int{0, 12}})
	require.NoError(t, err)
	assert.Equal(t, PhaseScore, g.Players.Opponent.Step)

	// round bookkeeping
	g, err = svc.Apply(ctx, id, alice, AdvanceRound{Round: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, g.App.Round)

	_, err = svc.Apply(ctx, id, bob, AdvanceRound{Round: 2})
	require.ErrorIs(t, err, ErrRejected)

	// every successful mutation notified the room, the rejected one did not
	require.NotEmpty(t, notes.events)
	assert.Len(t, notes.events, 10) // join + 4 creator + 4 opponent + round
	assert.Equal(t, ChangePayload{GameID: id, ActingRole: RoleOpponent}, notes.events[0])
	assert.Equal(t, ChangePayload{GameID: id, ActingRole: RoleCreator}, notes.events[1])
}

func TestService_CreateRejectsBadCode(t *testing.T) {
	ctx := context.Background()
	svc, notes := newTestService()

	_, err := svc.Create(ctx, "00000g", Options{}, alice)
	require.ErrorIs(t, err, ErrBadInput)

	_, err = svc.Create(ctx, "12345", Options{}, alice)
	require.ErrorIs(t, err, ErrBadInput)

	_, err = svc.Create(ctx, "003459", Options{}, "")
	require.ErrorIs(t, err, ErrUnauthorized)

	assert.Empty(t, notes.events)
}

func TestService_JoinRules(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	g, err := svc.Create(ctx, "003459", Options{Multiplayer: true}, alice)
	require.NoError(t, err)

	// creator cannot take the second seat
	_, err = svc.Join(ctx, g.ID, alice)
	require.ErrorIs(t, err, ErrRejected)

	_, err = svc.Join(ctx, g.ID, bob)
	require.NoError(t, err)

	// no third participant, no seat replacement
	_, err = svc.Join(ctx, g.ID, "carol@example.com")
	require.ErrorIs(t, err, ErrRejected)
	_, err = svc.Join(ctx, g.ID, bob)
	require.ErrorIs(t, err, ErrRejected)

	// unknown game
	_, err = svc.Join(ctx, "nosuchgame", bob)
	require.ErrorIs(t, err, ErrNotFound)

	// single-player games take no joins at all
	sp, err := svc.Create(ctx, "003459", Options{Multiplayer: false}, alice)
	require.NoError(t, err)
	_, err = svc.Join(ctx, sp.ID, bob)
	require.ErrorIs(t, err, ErrRejected)
}

func TestService_ApplyAuthorization(t *testing.T) {
	ctx := context.Background()
	svc, notes := newTestService()

	g, err := svc.Create(ctx, "003459", Options{Multiplayer: true}, alice)
	require.NoError(t, err)

	_, err = svc.Apply(ctx, g.ID, "carol@example.com", SetStrategyScore{Score: 3})
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Apply(ctx, "nosuchgame", alice, SetStrategyScore{Score: 3})
	require.ErrorIs(t, err, ErrNotFound)

	// neither attempt reached the notifier
	assert.Empty(t, notes.events)

	// bob is not seated until he joins
	_, err = svc.Apply(ctx, g.ID, bob, SetStrategyScore{Score: 3})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestService_OnFinishedFiresOnce(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	var finished []*GameSession
	svc.OnFinished = func(ctx context.Context, g *GameSession) {
		finished = append(finished, g)
	}

	g, err := svc.Create(ctx, "003459", Options{Multiplayer: true}, alice)
	require.NoError(t, err)
	_, err = svc.Join(ctx, g.ID, bob)
	require.NoError(t, err)

	_, err = svc.Apply(ctx, g.ID, alice, EndGame{})
	require.NoError(t, err)
	assert.Empty(t, finished)

	_, err = svc.Apply(ctx, g.ID, bob, EndGame{})
	require.NoError(t, err)
	require.Len(t, finished, 1)
	assert.True(t, finished[0].IsFinished)
}

func TestService_ViewGoesThroughProjector(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	g, err := svc.Create(ctx, "003459", Options{Multiplayer: true}, alice)
	require.NoError(t, err)
	_, err = svc.Join(ctx, g.ID, bob)
	require.NoError(t, err)

	_, err = svc.Apply(ctx, g.ID, bob, ChooseSchemes{IDs: []int{3, 9}})
	require.NoError(t, err)
	_, err = svc.Apply(ctx, g.ID, bob, RevealScheme{SchemeID: 9})
	require.NoError(t, err)

	view, err := svc.View(ctx, g.ID, alice)
	require.NoError(t, err)
	require.Len(t, view.Opponent.Schemes, 1)
	assert.Equal(t, 9, view.Opponent.Schemes[0].ID)

	_, err = svc.View(ctx, g.ID, "carol@example.com")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.View(ctx, "nosuchgame", alice)
	require.ErrorIs(t, err, ErrNotFound)
}
