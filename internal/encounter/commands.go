package encounter

// Command is a single player action against the session aggregate.
//
// apply validates its preconditions against the current record and performs
// one targeted mutation. It runs inside SessionStore.Update, so the
// validate-then-write pair is atomic: a concurrent second writer of a
// write-once field sees it already populated and is rejected instead of
// silently overwriting.
type Command interface {
	apply(role Role, g *GameSession) error
}

// --- crew setup -------------------------------------------------------------

type ChooseFaction struct {
	Value string
}

func (c ChooseFaction) apply(role Role, g *GameSession) error {
	p, err := actingPlayer(role, g)
	if err != nil {
		return err
	}
	if c.Value == "" {
		return badInput("faction is required")
	}
	if !g.App.ChooseCrew {
		return reject("crew selection is disabled for this game")
	}
	if p.Crew.Faction != nil {
		return reject("faction already chosen")
	}
	v := c.Value
	p.Crew.Faction = &v
	p.ChooseStep = StepLeader
	return nil
}

type ChooseLeader struct {
	Value string
}

func (c ChooseLeader) apply(role Role, g *GameSession) error {
	p, err := actingPlayer(role, g)
	if err != nil {
		return err
	}
	if c.Value == "" {
		return badInput("leader is required")
	}
	if !g.App.ChooseCrew {
		return reject("crew selection is disabled for this game")
	}
	if p.Crew.Leader != nil {
		return reject("leader already chosen")
	}
	v := c.Value
	p.Crew.Leader = &v
	p.ChooseStep = StepCrew
	return nil
}

type ChooseCrewList struct {
	Value string
}

func (c ChooseCrewList) apply(role Role, g *GameSession) error {
	p, err := actingPlayer(role, g)
	if err != nil {
		return err
	}
	if c.Value == "" {
		return badInput("crew list is required")
	}
	if !g.App.ChooseCrew {
		return reject("crew selection is disabled for this game")
	}
	if p.Crew.List != nil {
		return reject("crew list already chosen")
	}
	v := c.Value
	p.Crew.List = &v
	p.ChooseStep = StepSchemes
	return nil
}

// ChooseSchemes locks in the player's two secret objectives and moves the
// player to the scoring phase. Unlike the crew fields it applies in both
// game modes; with chooseCrew off it is the only choose step.
type ChooseSchemes struct {
	IDs []int
}

func (c ChooseSchemes) apply(role Role, g *GameSession) error {
	p, err := actingPlayer(role, g)
	if err != nil {
		return err
	}
	if len(c.IDs) != 2 {
		return badInput("exactly 2 schemes required")
	}
	if p.Schemes != nil {
		return reject("schemes already chosen")
	}
	p.Schemes = []Scheme{
		{ID: c.IDs[0]},
		{ID: c.IDs[1]},
	}
	p.Step = PhaseScore
	p.ChooseStep = StepNone
	return nil
}

// --- round / scoring --------------------------------------------------------

// AdvanceRound moves the shared round counter forward by exactly one. The
// requested value must be current+1; anything else is rejected outright, no
// clamping. Completion of the previous round is deliberately not checked.
type AdvanceRound struct {
	Round int
}

func (c AdvanceRound) apply(role Role, g *GameSession) error {
	if _, err := actingPlayer(role, g); err != nil {
		return err
	}
	if c.Round != g.App.Round+1 {
		return reject("incorrect round")
	}
	g.App.Round = c.Round
	return nil
}

// SetStrategyScore overwrites the player's strategy score. Re-scoring is
// allowed, so there is no already-set guard here.
type SetStrategyScore struct {
	Score int
}

func (c SetStrategyScore) apply(role Role, g *GameSession) error {
	p, err := actingPlayer(role, g)
	if err != nil {
		return err
	}
	p.StrategyScore = c.Score
	return nil
}

type RevealScheme struct {
	SchemeID int
}

func (c RevealScheme) apply(role Role, g *GameSession) error {
	p, err := actingPlayer(role, g)
	if err != nil {
		return err
	}
	s := findScheme(p, c.SchemeID)
	if s == nil {
		return reject("unknown scheme id")
	}
	s.Revealed = true
	return nil
}

// ScoreScheme sets the score of one scheme. Revealing and scoring are
// independent bits; neither requires the other.
type ScoreScheme struct {
	SchemeID int
	Score    int
}

func (c ScoreScheme) apply(role Role, g *GameSession) error {
	p, err := actingPlayer(role, g)
	if err != nil {
		return err
	}
	s := findScheme(p, c.SchemeID)
	if s == nil {
		return reject("unknown scheme id")
	}
	v := c.Score
	s.Score = &v
	return nil
}

// EndGame ends the acting player's own participation. The session is fully
// finished only once every seated player has ended theirs.
type EndGame struct{}

func (c EndGame) apply(role Role, g *GameSession) error {
	p, err := actingPlayer(role, g)
	if err != nil {
		return err
	}
	p.Step = PhaseFinished
	p.ChooseStep = StepNone
	g.refreshFinished()
	return nil
}

// --- helpers ----------------------------------------------------------------

func actingPlayer(role Role, g *GameSession) (*PlayerState, error) {
	p := g.Player(role)
	if p == nil {
		return nil, ErrUnauthorized
	}
	if p.Step == PhaseFinished {
		return nil, reject("game already finished")
	}
	return p, nil
}

func findScheme(p *PlayerState, id int) *Scheme {
	for i := range p.Schemes {
		if p.Schemes[i].ID == id {
			return &p.Schemes[i]
		}
	}
	return nil
}
