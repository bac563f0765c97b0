package encounter

// PlayerView is the filtered state one role is entitled to see. Own state is
// verbatim; from the opponent only public fields plus revealed schemes.
type PlayerView struct {
	GameID   string       `json:"gameId"`
	You      Role         `json:"you"`
	App      AppState     `json:"appState"`
	Me       PlayerState  `json:"me"`
	Opponent OpponentView `json:"opponent"`
	Finished bool         `json:"finished"`
}

// OpponentView hides the opponent's unrevealed schemes. When no opponent has
// joined (or the game is single-player) it is the zero value, the same shape
// as an opponent who has chosen nothing yet.
type OpponentView struct {
	Joined        bool       `json:"joined"`
	Step          Phase      `json:"step"`
	ChooseStep    ChooseStep `json:"chooseStep"`
	Crew          Crew       `json:"crew"`
	Schemes       []Scheme   `json:"schemes"` // revealed entries only
	StrategyScore int        `json:"strategyScore"`
}

// Project builds the view for one seat. Secrecy lives here and nowhere else:
// unrevealed opponent schemes are absent from the result, not null-masked.
// A player who already finished their game gets a rejection instead of live
// state.
func Project(role Role, g *GameSession) (PlayerView, error) {
	me := g.Player(role)
	if me == nil {
		return PlayerView{}, ErrUnauthorized
	}
	if me.Step == PhaseFinished {
		return PlayerView{}, reject("game already finished")
	}

	v := PlayerView{
		GameID:   g.ID,
		You:      role,
		App:      g.App,
		Me:       clonePlayer(me),
		Finished: g.IsFinished,
	}

	opp := g.Player(Opposite(role))
	if !g.App.Multiplayer || opp == nil {
		return v, nil
	}

	v.Opponent = OpponentView{
		Joined:        true,
		Step:          opp.Step,
		ChooseStep:    opp.ChooseStep,
		Crew:          cloneCrew(opp.Crew), // crew selections are public
		StrategyScore: opp.StrategyScore,
	}
	for _, s := range opp.Schemes {
		if !s.Revealed {
			continue
		}
		v.Opponent.Schemes = append(v.Opponent.Schemes, cloneScheme(s))
	}
	return v, nil
}

// The clones keep callers from mutating the stored record through the view.

func clonePlayer(p *PlayerState) PlayerState {
	out := *p
	out.Crew = cloneCrew(p.Crew)
	if p.Schemes != nil {
		out.Schemes = make([]Scheme, len(p.Schemes))
		for i, s := range p.Schemes {
			out.Schemes[i] = cloneScheme(s)
		}
	}
	return out
}

func cloneCrew(c Crew) Crew {
	return Crew{
		Faction: cloneStr(c.Faction),
		Leader:  cloneStr(c.Leader),
		List:    cloneStr(c.List),
	}
}

func cloneScheme(s Scheme) Scheme {
	out := s
	if s.Score != nil {
		v := *s.Score
		out.Score = &v
	}
	return out
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
