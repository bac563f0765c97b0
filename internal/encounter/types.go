package encounter

import "time"

// Role is a participant's seat in a session.
type Role string

const (
	RoleCreator  Role = "creator"
	RoleOpponent Role = "opponent"
	RoleNone     Role = ""
)

// Opposite maps a seat to the other one.
func Opposite(r Role) Role {
	if r == RoleCreator {
		return RoleOpponent
	}
	return RoleCreator
}

// Phase is the coarse encounter phase of a single player.
type Phase string

const (
	PhaseManualChoice Phase = "manual_choice"
	PhaseGenerate     Phase = "generate"
	PhaseChoose       Phase = "choose"
	PhaseScore        Phase = "score"
	PhaseFinished     Phase = "finished_game"
)

// ChooseStep is the fine-grained crew-setup sub-phase. It is meaningful
// only while chooseCrew is on and the player's Phase is PhaseChoose.
type ChooseStep string

const (
	StepFaction ChooseStep = "faction"
	StepLeader  ChooseStep = "leader"
	StepCrew    ChooseStep = "crew"
	StepSchemes ChooseStep = "schemes"
	StepNone    ChooseStep = ""
)

// ScenarioParams is the decoded form of a 6-hex-char scenario code.
type ScenarioParams struct {
	DeploymentID int   `json:"deploymentId"`
	StrategyID   int   `json:"strategyId"`
	SchemeIDs    []int `json:"schemeIds"` // exactly 5, sorted ascending, duplicates kept
}

// AppState holds the shared, per-session parameters.
type AppState struct {
	DeploymentID int   `json:"deploymentId"`
	StrategyID   int   `json:"strategyId"`
	SchemeIDs    []int `json:"schemeIds"`
	Round        int   `json:"round"`
	Multiplayer  bool  `json:"multiplayer"`
	ChooseCrew   bool  `json:"chooseCrew"`
}

// Crew holds the write-once crew selections. nil means not chosen yet.
type Crew struct {
	Faction *string `json:"faction"`
	Leader  *string `json:"leader"`
	List    *string `json:"list"`
}

// Scheme is one of a player's two secret objectives.
type Scheme struct {
	ID       int  `json:"id"`
	Revealed bool `json:"revealed"`
	Score    *int `json:"score"`
}

// PlayerState is the per-seat state.
type PlayerState struct {
	Identity      string     `json:"identity"`
	Step          Phase      `json:"step"`
	ChooseStep    ChooseStep `json:"chooseStep"`
	Crew          Crew       `json:"crew"`
	Schemes       []Scheme   `json:"schemes"` // nil until chosen, then exactly 2
	StrategyScore int        `json:"strategyScore"`
}

// TotalScore is the player's victory points so far: strategy score plus every
// scored scheme.
func (p *PlayerState) TotalScore() int {
	total := p.StrategyScore
	for _, s := range p.Schemes {
		if s.Score != nil {
			total += *s.Score
		}
	}
	return total
}

// Seats holds the two participants. Opponent stays nil until a join succeeds.
type Seats struct {
	Creator  *PlayerState `json:"creator"`
	Opponent *PlayerState `json:"opponent"`
}

// GameSession is the root aggregate, the single shared mutable record.
type GameSession struct {
	ID         string    `json:"id"`
	App        AppState  `json:"appState"`
	Players    Seats     `json:"players"`
	IsFinished bool      `json:"isFinished"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Player returns the seat for a role, nil for RoleNone or an empty seat.
func (g *GameSession) Player(r Role) *PlayerState {
	switch r {
	case RoleCreator:
		return g.Players.Creator
	case RoleOpponent:
		return g.Players.Opponent
	}
	return nil
}

// ResolveRole maps a verified identity onto a seat. Identities are opaque;
// only equality matters.
func ResolveRole(identity string, g *GameSession) Role {
	if identity == "" {
		return RoleNone
	}
	if g.Players.Creator != nil && g.Players.Creator.Identity == identity {
		return RoleCreator
	}
	if g.Players.Opponent != nil && g.Players.Opponent.Identity == identity {
		return RoleOpponent
	}
	return RoleNone
}

// refreshFinished recomputes the denormalized IsFinished flag. A session is
// finished once every seated player has ended their own game.
func (g *GameSession) refreshFinished() {
	if g.Players.Creator == nil || g.Players.Creator.Step != PhaseFinished {
		g.IsFinished = false
		return
	}
	if g.Players.Opponent != nil && g.Players.Opponent.Step != PhaseFinished {
		g.IsFinished = false
		return
	}
	g.IsFinished = true
}
