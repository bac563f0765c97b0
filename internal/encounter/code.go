package encounter

import "sort"

// DecodeScenarioCode parses a 6-hex-char scenario code.
//
// The first digit packs deployment and strategy (v/4 and v%4), the remaining
// five are scheme ids. Scheme ids must be <= 12; duplicates are allowed and
// kept. The result list is sorted ascending. Any violation yields ErrBadInput
// with no partial result.
func DecodeScenarioCode(code string) (ScenarioParams, error) {
	if len(code) != 6 {
		return ScenarioParams{}, badInput("scenario code must be 6 hex characters")
	}

	head, ok := hexDigit(code[0])
	if !ok {
		return ScenarioParams{}, badInput("scenario code is not valid hex")
	}

	p := ScenarioParams{
		DeploymentID: head / 4,
		StrategyID:   head % 4,
		SchemeIDs:    make([]int, 0, 5),
	}
	// In range by construction, but keep the guard: the split must never
	// produce an id outside [0,3].
	if p.DeploymentID < 0 || p.DeploymentID > 3 || p.StrategyID < 0 || p.StrategyID > 3 {
		return ScenarioParams{}, badInput("scenario code out of range")
	}

	for i := 1; i < 6; i++ {
		d, ok := hexDigit(code[i])
		if !ok {
			return ScenarioParams{}, badInput("scenario code is not valid hex")
		}
		if d > 12 {
			return ScenarioParams{}, badInput("scheme id %d out of range (max 12)", d)
		}
		p.SchemeIDs = append(p.SchemeIDs, d)
	}
	sort.Ints(p.SchemeIDs)

	return p, nil
}

func hexDigit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}
