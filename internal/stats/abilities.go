package stats

import "strings"

// Ability names the score a check is made against.
type Ability string

const (
	Strength     Ability = "STR"
	Dexterity    Ability = "DEX"
	Constitution Ability = "CON"
	Intelligence Ability = "INT"
	Wisdom       Ability = "WIS"
	Charisma     Ability = "CHA"
	Luck         Ability = "LUK"
)

// ParseAbility converts authored text ("dex", "Dexterity") to an Ability.
func ParseAbility(s string) (Ability, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "STR", "STRENGTH":
		return Strength, true
	case "DEX", "DEXTERITY":
		return Dexterity, true
	case "CON", "CONSTITUTION":
		return Constitution, true
	case "INT", "INTELLIGENCE":
		return Intelligence, true
	case "WIS", "WISDOM":
		return Wisdom, true
	case "CHA", "CHARISMA":
		return Charisma, true
	case "LUK", "LUCK":
		return Luck, true
	default:
		return "", false
	}
}

// Modifier calculates the D&D-style modifier using floor division
// Formula: floor((score - 10) / 2)
// Examples: 8=-1, 9=-1, 10=0, 11=0, 12=+1, 14=+2, 16=+3, 18=+4
func Modifier(score int) int {
	diff := score - 10
	if diff >= 0 {
		return diff / 2
	}
	// Floor division for negative numbers
	return (diff - 1) / 2
}

// CheckResult is the outcome of a d20 ability check.
type CheckResult struct {
	Roll     int
	Modifier int
	Total    int
	DC       int
	Success  bool
	Critical bool // natural 20
	Fumble   bool // natural 1
}

// Check rolls d20 + modifier against a difficulty class.
// A natural 20 always succeeds and a natural 1 always fails.
func Check(src Source, modifier, dc int) CheckResult {
	roll := D20(src)
	res := CheckResult{
		Roll:     roll,
		Modifier: modifier,
		Total:    roll + modifier,
		DC:       dc,
		Critical: roll == 20,
		Fumble:   roll == 1,
	}
	switch {
	case res.Critical:
		res.Success = true
	case res.Fumble:
		res.Success = false
	default:
		res.Success = res.Total >= dc
	}
	return res
}
