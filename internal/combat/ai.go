package combat

import (
	"github.com/lawnchairsociety/cardcrawl/internal/card"
	"github.com/lawnchairsociety/cardcrawl/internal/stats"
)

// lowHPThreshold is the hp ratio at which LOW_HP actions take priority.
const lowHPThreshold = 0.5

// ChooseAction picks the enemy's next action. It returns false when the
// enemy has no actions and should make a basic attack.
func ChooseAction(actions []card.Action, hpRatio float64, src stats.Source) (card.Action, bool) {
	if len(actions) == 0 {
		return card.Action{}, false
	}
	if hpRatio <= lowHPThreshold {
		if a, ok := pick(actions, src, card.LowHP); ok {
			return a, true
		}
	}
	if a, ok := pick(actions, src, card.OnTurn, card.OnTurnStart, card.Passive); ok {
		return a, true
	}
	return actions[0], true
}

func pick(actions []card.Action, src stats.Source, triggers ...card.Trigger) (card.Action, bool) {
	var eligible []card.Action
	for _, a := range actions {
		for _, t := range triggers {
			if a.Trigger == t {
				eligible = append(eligible, a)
				break
			}
		}
	}
	if len(eligible) == 0 {
		return card.Action{}, false
	}
	return eligible[src.Intn(len(eligible))], true
}

var basicAttack = card.Action{Trigger: card.OnTurn, Effect: card.EffectAttack, Value: 1}
