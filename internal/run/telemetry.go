package run

import "time"

// Telemetry are per-run counters. Every field only grows.
type Telemetry struct {
	StartedAt       time.Time `json:"started_at"`
	RoomsVisited    int       `json:"rooms_visited"`
	CombatsStarted  int       `json:"combats_started"`
	CombatsWon      int       `json:"combats_won"`
	CombatsFled     int       `json:"combats_fled"`
	Turns           int       `json:"turns"`
	DamageDealt     int       `json:"damage_dealt"`
	DamageTaken     int       `json:"damage_taken"`
	Crits           int       `json:"crits"`
	SkillsUsed      int       `json:"skills_used"`
	ItemsUsed       int       `json:"items_used"`
	ItemsBought     int       `json:"items_bought"`
	GoldEarned      int       `json:"gold_earned"`
	GoldSpent       int       `json:"gold_spent"`
	DebtPaid        int       `json:"debt_paid"`
	XPEarned        int       `json:"xp_earned"`
	LevelUps        int       `json:"level_ups"`
	TrapsTriggered  int       `json:"traps_triggered"`
	TrapsAvoided    int       `json:"traps_avoided"`
	ChecksJudged    int       `json:"checks_judged"`
	JudgeFallbacks  int       `json:"judge_fallbacks"`
	ShrinesUsed     int       `json:"shrines_used"`
	RestsTaken      int       `json:"rests_taken"`
	QuestsCompleted int       `json:"quests_completed"`
	MimicsFound     int       `json:"mimics_found"`
	InvariantClamps int       `json:"invariant_clamps"`
}

// Aggregate sums settled runs of one dungeon.
type Aggregate struct {
	Runs         int `json:"runs"`
	Clears       int `json:"clears"`
	Deaths       int `json:"deaths"`
	Forfeits     int `json:"forfeits"`
	RoomsVisited int `json:"rooms_visited"`
	DamageDealt  int `json:"damage_dealt"`
	DamageTaken  int `json:"damage_taken"`
	GoldEarned   int `json:"gold_earned"`
	GoldSpent    int `json:"gold_spent"`
	Turns        int `json:"turns"`
	// Seconds is total wall-clock play time.
	Seconds float64 `json:"seconds"`
}

// Add folds one settlement into the aggregate.
func (a *Aggregate) Add(s Settlement) {
	a.Runs++
	switch s.Outcome {
	case OutcomeCleared:
		a.Clears++
	case OutcomeDead:
		a.Deaths++
	case OutcomeForfeited:
		a.Forfeits++
	}
	t := s.Telemetry
	a.RoomsVisited += t.RoomsVisited
	a.DamageDealt += t.DamageDealt
	a.DamageTaken += t.DamageTaken
	a.GoldEarned += t.GoldEarned
	a.GoldSpent += t.GoldSpent
	a.Turns += t.Turns
	a.Seconds += s.Duration.Seconds()
}

// Merge folds another aggregate in.
func (a *Aggregate) Merge(b Aggregate) {
	a.Runs += b.Runs
	a.Clears += b.Clears
	a.Deaths += b.Deaths
	a.Forfeits += b.Forfeits
	a.RoomsVisited += b.RoomsVisited
	a.DamageDealt += b.DamageDealt
	a.DamageTaken += b.DamageTaken
	a.GoldEarned += b.GoldEarned
	a.GoldSpent += b.GoldSpent
	a.Turns += b.Turns
	a.Seconds += b.Seconds
}

// Failures counts runs that did not clear.
func (a *Aggregate) Failures() int {
	return a.Deaths + a.Forfeits
}

// ClearRate is the observed clear fraction, or 0 with no runs.
func (a *Aggregate) ClearRate() float64 {
	if a.Runs == 0 {
		return 0
	}
	return float64(a.Clears) / float64(a.Runs)
}
