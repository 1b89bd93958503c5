package analyzer

import (
	"fmt"
	"math"

	"github.com/lawnchairsociety/cardcrawl/internal/card"
)

// Severity grades an issue. None of them block authoring.
type Severity string

const (
	Info  Severity = "INFO"
	Warn  Severity = "WARN"
	Error Severity = "ERROR"
)

// Issue codes.
const (
	CodeNoSteps        = "NO_STEPS"
	CodeMissingSteps   = "MISSING_STEPS"
	CodeEmptySlot      = "EMPTY_SLOT"
	CodeInvalidSlot    = "INVALID_SLOT"
	CodeEarlySpike     = "EARLY_SPIKE"
	CodeNoLateBoss     = "NO_LATE_BOSS"
	CodeLowRecovery    = "LOW_RECOVERY"
	CodeTrapHeavy      = "TRAP_HEAVY"
	CodeRiskOvershoot  = "RISK_OVERSHOOT"
	CodeRiskUndershoot = "RISK_UNDERSHOOT"
	CodeClearRateLow   = "CLEAR_RATE_LOW"
	CodeClearRateHigh  = "CLEAR_RATE_HIGH"
	CodeTelemetryDrift = "TELEMETRY_DRIFT"
	CodeDrought        = "DROUGHT"
)

// Thresholds.
const (
	spikeMargin      = 25
	riskBand         = 15
	minRecovery      = 0.12
	maxTrapDensity   = 0.3
	lowClearRate     = 0.15
	highClearRate    = 0.92
	maxDrift         = 0.2
	droughtWindow    = 6
	recoveryMinSteps = 5
	bossMinSteps     = 4
)

// Issue is one advisory finding. Step is -1 when it concerns the whole
// layout.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Hint     string   `json:"hint,omitempty"`
	Step     int      `json:"step"`
}

func diagnose(l Layout, res *Result, d card.Difficulty, cfg Config) []Issue {
	issues := structural(l)
	sum := res.Summary
	if sum.FilledSlots == 0 {
		return issues
	}
	n := len(l.Steps)
	third := max(1, n/3)
	target := TargetRisk(d)

	for i := 0; i < third && i < n; i++ {
		if hasCategory(l.Steps[i], card.EnemyBoss) || res.Heatmap[i] >= target+spikeMargin {
			issues = append(issues, Issue{
				Severity: Warn, Code: CodeEarlySpike, Step: i,
				Message: fmt.Sprintf("step %d has risk %.0f in the opening third", i+1, res.Heatmap[i]),
				Hint:    "move the hardest encounters later or soften this one",
			})
			break
		}
	}

	if n >= bossMinSteps {
		late := false
		for i := n - third; i < n; i++ {
			late = late || hasCategory(l.Steps[i], card.EnemyBoss)
		}
		if !late {
			issues = append(issues, Issue{
				Severity: Warn, Code: CodeNoLateBoss, Step: -1,
				Message: "no boss in the final third",
				Hint:    "place an ENEMY_BOSS near the end to give the run a climax",
			})
		}
	}

	if n >= recoveryMinSteps && sum.RecoveryDensity < minRecovery {
		issues = append(issues, Issue{
			Severity: Warn, Code: CodeLowRecovery, Step: -1,
			Message: fmt.Sprintf("recovery density %.0f%% is below %.0f%%", sum.RecoveryDensity*100, minRecovery*100),
			Hint:    "add a rest site or trader",
		})
	}

	if sum.FilledSlots >= 3 && sum.TrapDensity > maxTrapDensity {
		issues = append(issues, Issue{
			Severity: Warn, Code: CodeTrapHeavy, Step: -1,
			Message: fmt.Sprintf("traps make up %.0f%% of rooms", sum.TrapDensity*100),
			Hint:    "replace some traps with events or loot",
		})
	}

	switch {
	case sum.AvgRisk > target+riskBand:
		issues = append(issues, Issue{
			Severity: Warn, Code: CodeRiskOvershoot, Step: -1,
			Message: fmt.Sprintf("average risk %.1f is well above the %s target of %.0f", sum.AvgRisk, d, target),
			Hint:    "lower enemy grades or add recovery",
		})
	case sum.AvgRisk < target-riskBand:
		issues = append(issues, Issue{
			Severity: Info, Code: CodeRiskUndershoot, Step: -1,
			Message: fmt.Sprintf("average risk %.1f is well below the %s target of %.0f", sum.AvgRisk, d, target),
			Hint:    "the dungeon may feel trivial at this tier",
		})
	}

	switch {
	case sum.EstimatedClearRate <= lowClearRate:
		issues = append(issues, Issue{
			Severity: Warn, Code: CodeClearRateLow, Step: -1,
			Message: fmt.Sprintf("estimated clear rate is %.0f%%", sum.EstimatedClearRate*100),
			Hint:    "most heroes will die here",
		})
	case sum.EstimatedClearRate >= highClearRate:
		issues = append(issues, Issue{
			Severity: Info, Code: CodeClearRateHigh, Step: -1,
			Message: fmt.Sprintf("estimated clear rate is %.0f%%", sum.EstimatedClearRate*100),
			Hint:    "almost every hero will clear this",
		})
	}

	if sum.Samples >= cfg.MinSamples && sum.Samples > 0 {
		if drift := sum.EmpiricalClearRate - sum.EstimatedClearRate; math.Abs(drift) > maxDrift {
			issues = append(issues, Issue{
				Severity: Warn, Code: CodeTelemetryDrift, Step: -1,
				Message: fmt.Sprintf("observed clear rate %.0f%% differs from the estimate %.0f%% over %d runs",
					sum.EmpiricalClearRate*100, sum.EstimatedClearRate*100, sum.Samples),
				Hint: "the layout plays differently than its cards suggest",
			})
		}
	}

	return append(issues, droughts(l)...)
}

func structural(l Layout) []Issue {
	var out []Issue
	if len(l.Steps) == 0 {
		out = append(out, Issue{
			Severity: Error, Code: CodeNoSteps, Step: -1,
			Message: "layout has no steps",
			Hint:    "add at least one step",
		})
	}
	if l.RoomCount > len(l.Steps) {
		out = append(out, Issue{
			Severity: Error, Code: CodeMissingSteps, Step: len(l.Steps),
			Message: fmt.Sprintf("layout has %d of %d steps", len(l.Steps), l.RoomCount),
			Hint:    "fill in the remaining steps",
		})
	}
	for i, st := range l.Steps {
		for j, sl := range st.Slots {
			switch {
			case sl.Err != "":
				out = append(out, Issue{
					Severity: Error, Code: CodeInvalidSlot, Step: i,
					Message: fmt.Sprintf("step %d slot %d: %s", i+1, j+1, sl.Err),
					Hint:    "every card needs a category, a name and a description",
				})
			case sl.Card == nil:
				out = append(out, Issue{
					Severity: Error, Code: CodeEmptySlot, Step: i,
					Message: fmt.Sprintf("step %d slot %d is empty", i+1, j+1),
					Hint:    "place a card here",
				})
			}
		}
		if len(st.Slots) == 0 {
			out = append(out, Issue{
				Severity: Error, Code: CodeEmptySlot, Step: i,
				Message: fmt.Sprintf("step %d has no slots", i+1),
				Hint:    "place a card here",
			})
		}
	}
	return out
}

// droughts reports each run of at least droughtWindow steps with no
// supportive room on offer, once at its first step.
func droughts(l Layout) []Issue {
	var out []Issue
	start, length := 0, 0
	flush := func() {
		if length >= droughtWindow {
			out = append(out, Issue{
				Severity: Warn, Code: CodeDrought, Step: start,
				Message: fmt.Sprintf("steps %d to %d offer no loot, shrine, trader or rest", start+1, start+length),
				Hint:    "break the stretch with a supportive room",
			})
		}
	}
	for i, st := range l.Steps {
		if supportive(st) {
			flush()
			length = 0
			continue
		}
		if length == 0 {
			start = i
		}
		length++
	}
	flush()
	return out
}

func supportive(st Step) bool {
	for _, c := range st.filled() {
		if c.Category.IsSupportive() {
			return true
		}
	}
	return false
}

func hasCategory(st Step, cat card.Category) bool {
	for _, c := range st.filled() {
		if c.Category == cat {
			return true
		}
	}
	return false
}
