package run

import (
	"context"
	"errors"
	"time"

	"github.com/lawnchairsociety/cardcrawl/internal/logger"
	"github.com/lawnchairsociety/cardcrawl/internal/stats"
)

// ErrNoJudge is returned by judges that decline to rule.
var ErrNoJudge = errors.New("no external judge available")

// CheckRequest describes one ability check.
type CheckRequest struct {
	RunID    string
	Room     int
	CardName string
	Stat     stats.Ability
	DC       int
	Modifier int
	Choice   string
}

// Verdict is the outcome of a check.
type Verdict struct {
	Success   bool   `json:"success"`
	Roll      int    `json:"roll"`
	Total     int    `json:"total"`
	Narrative string `json:"narrative,omitempty"`
	Source    string `json:"source"`
}

// Verdict sources
const (
	SourceExternal = "external"
	SourceLocal    = "local"
)

// Judge adjudicates checks outside the simulation, for example through a
// generative storyteller. Any error falls back to the local dice rule.
type Judge interface {
	Judge(ctx context.Context, req CheckRequest) (Verdict, error)
}

// JudgeFunc adapts a function to Judge.
type JudgeFunc func(ctx context.Context, req CheckRequest) (Verdict, error)

// Judge calls f.
func (f JudgeFunc) Judge(ctx context.Context, req CheckRequest) (Verdict, error) {
	return f(ctx, req)
}

// LocalJudge rolls d20 + modifier against the DC.
func LocalJudge(src stats.Source, req CheckRequest) Verdict {
	res := stats.Check(src, req.Modifier, req.DC)
	return Verdict{Success: res.Success, Roll: res.Roll, Total: res.Total, Source: SourceLocal}
}

// adjudicate asks the external judge first, bounded by timeout, and falls
// through to the local rule on any failure. The local rule draws from src
// only when it is used. fellBack reports an external failure.
func adjudicate(ctx context.Context, j Judge, timeout time.Duration, src stats.Source, req CheckRequest) (v Verdict, fellBack bool) {
	if j != nil {
		jctx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			jctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		ext, err := j.Judge(jctx, req)
		if err == nil {
			ext.Source = SourceExternal
			return ext, false
		}
		fellBack = true
		logger.Warning("External judge failed, using local roll",
			"run_id", req.RunID,
			"room", req.Room,
			"error", err)
	}
	return LocalJudge(src, req), fellBack
}
