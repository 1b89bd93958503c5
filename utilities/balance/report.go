package balance

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/dustin/go-humanize"
)

func percent(part, whole int) string {
	if whole == 0 {
		return "-"
	}
	return fmt.Sprintf("%5.1f%%", float64(part)/float64(whole)*100)
}

func perRun(total, runs int) string {
	if runs == 0 {
		return "-"
	}
	return humanize.FormatFloat("#,###.#", float64(total)/float64(runs))
}

// Write prints the report as aligned text.
func (r *Report) Write(w io.Writer) error {
	ew := &errWriter{w: w}
	o := r.Overall
	s := r.Analysis.Summary

	ew.printf("=== Balance Sweep: %s (%s) ===\n\n", r.Name, r.Difficulty)
	ew.printf("Runs:        %s (seed %d)\n", humanize.Comma(int64(o.Runs)), r.Seed)
	ew.printf("Clears:      %s  %s\n", humanize.Comma(int64(o.Clears)), percent(o.Clears, o.Runs))
	ew.printf("Deaths:      %s  %s\n", humanize.Comma(int64(o.Deaths)), percent(o.Deaths, o.Runs))
	ew.printf("Forfeits:    %s  %s\n", humanize.Comma(int64(o.Forfeits)), percent(o.Forfeits, o.Runs))
	ew.printf("Rooms/run:   %s\n", perRun(o.RoomsVisited, o.Runs))
	ew.printf("Turns/run:   %s\n", perRun(o.Turns, o.Runs))
	ew.printf("Dealt/run:   %s\n", perRun(o.DamageDealt, o.Runs))
	ew.printf("Taken/run:   %s\n", perRun(o.DamageTaken, o.Runs))
	ew.printf("Gold earned: %s  spent: %s  banked: %s\n",
		humanize.Comma(int64(o.GoldEarned)), humanize.Comma(int64(o.GoldSpent)), humanize.Comma(int64(r.PersistentGold)))
	ew.printf("\n")

	ew.printf("Style     | Runs     | Clear  | Avg Level\n")
	ew.printf("----------+----------+--------+----------\n")
	for _, st := range r.Styles {
		ew.printf("%-9s | %8s | %s | %9.2f\n",
			st.Playstyle, humanize.Comma(int64(st.Aggregate.Runs)),
			percent(st.Aggregate.Clears, st.Aggregate.Runs), st.AvgLevel)
	}
	ew.printf("\n")

	ew.printf("Final levels:\n")
	for _, lvl := range slices.Sorted(maps.Keys(r.Levels)) {
		ew.printf("  %-5s %s runs\n", humanize.Ordinal(lvl), humanize.Comma(int64(r.Levels[lvl])))
	}
	ew.printf("\n")

	ew.printf("Estimated clear rate:  %5.1f%%\n", s.EstimatedClearRate*100)
	ew.printf("Observed clear rate:   %5.1f%%\n", o.ClearRate()*100)
	ew.printf("Calibrated clear rate: %5.1f%% (weight %.2f)\n", s.CalibratedClearRate*100, s.EmpiricalWeight)
	ew.printf("Gap:                   %+5.1f points\n", r.Gap()*100)
	for _, is := range r.Analysis.Issues {
		ew.printf("  [%s] %s: %s\n", is.Severity, is.Code, is.Message)
	}
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
