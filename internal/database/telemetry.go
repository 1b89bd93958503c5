package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lawnchairsociety/cardcrawl/internal/logger"
	"github.com/lawnchairsociety/cardcrawl/internal/run"
)

const insertTelemetry = `
	INSERT INTO dungeon_telemetry (
		dungeon_id, run_id, profile_id, outcome, earned_gold, gold_delta, level,
		duration_ms, rooms_visited, damage_dealt, damage_taken, gold_earned,
		gold_spent, turns, counters
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// AppendTelemetry records one settled run against a dungeon. Recording the
// same run id twice is a no-op.
func (d *Database) AppendTelemetry(ctx context.Context, dungeonID string, s run.Settlement) error {
	counters, err := json.Marshal(s.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to encode telemetry: %w", err)
	}
	t := s.Telemetry
	id, err := d.qb.InsertID(ctx, d.db, insertTelemetry, "id",
		dungeonID, s.RunID, s.ProfileID, string(s.Outcome), s.EarnedGold, s.PersistentGoldDelta, s.Level,
		s.Duration.Milliseconds(), t.RoomsVisited, t.DamageDealt, t.DamageTaken, t.GoldEarned,
		t.GoldSpent, t.Turns, string(counters),
	)
	if d.dialect.IsDuplicateKeyError(err) {
		logger.Debug("Telemetry already recorded", "run_id", s.RunID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to append telemetry: %w", err)
	}
	logger.Debug("Telemetry recorded", "dungeon_id", dungeonID, "run_id", s.RunID, "row", id)
	return nil
}

// LoadAggregate sums every recorded run of a dungeon.
func (d *Database) LoadAggregate(ctx context.Context, dungeonID string) (*run.Aggregate, error) {
	query := d.qb.Build(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN outcome = 'CLEARED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'DEAD' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'FORFEITED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(rooms_visited), 0),
			COALESCE(SUM(damage_dealt), 0),
			COALESCE(SUM(damage_taken), 0),
			COALESCE(SUM(gold_earned), 0),
			COALESCE(SUM(gold_spent), 0),
			COALESCE(SUM(turns), 0),
			COALESCE(SUM(duration_ms), 0)
		FROM dungeon_telemetry WHERE dungeon_id = ?`)

	var a run.Aggregate
	var ms int64
	err := d.db.QueryRowContext(ctx, query, dungeonID).Scan(
		&a.Runs, &a.Clears, &a.Deaths, &a.Forfeits, &a.RoomsVisited,
		&a.DamageDealt, &a.DamageTaken, &a.GoldEarned, &a.GoldSpent, &a.Turns, &ms,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aggregate: %w", err)
	}
	a.Seconds = float64(ms) / 1000
	return &a, nil
}

// RecentRuns returns the latest settlements of a dungeon, newest first.
func (d *Database) RecentRuns(ctx context.Context, dungeonID string, limit int) ([]run.Settlement, error) {
	query := d.qb.Build(`
		SELECT run_id, profile_id, outcome, earned_gold, gold_delta, level, duration_ms, counters
		FROM dungeon_telemetry WHERE dungeon_id = ?
		ORDER BY id DESC LIMIT ?`)
	rows, err := d.db.QueryContext(ctx, query, dungeonID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []run.Settlement
	for rows.Next() {
		s := run.Settlement{DungeonID: dungeonID}
		var outcome, counters string
		var ms int64
		if err := rows.Scan(&s.RunID, &s.ProfileID, &outcome, &s.EarnedGold, &s.PersistentGoldDelta, &s.Level, &ms, &counters); err != nil {
			return nil, err
		}
		s.Outcome = run.Outcome(outcome)
		s.Duration = time.Duration(ms) * time.Millisecond
		if err := json.Unmarshal([]byte(counters), &s.Telemetry); err != nil {
			return nil, fmt.Errorf("run %s counters: %w", s.RunID, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
