package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lawnchairsociety/cardcrawl/internal/logger"
	"github.com/lawnchairsociety/cardcrawl/internal/run"
)

// CopyStats counts the rows a copy moved.
type CopyStats struct {
	Dungeons int
	Profiles int
	Runs     int
}

// Total is the number of rows copied.
func (s CopyStats) Total() int { return s.Dungeons + s.Profiles + s.Runs }

// CopyTo copies every dungeon, profile and telemetry row into dst, which
// is typically a PostgreSQL database being seeded from SQLite. Rows already
// in dst are overwritten; telemetry already recorded is skipped. With dryRun
// set, rows are counted but nothing is written.
func (d *Database) CopyTo(ctx context.Context, dst *Database, dryRun bool) (CopyStats, error) {
	var stats CopyStats

	dungeons, err := d.ListDungeons(ctx)
	if err != nil {
		return stats, err
	}
	for _, s := range dungeons {
		rec, err := d.LoadDungeon(ctx, s.ID)
		if err != nil {
			return stats, err
		}
		if !dryRun {
			if err := dst.SaveDungeon(ctx, rec.Document); err != nil {
				return stats, fmt.Errorf("dungeon %s: %w", s.ID, err)
			}
		}
		stats.Dungeons++
	}

	profiles, err := d.listProfiles(ctx)
	if err != nil {
		return stats, err
	}
	for _, p := range profiles {
		if !dryRun {
			if err := dst.setProfileGold(ctx, p.ID, p.Gold); err != nil {
				return stats, fmt.Errorf("profile %s: %w", p.ID, err)
			}
		}
		stats.Profiles++
	}

	runs, err := d.allTelemetry(ctx)
	if err != nil {
		return stats, err
	}
	for _, s := range runs {
		if !dryRun {
			if err := dst.AppendTelemetry(ctx, s.DungeonID, s); err != nil {
				return stats, err
			}
		}
		stats.Runs++
	}

	logger.Info("Database copied",
		"dungeons", stats.Dungeons,
		"profiles", stats.Profiles,
		"runs", stats.Runs,
		"dry_run", dryRun)
	return stats, nil
}

func (d *Database) listProfiles(ctx context.Context) ([]run.Profile, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT id, gold FROM profiles ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var out []run.Profile
	for rows.Next() {
		var p run.Profile
		if err := rows.Scan(&p.ID, &p.Gold); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *Database) setProfileGold(ctx context.Context, id string, gold int) error {
	query := d.qb.Build(`
		INSERT INTO profiles (id, gold) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET gold = excluded.gold, updated_at = CURRENT_TIMESTAMP
	`)
	_, err := d.db.ExecContext(ctx, query, id, gold)
	return err
}

func (d *Database) allTelemetry(ctx context.Context) ([]run.Settlement, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT dungeon_id, run_id, profile_id, outcome, earned_gold, gold_delta, level, duration_ms, counters
		FROM dungeon_telemetry ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list telemetry: %w", err)
	}
	defer rows.Close()

	var out []run.Settlement
	for rows.Next() {
		var s run.Settlement
		var outcome, counters string
		var ms int64
		if err := rows.Scan(&s.DungeonID, &s.RunID, &s.ProfileID, &outcome, &s.EarnedGold, &s.PersistentGoldDelta, &s.Level, &ms, &counters); err != nil {
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
