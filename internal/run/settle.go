package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lawnchairsociety/cardcrawl/internal/dungeon"
	"github.com/lawnchairsociety/cardcrawl/internal/logger"
)

var (
	ErrNotSettled     = errors.New("run has not ended")
	ErrAlreadyFlushed = errors.New("run settlement already written")
	ErrNoStore        = errors.New("no store configured")
)

// Outcome is how a run ended.
type Outcome string

const (
	OutcomeCleared   Outcome = "CLEARED"
	OutcomeDead      Outcome = "DEAD"
	OutcomeForfeited Outcome = "FORFEITED"
)

// Settlement is the single result a finished run emits.
// PersistentGoldDelta is what the profile gains and is never negative.
type Settlement struct {
	RunID               string        `json:"run_id"`
	DungeonID           string        `json:"dungeon_id"`
	ProfileID           string        `json:"profile_id"`
	Outcome             Outcome       `json:"outcome"`
	PersistentGoldDelta int           `json:"persistent_gold_delta"`
	EarnedGold          int           `json:"earned_gold"`
	Level               int           `json:"level"`
	Duration            time.Duration `json:"duration"`
	Telemetry           Telemetry     `json:"telemetry"`
}

// Profile is the persistent ledger of one player.
type Profile struct {
	ID   string `json:"id"`
	Gold int    `json:"gold"`
}

// DungeonRecord is a stored dungeon.
type DungeonRecord struct {
	ID       string
	Name     string
	Document *dungeon.Document
}

// Store is the persistence boundary. The simulation only reads a dungeon
// and a profile, and at run end writes one gold delta and one telemetry
// append.
type Store interface {
	LoadDungeon(ctx context.Context, id string) (*DungeonRecord, error)
	LoadProfile(ctx context.Context, id string) (*Profile, error)
	ApplyGoldDelta(ctx context.Context, profileID string, delta int) error
	AppendTelemetry(ctx context.Context, dungeonID string, s Settlement) error
	LoadAggregate(ctx context.Context, dungeonID string) (*Aggregate, error)
}

// Settle computes the run's settlement. A clear converts earned gold at the
// configured rate; death and forfeiture convert nothing.
func (m *Machine) Settle() (Settlement, error) {
	if !m.ctx.Phase.Terminal() {
		return Settlement{}, ErrNotSettled
	}
	if m.settlement != nil {
		return *m.settlement, nil
	}
	rc := m.ctx
	w := rc.Hero.Wallet
	s := Settlement{
		RunID:      rc.ID,
		DungeonID:  rc.DungeonID,
		ProfileID:  rc.ProfileID,
		EarnedGold: w.Earned(),
		Level:      rc.Hero.Progress.Level,
		Duration:   m.now().Sub(rc.Telemetry.StartedAt),
		Telemetry:  rc.Telemetry,
	}
	switch rc.Phase {
	case PhaseCleared:
		s.Outcome = OutcomeCleared
		s.PersistentGoldDelta = w.Convert(m.opts.ConversionRate)
	case PhaseDead:
		s.Outcome = OutcomeDead
		w.Forfeit()
	default:
		s.Outcome = OutcomeForfeited
		w.Forfeit()
	}
	m.settlement = &s
	logger.Info("Run settled",
		"run_id", s.RunID,
		"dungeon_id", s.DungeonID,
		"outcome", s.Outcome,
		"gold_delta", s.PersistentGoldDelta,
		"level", s.Level)
	return s, nil
}

// Finish settles the run and writes it through the store exactly once. A
// retry after a failed write resumes where the last attempt stopped, so the
// gold delta is never applied twice.
func (m *Machine) Finish(ctx context.Context, store Store) (Settlement, error) {
	if store == nil {
		return Settlement{}, ErrNoStore
	}
	s, err := m.Settle()
	if err != nil {
		return s, err
	}
	if m.flushed {
		return s, ErrAlreadyFlushed
	}
	if !m.goldApplied && s.ProfileID != "" && s.PersistentGoldDelta > 0 {
		if err := store.ApplyGoldDelta(ctx, s.ProfileID, s.PersistentGoldDelta); err != nil {
			return s, fmt.Errorf("failed to apply gold delta: %w", err)
		}
	}
	m.goldApplied = true
	if s.DungeonID != "" {
		if err := store.AppendTelemetry(ctx, s.DungeonID, s); err != nil {
			return s, fmt.Errorf("failed to append telemetry: %w", err)
		}
	}
	m.flushed = true
	return s, nil
}
