package run

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lawnchairsociety/cardcrawl/internal/card"
	"github.com/lawnchairsociety/cardcrawl/internal/combat"
	"github.com/lawnchairsociety/cardcrawl/internal/dungeon"
	"github.com/lawnchairsociety/cardcrawl/internal/economy"
	"github.com/lawnchairsociety/cardcrawl/internal/items"
	"github.com/lawnchairsociety/cardcrawl/internal/leveling"
	"github.com/lawnchairsociety/cardcrawl/internal/logger"
	"github.com/lawnchairsociety/cardcrawl/internal/stats"
)

// Options configure one run.
type Options struct {
	RunID      string // generated when empty
	DungeonID  string
	ProfileID  string
	Difficulty card.Difficulty
	Playstyle  Playstyle

	// Source drives every roll. A time-seeded RNG is used when nil.
	Source stats.Source

	Judge          Judge
	JudgeTimeout   time.Duration
	EnemyTurnDelay time.Duration
	ConversionRate float64
	Catalog        *items.Catalog

	// Now is the clock, time.Now when nil.
	Now func() time.Time
}

// Machine drives one run. It is not safe for concurrent use; callers
// serialize operations the way a single player would.
type Machine struct {
	ctx  *RunContext
	opts Options
	src  stats.Source

	enc        *combat.Encounter
	encRewards *card.Rewards
	branch     []int
	lines      int
	blessed    bool

	settlement  *Settlement
	goldApplied bool
	flushed     bool

	pending Update
}

// New prepares a run over g. Nothing happens until Confirm.
func New(g *dungeon.Graph, opts Options) *Machine {
	if g == nil {
		g = dungeon.FromSteps(nil)
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Difficulty == "" {
		opts.Difficulty = card.Normal
	}
	if opts.Playstyle == "" {
		opts.Playstyle = Vanguard
	}
	if opts.Source == nil {
		opts.Source = stats.NewRNG(time.Now().UnixNano())
	}
	if opts.ConversionRate == 0 {
		opts.ConversionRate = economy.DefaultConversionRate
	}
	if opts.Catalog == nil {
		opts.Catalog = items.DefaultCatalog()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	rc := &RunContext{
		ID:          opts.RunID,
		DungeonID:   opts.DungeonID,
		ProfileID:   opts.ProfileID,
		Difficulty:  opts.Difficulty,
		Hero:        NewHero(opts.Playstyle, opts.Difficulty),
		Graph:       g,
		Room:        -1,
		Phase:       PhaseEntry,
		FirstStrike: opts.Playstyle == Swift,
		OpeningCrit: opts.Playstyle == Precise,
	}
	return &Machine{ctx: rc, opts: opts, src: opts.Source}
}

// Context exposes the run state.
func (m *Machine) Context() *RunContext { return m.ctx }

// Phase returns the current phase.
func (m *Machine) Phase() Phase { return m.ctx.Phase }

// Encounter returns the fight in progress, or nil.
func (m *Machine) Encounter() *combat.Encounter {
	if m.ctx.Phase != PhaseCombat {
		return nil
	}
	return m.enc
}

// BranchOptions returns the room indices a fork offers.
func (m *Machine) BranchOptions() []int {
	if m.ctx.Phase != PhaseBranch {
		return nil
	}
	return append([]int(nil), m.branch...)
}

// Offer returns the level-up choices on the table.
func (m *Machine) Offer() []leveling.Upgrade {
	if m.ctx.Phase != PhaseLevelUp {
		return nil
	}
	return m.ctx.Hero.Progress.Offer(m.src)
}

func (m *Machine) now() time.Time { return m.opts.Now() }

func (m *Machine) require(phases ...Phase) error {
	for _, p := range phases {
		if m.ctx.Phase == p {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrWrongPhase, m.ctx.Phase)
}

// Confirm enters the dungeon from ENTRY, or collects a REWARD and moves on.
func (m *Machine) Confirm(ctx context.Context) (Update, error) {
	if err := m.require(PhaseEntry, PhaseReward); err != nil {
		return Update{}, err
	}
	rc := m.ctx
	if rc.Phase == PhaseEntry {
		rc.Telemetry.StartedAt = m.now()
		logger.Info("Run started",
			"run_id", rc.ID,
			"dungeon_id", rc.DungeonID,
			"difficulty", rc.Difficulty,
			"playstyle", rc.Hero.Playstyle,
			"rooms", rc.Graph.Len())
		m.follow(ctx, rc.Graph.Entry)
		return m.flush(), nil
	}
	m.afterReward(ctx)
	return m.flush(), nil
}

// ChooseUpgrade applies level-up choice i. When no credits remain the run
// moves on.
func (m *Machine) ChooseUpgrade(ctx context.Context, i int) (Update, error) {
	if err := m.require(PhaseLevelUp); err != nil {
		return Update{}, err
	}
	h := m.ctx.Hero
	up, err := h.Progress.Choose(i, h.Unit, m.src)
	if err != nil {
		return Update{}, err
	}
	m.logf("You gain %s.", up.Name)
	m.clampHero()
	if h.Progress.Pending == 0 {
		m.advance(ctx)
	}
	return m.flush(), nil
}

// ChooseBranch takes fork option i (0 or 1).
func (m *Machine) ChooseBranch(ctx context.Context, i int) (Update, error) {
	if err := m.require(PhaseBranch); err != nil {
		return Update{}, err
	}
	if i < 0 || i >= len(m.branch) {
		return Update{}, fmt.Errorf("%w: %d", ErrInvalidBranch, i)
	}
	target := m.branch[i]
	m.branch = nil
	m.enterRoom(ctx, target)
	return m.flush(), nil
}

// Abandon forfeits the run.
func (m *Machine) Abandon() (Update, error) {
	if m.ctx.Phase.Terminal() {
		return Update{}, fmt.Errorf("%w: %s", ErrWrongPhase, m.ctx.Phase)
	}
	m.logf("You abandon the dungeon.")
	m.setPhase(PhaseForfeited)
	return m.flush(), nil
}

// Leave walks away from a room with pending choices, taking nothing.
func (m *Machine) Leave() (Update, error) {
	if !m.ctx.Phase.Room() {
		return Update{}, fmt.Errorf("%w: %s", ErrWrongPhase, m.ctx.Phase)
	}
	m.logf("You move on.")
	m.toReward(nil)
	return m.flush(), nil
}

// afterReward queues level-ups or moves on.
func (m *Machine) afterReward(ctx context.Context) {
	if m.ctx.Hero.Progress.Pending > 0 {
		m.ctx.Hero.Progress.Offer(m.src)
		m.setPhase(PhaseLevelUp)
		return
	}
	m.advance(ctx)
}

// advance follows the current room's link.
func (m *Machine) advance(ctx context.Context) {
	link, ok := m.ctx.Graph.At(m.ctx.Room)
	if !ok {
		m.invariant("room", m.ctx.Room, -1)
	}
	m.follow(ctx, link)
}

func (m *Machine) follow(ctx context.Context, link dungeon.Link) {
	switch link.Kind {
	case dungeon.Next:
		m.enterRoom(ctx, link.Next)
	case dungeon.Fork:
		m.branch = link.Targets()
		m.logf("The path forks.")
		m.setPhase(PhaseBranch)
	default:
		m.completeQuests(card.QuestClear, nil)
		m.logf("You reach the end of the dungeon.")
		m.setPhase(PhaseCleared)
	}
}

func (m *Machine) enterRoom(ctx context.Context, i int) {
	rc := m.ctx
	c := rc.Graph.Card(i)
	if c == nil {
		// unreachable for graphs built by the dungeon package
		m.invariant("room", i, -1)
		m.follow(ctx, dungeon.TerminalLink())
		return
	}
	rc.Room = i
	rc.Telemetry.RoomsVisited++
	m.lines = 0
	m.blessed = false
	m.logf("You enter %s.", c.Name)
	m.pending.Room = i

	phase := roomPhase(c.Category)
	switch {
	case c.Category.IsCombat():
		m.startCombat(combat.EnemyFromCard(c), c.Actions, c.Rewards)
	case c.Category == card.TrapInstant:
		m.setPhase(PhaseTrap)
		m.springTrap(ctx, c)
	default:
		m.setPhase(phase)
	}
}

// setPhase records a transition.
func (m *Machine) setPhase(p Phase) {
	if m.ctx.Phase == p {
		return
	}
	logger.Debug("Run phase",
		"run_id", m.ctx.ID,
		"room", m.ctx.Room,
		"from", m.ctx.Phase,
		"phase", p)
	m.ctx.Phase = p
}

func (m *Machine) logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	m.ctx.Log = append(m.ctx.Log, line)
	m.pending.Log = append(m.pending.Log, line)
}

func (m *Machine) flush() Update {
	u := m.pending
	u.Phase = m.ctx.Phase
	u.Room = m.ctx.Room
	m.pending = Update{}
	return u
}

// clampHero repairs hero invariants after a mutation and counts repairs.
func (m *Machine) clampHero() {
	fixed := m.ctx.Hero.Unit.Clamp()
	m.ctx.Telemetry.InvariantClamps += len(fixed)
}

func (m *Machine) invariant(field string, from, to int) {
	m.ctx.Telemetry.InvariantClamps++
	logger.Warning("invariant clamped",
		"run_id", m.ctx.ID,
		"field", field,
		"from", from,
		"to", to)
}

// checkDeath ends the run if the hero has fallen.
func (m *Machine) checkDeath() bool {
	if m.ctx.Hero.Unit.Alive() {
		return false
	}
	m.logf("You have fallen.")
	m.setPhase(PhaseDead)
	return true
}
