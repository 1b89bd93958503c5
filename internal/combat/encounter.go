package combat

import (
	"errors"
	"fmt"
	"math"

	"github.com/lawnchairsociety/cardcrawl/internal/card"
	"github.com/lawnchairsociety/cardcrawl/internal/effects"
	"github.com/lawnchairsociety/cardcrawl/internal/items"
	"github.com/lawnchairsociety/cardcrawl/internal/stats"
)

var (
	ErrNotPlayerTurn = errors.New("not the player's turn")
	ErrUnknownAction = errors.New("unknown combat action")
	ErrUnknownSkill  = errors.New("unknown skill")
	ErrNotEnoughMP   = errors.New("not enough mp")
	ErrNoItem        = errors.New("item not held")
	ErrItemNotUsable = errors.New("item has no use")
	errNilCombatants = errors.New("encounter needs a hero and an enemy")
)

const (
	regenPerStack     = 5
	burnPerStack      = 3
	poisonPerStack    = 2 // plus a flat 1 while poisoned
	bleedPerStack     = 4
	statusActionTurns = 3
)

// Phase is the encounter's turn state.
type Phase string

const (
	PhaseInit       Phase = "INIT"
	PhasePlayerTurn Phase = "PLAYER_TURN"
	PhaseEnemyTurn  Phase = "ENEMY_TURN"
	PhaseResolved   Phase = "RESOLVED"
)

// Outcome is how a resolved encounter ended.
type Outcome string

const (
	Victory Outcome = "VICTORY"
	Defeat  Outcome = "DEFEAT"
	Fled    Outcome = "FLED"
)

// ActionKind is a player command.
type ActionKind string

const (
	ActAttack ActionKind = "ATTACK"
	ActDefend ActionKind = "DEFEND"
	ActSkill  ActionKind = "SKILL"
	ActItem   ActionKind = "ITEM"
	ActFlee   ActionKind = "FLEE"
)

// PlayerAction is one hero command. Skill and Item are read only for
// their kinds.
type PlayerAction struct {
	Kind  ActionKind
	Skill SkillID
	Item  string
}

// Options tune one encounter.
type Options struct {
	FirstStrike bool // hero wins initiative outright
	OpeningCrit bool // hero's first action crits
	Bag         *items.Bag
	Catalog     *items.Catalog
}

// EventKind classifies a combat log line.
type EventKind string

const (
	EventInitiative EventKind = "initiative"
	EventAttack     EventKind = "attack"
	EventSkill      EventKind = "skill"
	EventMiss       EventKind = "miss"
	EventConfused   EventKind = "confused"
	EventStunned    EventKind = "stunned"
	EventDefend     EventKind = "defend"
	EventHeal       EventKind = "heal"
	EventBuff       EventKind = "buff"
	EventStatus     EventKind = "status"
	EventDOT        EventKind = "dot"
	EventRegen      EventKind = "regen"
	EventItem       EventKind = "item"
	EventFlee       EventKind = "flee"
	EventFleeFailed EventKind = "flee_failed"
	EventDefeated   EventKind = "defeated"
)

// Event is one thing that happened during a turn.
type Event struct {
	Turn    int        `json:"turn"`
	Kind    EventKind  `json:"kind"`
	Actor   string     `json:"actor"`
	Target  string     `json:"target,omitempty"`
	Amount  int        `json:"amount,omitempty"`
	Crit    bool       `json:"crit,omitempty"`
	Status  effects.ID `json:"status,omitempty"`
	Message string     `json:"message,omitempty"`
}

// Report is what one Start or Act call produced.
type Report struct {
	Events  []Event
	Phase   Phase
	Outcome Outcome
}

// Totals are running counters for telemetry.
type Totals struct {
	Turns       int
	DamageDealt int
	DamageTaken int
	Crits       int
	SkillsUsed  int
	ItemsUsed   int
	Clamps      []Clamp
}

// Encounter is one fight. It is not safe for concurrent use.
type Encounter struct {
	Hero  *Unit
	Enemy *Unit

	actions []card.Action
	opts    Options
	src     stats.Source

	phase        Phase
	outcome      Outcome
	heroFirst    bool
	openingCrit  bool
	heroGuard    float64
	enemyGuard   float64
	enemyBaseAtk int
	turn         int
	totals       Totals
	events       []Event
}

// NewEncounter prepares a fight. Nothing is rolled until Start.
func NewEncounter(hero, enemy *Unit, actions []card.Action, opts Options, src stats.Source) (*Encounter, error) {
	if hero == nil || enemy == nil {
		return nil, errNilCombatants
	}
	if opts.Catalog == nil {
		opts.Catalog = items.DefaultCatalog()
	}
	return &Encounter{
		Hero:         hero,
		Enemy:        enemy,
		actions:      actions,
		opts:         opts,
		src:          src,
		phase:        PhaseInit,
		openingCrit:  opts.OpeningCrit,
		enemyBaseAtk: enemy.Atk,
	}, nil
}

// Phase returns the current phase.
func (e *Encounter) Phase() Phase { return e.phase }

// Outcome returns how the fight ended, or "" while it runs.
func (e *Encounter) Outcome() Outcome { return e.outcome }

// HeroFirst reports whether the hero won initiative.
func (e *Encounter) HeroFirst() bool { return e.heroFirst }

// Totals returns the running counters.
func (e *Encounter) Totals() Totals { return e.totals }

// Start rolls initiative and, if the enemy wins it, plays the enemy's
// opening turn. The encounter then waits for the player.
func (e *Encounter) Start() Report {
	if e.phase != PhaseInit {
		return e.flush()
	}
	e.clampAll()
	heroInit := e.Hero.Spd + e.src.Intn(initiativeJitter)
	enemyInit := e.Enemy.Spd + e.src.Intn(initiativeJitter)
	e.heroFirst = e.opts.FirstStrike || heroInit >= enemyInit

	first := e.Enemy.Name
	if e.heroFirst {
		first = e.Hero.Name
	}
	e.emit(Event{Kind: EventInitiative, Actor: first})

	if !e.heroFirst {
		e.enemyTurn()
	}
	e.beginHeroTurn()
	return e.flush()
}

// Act resolves the hero's action and the enemy's reply. Invalid actions
// return an error and change nothing.
func (e *Encounter) Act(a PlayerAction) (Report, error) {
	if e.phase != PhasePlayerTurn {
		return Report{Phase: e.phase, Outcome: e.outcome}, ErrNotPlayerTurn
	}
	var skill Skill
	switch a.Kind {
	case ActAttack, ActDefend, ActFlee:
	case ActSkill:
		var ok bool
		if skill, ok = LookupSkill(string(a.Skill)); !ok {
			return e.idle(), fmt.Errorf("%w: %s", ErrUnknownSkill, a.Skill)
		}
		if e.Hero.MP < skill.Cost {
			return e.idle(), ErrNotEnoughMP
		}
	case ActItem:
		if e.opts.Bag == nil || e.opts.Bag.Count(a.Item) == 0 {
			return e.idle(), fmt.Errorf("%w: %s", ErrNoItem, a.Item)
		}
		if !e.opts.Catalog.Get(a.Item).Use.Usable() {
			return e.idle(), fmt.Errorf("%w: %s", ErrItemNotUsable, a.Item)
		}
	default:
		return e.idle(), fmt.Errorf("%w: %q", ErrUnknownAction, a.Kind)
	}

	forceCrit := e.openingCrit
	e.openingCrit = false
	e.Hero.stunGuard = false

	if effects.Has(e.Hero.Effects, effects.Confusion) && stats.Chance(e.src, confusionChance) {
		e.emit(Event{Kind: EventConfused, Actor: e.Hero.Name})
	} else {
		switch a.Kind {
		case ActAttack:
			e.strike(e.Hero, e.Enemy, 1, e.Hero.Element, nil, forceCrit, EventAttack, "")
		case ActSkill:
			e.Hero.MP -= skill.Cost
			e.totals.SkillsUsed++
			e.strike(e.Hero, e.Enemy, skill.Mul, skill.Element, skill.OnHit, forceCrit, EventSkill, skill.Name)
		case ActDefend:
			e.heroGuard = defendReduction
			e.emit(Event{Kind: EventDefend, Actor: e.Hero.Name})
		case ActItem:
			e.useItem(a.Item)
		case ActFlee:
			if stats.Chance(e.src, FleeChance(e.Hero.Spd, e.Enemy.Spd)) {
				e.emit(Event{Kind: EventFlee, Actor: e.Hero.Name})
				e.resolve(Fled)
			} else {
				e.emit(Event{Kind: EventFleeFailed, Actor: e.Hero.Name})
			}
		}
	}
	e.clampAll()
	if e.phase == PhaseResolved {
		return e.flush(), nil
	}

	e.endOfTurn(e.Hero)
	if e.phase != PhaseResolved {
		e.enemyTurn()
	}
	e.beginHeroTurn()
	return e.flush(), nil
}

func (e *Encounter) idle() Report {
	return Report{Phase: e.phase, Outcome: e.outcome}
}

// beginHeroTurn opens the hero's turn, playing out any turns lost to stun.
func (e *Encounter) beginHeroTurn() {
	for e.phase != PhaseResolved {
		e.turn++
		e.totals.Turns = e.turn
		e.phase = PhasePlayerTurn
		e.heroGuard = 0
		e.startOfTurn(e.Hero)
		if !effects.Has(e.Hero.Effects, effects.Stun) {
			return
		}
		e.Hero.stunGuard = true
		e.emit(Event{Kind: EventStunned, Actor: e.Hero.Name})
		e.endOfTurn(e.Hero)
		if e.phase != PhaseResolved {
			e.enemyTurn()
		}
	}
}

func (e *Encounter) enemyTurn() {
	e.phase = PhaseEnemyTurn
	e.enemyGuard = 0
	e.startOfTurn(e.Enemy)
	if effects.Has(e.Enemy.Effects, effects.Stun) {
		e.Enemy.stunGuard = true
		e.emit(Event{Kind: EventStunned, Actor: e.Enemy.Name})
		e.endOfTurn(e.Enemy)
		return
	}
	e.Enemy.stunGuard = false

	if effects.Has(e.Enemy.Effects, effects.Confusion) && stats.Chance(e.src, confusionChance) {
		e.emit(Event{Kind: EventConfused, Actor: e.Enemy.Name})
	} else {
		act, ok := ChooseAction(e.actions, e.Enemy.HPRatio(), e.src)
		if !ok {
			act = basicAttack
		}
		e.enemyAct(act)
	}
	e.clampAll()
	if e.phase == PhaseResolved {
		return
	}
	e.endOfTurn(e.Enemy)
}

func (e *Encounter) enemyAct(act card.Action) {
	switch act.Effect {
	case card.EffectHeal:
		healed := e.Enemy.Heal(int(math.Round(act.Value)))
		e.emit(Event{Kind: EventHeal, Actor: e.Enemy.Name, Amount: healed, Message: act.Message})
	case card.EffectBuff:
		ceiling := max(2*e.enemyBaseAtk, e.enemyBaseAtk+1)
		before := e.Enemy.Atk
		e.Enemy.Atk = min(ceiling, e.Enemy.Atk+int(math.Round(act.Value)))
		e.emit(Event{Kind: EventBuff, Actor: e.Enemy.Name, Amount: e.Enemy.Atk - before, Message: act.Message})
	case card.EffectStatus:
		id := act.Status
		if id == "" {
			id = effects.Weak
		}
		stacks := max(1, int(math.Round(act.Value)))
		target := e.Hero
		if !id.IsDebuff() {
			target = e.Enemy
		}
		if target.Afflict(id, stacks, statusActionTurns) {
			e.emit(Event{Kind: EventStatus, Actor: e.Enemy.Name, Target: target.Name, Amount: stacks, Status: id, Message: act.Message})
		}
	case card.EffectDefend:
		e.enemyGuard = act.Value
		e.emit(Event{Kind: EventDefend, Actor: e.Enemy.Name, Message: act.Message})
	default:
		mul := act.Value
		if mul <= 0 {
			mul = 1
		}
		e.strike(e.Enemy, e.Hero, mul, e.Enemy.Element, e.Enemy.OnHit, false, EventAttack, act.Message)
	}
}

// strike runs one attack from att to def, including blind misses and
// on-hit riders, and resolves the fight if def falls.
func (e *Encounter) strike(att, def *Unit, mul float64, el card.Element, onHit *OnHit, forceCrit bool, kind EventKind, msg string) {
	if effects.Has(att.Effects, effects.Blind) && stats.Chance(e.src, blindMissChance) {
		e.emit(Event{Kind: EventMiss, Actor: att.Name, Target: def.Name})
		return
	}
	dmg, crit := Damage(Hit{
		Atk:       att.Atk,
		Mul:       mul,
		Def:       def.Def,
		Luk:       att.EffectiveLuk(),
		Weak:      effects.Has(att.Effects, effects.Weak),
		Reduction: e.reductionFor(def),
		Element:   el,
		ForceCrit: forceCrit,
	}, def.Tags, e.src)
	dealt := def.TakeDamage(dmg)
	e.count(att, dealt)
	if crit {
		e.totals.Crits++
	}
	e.emit(Event{Kind: kind, Actor: att.Name, Target: def.Name, Amount: dealt, Crit: crit, Message: msg})

	if dealt > 0 && onHit != nil && def.Alive() && stats.Chance(e.src, onHit.Chance) {
		if def.Afflict(onHit.Status, onHit.Stacks, onHit.Turns) {
			e.emit(Event{Kind: EventStatus, Actor: att.Name, Target: def.Name, Amount: max(1, onHit.Stacks), Status: onHit.Status})
		}
	}
	if !def.Alive() {
		e.resolveDeath(def)
	}
}

func (e *Encounter) reductionFor(u *Unit) float64 {
	guard := e.enemyGuard
	if u == e.Hero {
		guard = e.heroGuard
	}
	shield := 0.0
	if effects.Has(u.Effects, effects.Shield) {
		shield = shieldReduction
	}
	return combineReduction(guard, shield)
}

func (e *Encounter) useItem(id string) {
	def := e.opts.Catalog.Get(id)
	e.opts.Bag.Take(id)
	e.totals.ItemsUsed++
	ev := Event{Kind: EventItem, Actor: e.Hero.Name, Message: def.Name}
	switch def.Use {
	case items.UseHeal:
		ev.Amount = e.Hero.Heal(def.Amount)
	case items.UseHealFull:
		ev.Amount = e.Hero.Heal(e.Hero.MaxHP)
	case items.UseMana:
		ev.Amount = e.Hero.RestoreMP(def.Amount)
	case items.UseCleanse:
		e.Hero.Effects = effects.Cleanse(e.Hero.Effects)
	case items.UseDamage:
		ev.Target = e.Enemy.Name
		if ElementFactor(card.Physical, e.Enemy.Tags) > 0 {
			ev.Amount = e.Enemy.TakeDamage(def.Amount)
			e.count(e.Hero, ev.Amount)
		}
	case items.UseEscape:
		e.emit(ev)
		e.resolve(Fled)
		return
	}
	e.emit(ev)
	if !e.Enemy.Alive() {
		e.resolveDeath(e.Enemy)
	}
}

func (e *Encounter) startOfTurn(u *Unit) {
	if n := effects.Stacks(u.Effects, effects.Regen); n > 0 {
		healed := u.Heal(regenPerStack * n)
		e.emit(Event{Kind: EventRegen, Actor: u.Name, Amount: healed, Status: effects.Regen})
	}
}

// endOfTurn applies damage over time then ticks every effect down.
func (e *Encounter) endOfTurn(u *Unit) {
	dot := 0
	if n := effects.Stacks(u.Effects, effects.Burn); n > 0 {
		dot += burnPerStack * n
	}
	if n := effects.Stacks(u.Effects, effects.Poison); n > 0 {
		dot += poisonPerStack*n + 1
	}
	if n := effects.Stacks(u.Effects, effects.Bleed); n > 0 {
		dot += bleedPerStack * n
	}
	if dot > 0 {
		dealt := u.TakeDamage(dot)
		if u == e.Enemy {
			e.count(e.Hero, dealt)
		} else {
			e.count(e.Enemy, dealt)
		}
		e.emit(Event{Kind: EventDOT, Actor: u.Name, Amount: dealt})
	}
	u.Effects = effects.TickDown(u.Effects, 1)
	e.clampAll()
	if !u.Alive() {
		e.resolveDeath(u)
	}
}

func (e *Encounter) count(att *Unit, dealt int) {
	if att == e.Hero {
		e.totals.DamageDealt += dealt
	} else {
		e.totals.DamageTaken += dealt
	}
}

func (e *Encounter) resolveDeath(u *Unit) {
	e.emit(Event{Kind: EventDefeated, Actor: u.Name})
	if u == e.Enemy {
		e.resolve(Victory)
	} else {
		e.resolve(Defeat)
	}
}

func (e *Encounter) resolve(o Outcome) {
	if e.phase == PhaseResolved {
		return
	}
	e.phase = PhaseResolved
	e.outcome = o
}

func (e *Encounter) clampAll() {
	e.totals.Clamps = append(e.totals.Clamps, e.Hero.Clamp()...)
	e.totals.Clamps = append(e.totals.Clamps, e.Enemy.Clamp()...)
}

func (e *Encounter) emit(ev Event) {
	ev.Turn = e.turn
	e.events = append(e.events, ev)
}

func (e *Encounter) flush() Report {
	r := Report{Events: e.events, Phase: e.phase, Outcome: e.outcome}
	e.events = nil
	return r
}
