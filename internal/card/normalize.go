package card

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/lawnchairsociety/cardcrawl/internal/effects"
	"github.com/lawnchairsociety/cardcrawl/internal/items"
	"github.com/lawnchairsociety/cardcrawl/internal/stats"
)

const (
	maxNameLen        = 60
	maxDescriptionLen = 400
	maxLabelLen       = 80
	maxMessageLen     = 120
	maxDialogueLen    = 200
	maxActions        = 6
	maxDialogueLines  = 8
	maxRewardItems    = 8
	minEventOptions   = 2
	maxEventOptions   = 4
	maxMimicChance    = 0.9
)

// NormalizeValue marshals an already-decoded value and normalizes it.
func NormalizeValue(raw any, forced Category, d Difficulty, src stats.Source) (*CardData, error) {
	var data []byte
	switch v := raw.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, &ValidationError{Field: "name", Err: ErrMissingName}
		}
		data = b
	}
	return Normalize(data, forced, d, src)
}

// Normalize repairs an untrusted card document into playable CardData.
// Only a missing name or description is an error; every other field is
// defaulted or clamped. The category is always the forced one.
func Normalize(raw []byte, forced Category, d Difficulty, src stats.Source) (*CardData, error) {
	var doc gjson.Result
	if gjson.ValidBytes(raw) {
		doc = gjson.ParseBytes(raw)
	}

	name := truncate(str(doc.Get("name")), maxNameLen)
	if name == "" {
		return nil, &ValidationError{Field: "name", Err: ErrMissingName}
	}
	desc := truncate(str(doc.Get("description")), maxDescriptionLen)
	if desc == "" {
		return nil, &ValidationError{Field: "description", Err: ErrMissingDescription}
	}

	id := items.NormalizeID(str(doc.Get("id")))
	if id == "" {
		id = items.NormalizeID(name)
	}
	c := &CardData{
		ID:          id,
		Name:        name,
		Description: desc,
		Category:    forced,
		Grade:       normalizeGrade(doc.Get("grade"), forced),
		Tags:        sanitizeTags(stringList(doc.Get("tags"))),
	}

	switch {
	case forced.IsCombat():
		s := normalizeStats(doc.Get("stats"), forced, c.Grade, d)
		c.Stats = &s
		c.Actions = normalizeActions(doc.Get("actions"), s)
	case forced.IsTrap():
		c.CheckInfo = normalizeCheck(first(doc, "check_info", "check"), d, true)
	}

	switch forced {
	case Shrine:
		c.ShrineOptions = normalizeShrine(first(doc, "shrine_options", "options"), d, src)
	case NPCTrader:
		c.TradeList = normalizeTrades(first(doc, "trade_list", "trades"), d)
	case NPCQuest:
		c.Quest = normalizeQuest(doc.Get("quest"), d)
	case LootChest:
		c.Mimic = normalizeMimic(doc.Get("mimic"), c.Tags, d)
	case EventChoice:
		c.EventOptions = normalizeEventOptions(first(doc, "event_options", "options"), d)
	}
	if forced.IsNPC() {
		c.Dialogue = normalizeDialogue(doc.Get("dialogue"))
		if forced == NPCDialogue && len(c.Dialogue) == 0 {
			c.Dialogue = []string{desc}
		}
	}

	c.Rewards = normalizeRewards(doc.Get("rewards"), forced, d)
	return c, nil
}

func normalizeGrade(r gjson.Result, c Category) Grade {
	if c == EnemyBoss {
		return GradeBoss
	}
	if g, ok := ParseGrade(str(r)); ok {
		return g
	}
	return GradeNormal
}

func normalizeStats(r gjson.Result, c Category, g Grade, d Difficulty) Stats {
	s := DefaultStats(c, g, d)
	if r.IsObject() {
		if v, ok := num(r.Get("hp")); ok {
			s.HP = round(v)
		}
		if v, ok := num(r.Get("atk")); ok {
			s.Atk = round(v)
		}
		if v, ok := num(r.Get("def")); ok {
			s.Def = round(v)
		}
		if v, ok := num(r.Get("spd")); ok {
			s.Spd = round(v)
		}
	}
	return ClampStats(s, c, d)
}

func normalizeCheck(r gjson.Result, d Difficulty, withDamage bool) *CheckInfo {
	lo, hi, def := TrapDC(d)
	ci := &CheckInfo{Stat: stats.Dexterity, Difficulty: def}
	if withDamage {
		ci.Damage = TrapDamage(d)
	}
	if !r.IsObject() {
		return ci
	}
	if a, ok := stats.ParseAbility(str(first(r, "stat", "ability"))); ok {
		ci.Stat = a
	}
	if v, ok := num(first(r, "difficulty", "dc")); ok {
		ci.Difficulty = clampInt(round(v), lo, hi)
	}
	if dmg := str(r.Get("damage")); dmg != "" {
		if dice, ok := stats.ParseDice(strings.ToLower(dmg)); ok {
			ci.Damage = dice.String()
		}
	}
	return ci
}

func normalizeTrigger(s string) Trigger {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ON_TURN_START":
		return OnTurnStart
	case "PASSIVE":
		return Passive
	case "LOW_HP", "HP_BELOW_HALF", "PHASE_2":
		return LowHP
	default:
		return OnTurn
	}
}

func normalizeActions(r gjson.Result, s Stats) []Action {
	var out []Action
	for _, a := range r.Array() {
		if len(out) == maxActions {
			break
		}
		if !a.IsObject() {
			continue
		}
		act := Action{
			Trigger: normalizeTrigger(str(first(a, "trigger", "condition"))),
			Effect:  ActionEffect(strings.ToUpper(str(first(a, "effect", "type")))),
			Message: truncate(str(a.Get("message")), maxMessageLen),
		}
		v, hasValue := num(a.Get("value"))
		switch act.Effect {
		case EffectHeal:
			ceiling := math.Max(1, float64(s.HP)/2)
			if !hasValue {
				v = float64(s.HP) / 5
			}
			act.Value = math.Round(clampFloat(v, 1, ceiling))
		case EffectBuff:
			if !hasValue {
				v = 2
			}
			act.Value = math.Round(clampFloat(v, 1, 10))
		case EffectStatus:
			id, ok := effects.ParseID(str(first(a, "status", "effect_id")))
			if !ok {
				id = effects.Weak
			}
			act.Status = id
			if !hasValue {
				v = 1
			}
			act.Value = math.Round(clampFloat(v, 1, 5))
		case EffectDefend:
			if !hasValue {
				v = 0.5
			}
			act.Value = clampFloat(v, 0.1, 0.8)
		default:
			act.Effect = EffectAttack
			if !hasValue {
				v = 1
			}
			act.Value = clampFloat(v, 0.5, 3.0)
		}
		out = append(out, act)
	}
	return out
}

func parseCost(r gjson.Result, d Difficulty) Cost {
	if !r.IsObject() {
		return Cost{Kind: CostNone}
	}
	kind := CostKind(strings.ToUpper(str(r.Get("kind"))))
	v, _ := num(r.Get("value"))
	n := round(v)
	gold := MaxRewardGold(d)
	switch kind {
	case CostHP:
		n = clampInt(n, 1, 50)
	case CostGold, CostDebt:
		n = clampInt(n, 1, gold)
	case CostMaxHP:
		n = clampInt(n, 1, 30)
	case CostCurse:
		n = clampInt(n, 1, 10)
	default:
		return Cost{Kind: CostNone}
	}
	return Cost{Kind: kind, Value: n}
}

func parseBoon(r gjson.Result, d Difficulty) Boon {
	if !r.IsObject() {
		return Boon{Kind: BoonNone}
	}
	kind := BoonKind(strings.ToUpper(str(r.Get("kind"))))
	v, _ := num(r.Get("value"))
	n := round(v)
	switch kind {
	case BoonAtk, BoonDef, BoonSpd, BoonLuk:
		n = clampInt(n, 1, 5)
	case BoonMaxHP:
		n = clampInt(n, 1, 30)
	case BoonHeal:
		n = clampInt(n, 1, 100)
	case BoonMP:
		n = clampInt(n, 1, 50)
	case BoonGold:
		n = clampInt(n, 1, MaxRewardGold(d))
	case BoonXP:
		n = clampInt(n, 1, MaxRewardXP)
	case BoonItem:
		itemID := items.NormalizeID(str(first(r, "item_id", "item")))
		if itemID == "" {
			return Boon{Kind: BoonNone}
		}
		return Boon{Kind: BoonItem, Value: clampInt(n, 1, 3), ItemID: itemID}
	default:
		return Boon{Kind: BoonNone}
	}
	return Boon{Kind: kind, Value: n}
}

func normalizeShrine(r gjson.Result, d Difficulty, src stats.Source) []ShrineOption {
	var out []ShrineOption
	seen := make(map[string]bool)
	for i, o := range r.Array() {
		if len(out) == ShrineOptionCount {
			break
		}
		if !o.IsObject() {
			continue
		}
		label := truncate(str(first(o, "label", "text")), maxLabelLen)
		id := items.NormalizeID(str(o.Get("id")))
		if id == "" {
			id = items.NormalizeID(label)
		}
		if id == "" {
			id = "option_" + strconv.Itoa(i+1)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		if label == "" {
			label = id
		}
		out = append(out, ShrineOption{
			ID:     id,
			Label:  label,
			Cost:   parseCost(o.Get("cost"), d),
			Reward: parseBoon(o.Get("reward"), d),
		})
	}
	return fillShrine(out, d, src)
}

func normalizeTrades(r gjson.Result, d Difficulty) []TradeEntry {
	defaults := DefaultTradeList(d)
	defaultPrice := func(id string) (int, bool) {
		for _, e := range defaults {
			if e.ItemID == id {
				return e.Price, true
			}
		}
		return 0, false
	}

	var out []TradeEntry
	seen := make(map[string]bool)
	for _, t := range r.Array() {
		if len(out) == MaxTradeEntries {
			break
		}
		if !t.IsObject() {
			continue
		}
		name := truncate(str(t.Get("name")), maxNameLen)
		id := items.NormalizeID(str(first(t, "item_id", "id")))
		if id == "" {
			id = items.NormalizeID(name)
		}
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if name == "" {
			name = id
		}
		price, ok := num(t.Get("price"))
		if !ok {
			p, known := defaultPrice(id)
			if !known {
				p = MaxTradePrice(d) / 4
			}
			price = float64(p)
		}
		out = append(out, TradeEntry{ItemID: id, Name: name, Price: clampInt(round(price), 0, MaxTradePrice(d))})
	}
	for _, e := range defaults {
		if len(out) >= MinTradeEntries {
			break
		}
		if !seen[e.ItemID] {
			seen[e.ItemID] = true
			out = append(out, e)
		}
	}

	starter := StarterGold(d)
	for _, e := range out {
		if e.Price <= starter {
			return out
		}
	}
	cheap := cheapPotion(d)
	for i := range out {
		if out[i].ItemID == cheap.ItemID {
			out[i].Price = cheap.Price
			return out
		}
	}
	out[len(out)-1] = cheap
	return out
}

func normalizeQuest(r gjson.Result, d Difficulty) *Quest {
	q := &Quest{Objective: QuestDefeat, Count: 2, RewardGold: MaxRewardGold(d) / 3, RewardXP: 60}
	if !r.IsObject() {
		return q
	}
	if QuestObjective(strings.ToUpper(str(r.Get("objective")))) == QuestClear {
		q.Objective = QuestClear
		q.Count = 1
	} else if v, ok := num(r.Get("count")); ok {
		q.Count = clampInt(round(v), 1, 5)
	}
	if v, ok := num(r.Get("reward_gold")); ok {
		q.RewardGold = clampInt(round(v), 0, MaxRewardGold(d))
	}
	if v, ok := num(r.Get("reward_xp")); ok {
		q.RewardXP = clampInt(round(v), 0, MaxRewardXP)
	}
	return q
}

// normalizeMimic returns nil for an honest chest.
func normalizeMimic(r gjson.Result, tags []Tag, d Difficulty) *Mimic {
	tagged := HasTag(tags, Tag{NSLogic, "MIMIC"})
	if !r.Exists() && !tagged {
		return nil
	}
	if r.Type == gjson.False || (r.Type == gjson.Null && r.Exists()) {
		return nil
	}
	m := &Mimic{Name: "Mimic", Chance: 0.35, Stats: DefaultStats(EnemySingle, GradeElite, d)}
	if r.IsObject() {
		if name := truncate(str(r.Get("name")), maxNameLen); name != "" {
			m.Name = name
		}
		if v, ok := num(r.Get("chance")); ok {
			m.Chance = rate(v)
		}
		st := r.Get("stats")
		if v, ok := num(st.Get("hp")); ok {
			m.Stats.HP = round(v)
		}
		if v, ok := num(st.Get("atk")); ok {
			m.Stats.Atk = round(v)
		}
		if v, ok := num(st.Get("def")); ok {
			m.Stats.Def = round(v)
		}
		if v, ok := num(st.Get("spd")); ok {
			m.Stats.Spd = round(v)
		}
	}
	m.Chance = math.Min(m.Chance, maxMimicChance)
	m.Stats = ClampStats(m.Stats, EnemySingle, d)
	return m
}

func normalizeEventOptions(r gjson.Result, d Difficulty) []EventOption {
	var out []EventOption
	seen := make(map[string]bool)
	for i, o := range r.Array() {
		if len(out) == maxEventOptions {
			break
		}
		if !o.IsObject() {
			continue
		}
		label := truncate(str(first(o, "label", "text")), maxLabelLen)
		id := items.NormalizeID(str(o.Get("id")))
		if id == "" {
			id = items.NormalizeID(label)
		}
		if id == "" {
			id = "choice_" + strconv.Itoa(i+1)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		if label == "" {
			label = id
		}
		opt := EventOption{
			ID:      id,
			Label:   label,
			Reward:  parseBoon(o.Get("reward"), d),
			Penalty: parseCost(o.Get("penalty"), d),
		}
		if chk := o.Get("check"); chk.IsObject() {
			opt.Check = normalizeCheck(chk, d, false)
		}
		out = append(out, opt)
	}
	for _, o := range DefaultEventOptions(d) {
		if len(out) >= minEventOptions {
			break
		}
		if !seen[o.ID] {
			seen[o.ID] = true
			out = append(out, o)
		}
	}
	return out
}

func normalizeDialogue(r gjson.Result) []string {
	lines := []string{str(r)}
	if r.IsArray() {
		lines = stringList(r)
	}
	var out []string
	for _, line := range lines {
		if line = truncate(line, maxDialogueLen); line != "" {
			out = append(out, line)
		}
		if len(out) == maxDialogueLines {
			break
		}
	}
	return out
}

// defaultRewards returns nil for categories that pay nothing by default.
func defaultRewards(c Category, d Difficulty) *Rewards {
	gold := MaxRewardGold(d)
	tier := 1 + 0.25*float64(d.Index())
	switch c {
	case EnemySingle:
		return &Rewards{Gold: GoldRange{gold / 20, gold / 8}, XP: round(25 * tier)}
	case EnemySquad:
		return &Rewards{Gold: GoldRange{gold / 12, gold / 5}, XP: round(40 * tier)}
	case EnemyBoss:
		return &Rewards{Gold: GoldRange{gold / 4, gold / 2}, XP: round(120 * tier)}
	case LootChest:
		return &Rewards{Gold: GoldRange{gold / 8, gold / 3}, Items: []ItemDrop{{ID: items.Potion, Name: "Potion", Rate: 0.5}}}
	case TrapRoom:
		return &Rewards{XP: round(10 * tier)}
	default:
		return nil
	}
}

func normalizeRewards(r gjson.Result, c Category, d Difficulty) *Rewards {
	rw := defaultRewards(c, d)
	if !r.IsObject() {
		return rw
	}
	if rw == nil {
		rw = &Rewards{}
	}
	maxGold := MaxRewardGold(d)
	if g := r.Get("gold"); g.Exists() {
		if v, ok := num(g); ok {
			n := clampInt(round(v), 0, maxGold)
			rw.Gold = GoldRange{n, n}
		} else if g.IsObject() {
			lo, _ := num(g.Get("min"))
			hi, ok := num(g.Get("max"))
			if !ok {
				hi = lo
			}
			a, b := clampInt(round(lo), 0, maxGold), clampInt(round(hi), 0, maxGold)
			if a > b {
				a, b = b, a
			}
			rw.Gold = GoldRange{a, b}
		}
	}
	if x, ok := num(r.Get("xp")); ok {
		rw.XP = clampInt(round(x), 0, MaxRewardXP)
	}
	if list := r.Get("items"); list.IsArray() {
		rw.Items = nil
		seen := make(map[string]bool)
		for _, it := range list.Array() {
			if len(rw.Items) == maxRewardItems {
				break
			}
			drop := ItemDrop{Rate: 1}
			if it.Type == gjson.String {
				drop.ID = items.NormalizeID(it.Str)
			} else if it.IsObject() {
				drop.Name = truncate(str(it.Get("name")), maxNameLen)
				drop.ID = items.NormalizeID(str(first(it, "id", "item_id")))
				if drop.ID == "" {
					drop.ID = items.NormalizeID(drop.Name)
				}
				if v, ok := num(first(it, "rate", "drop_rate", "chance")); ok {
					drop.Rate = rate(v)
				}
			}
			if drop.ID == "" || seen[drop.ID] {
				continue
			}
			seen[drop.ID] = true
			rw.Items = append(rw.Items, drop)
		}
	}
	return rw
}

// rate reads a probability, treating values above 1 as percentages.
func rate(v float64) float64 {
	if v > 1 {
		v /= 100
	}
	return clampFloat(v, 0, 1)
}

func first(r gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// str returns a trimmed string for string or number values and "" otherwise.
func str(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return strings.TrimSpace(r.Str)
	case gjson.Number:
		return r.Raw
	default:
		return ""
	}
}

// num reads a finite number, accepting numeric strings.
func num(r gjson.Result) (float64, bool) {
	var v float64
	switch r.Type {
	case gjson.Number:
		v = r.Num
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return 0, false
		}
		v = f
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// stringList accepts an array of strings or one comma-separated string.
func stringList(r gjson.Result) []string {
	if r.Type == gjson.String {
		return strings.Split(r.Str, ",")
	}
	var out []string
	for _, v := range r.Array() {
		if s := str(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
