package card

import (
	"fmt"
	"strings"
)

// Namespace is the prefix family of a tag.
type Namespace string

const (
	NSTag    Namespace = "TAG"
	NSAttr   Namespace = "ATTR"
	NSStatus Namespace = "STATUS"
	NSEnv    Namespace = "ENV"
	NSWeak   Namespace = "WEAK"
	NSResist Namespace = "RESIST"
	NSImmune Namespace = "IMMUNE"
	NSLogic  Namespace = "LOGIC"
	NSTarget Namespace = "TARGET"
)

var namespaces = []Namespace{NSTag, NSAttr, NSStatus, NSEnv, NSWeak, NSResist, NSImmune, NSLogic, NSTarget}

// MaxTags bounds the tags kept on one card.
const MaxTags = 12

// Tag is a namespaced capability or affinity marker, written NS_VALUE.
type Tag struct {
	Namespace Namespace
	Value     string
}

// Well-known tags the combat resolver matches on.
var (
	TagUndead    = Tag{NSTag, "UNDEAD"}
	TagConstruct = Tag{NSTag, "CONSTRUCT"}
)

// ParseTag splits "NS_VALUE". Unknown namespaces and empty values fail.
func ParseTag(s string) (Tag, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, ns := range namespaces {
		prefix := string(ns) + "_"
		if strings.HasPrefix(s, prefix) && len(s) > len(prefix) {
			return Tag{Namespace: ns, Value: s[len(prefix):]}, true
		}
	}
	return Tag{}, false
}

func (t Tag) String() string {
	return string(t.Namespace) + "_" + t.Value
}

// MarshalText encodes the tag as NS_VALUE.
func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes NS_VALUE.
func (t *Tag) UnmarshalText(b []byte) error {
	parsed, ok := ParseTag(string(b))
	if !ok {
		return fmt.Errorf("unknown tag %q", string(b))
	}
	*t = parsed
	return nil
}

// Element is a damage affinity.
type Element string

const (
	Physical  Element = "PHYSICAL"
	Fire      Element = "FIRE"
	Ice       Element = "ICE"
	Lightning Element = "LIGHTNING"
	Holy      Element = "HOLY"
	Dark      Element = "DARK"
	Poison    Element = "POISON"
)

// ParseElement converts text to an Element. Unknown values are PHYSICAL.
func ParseElement(s string) Element {
	switch e := Element(strings.ToUpper(strings.TrimSpace(s))); e {
	case Fire, Ice, Lightning, Holy, Dark, Poison:
		return e
	default:
		return Physical
	}
}

// AttrElement returns the element named by the first ATTR_ tag, if any.
func AttrElement(tags []Tag) Element {
	for _, t := range tags {
		if t.Namespace == NSAttr {
			if e := ParseElement(t.Value); e != Physical {
				return e
			}
		}
	}
	return Physical
}

// Affinity tags for an element.
func WeakTo(e Element) Tag   { return Tag{NSWeak, string(e)} }
func ResistTo(e Element) Tag { return Tag{NSResist, string(e)} }
func ImmuneTo(e Element) Tag { return Tag{NSImmune, string(e)} }

// HasTag reports whether tags contains t.
func HasTag(tags []Tag, t Tag) bool {
	for _, have := range tags {
		if have == t {
			return true
		}
	}
	return false
}

// CountNamespace counts tags in ns.
func CountNamespace(tags []Tag, ns Namespace) int {
	n := 0
	for _, t := range tags {
		if t.Namespace == ns {
			n++
		}
	}
	return n
}

// sanitizeTags keeps known tags, uppercased and deduplicated, up to MaxTags.
func sanitizeTags(raw []string) []Tag {
	var out []Tag
	seen := make(map[Tag]bool)
	for _, s := range raw {
		t, ok := ParseTag(s)
		if !ok || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == MaxTags {
			break
		}
	}
	return out
}
