package dungeon

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// RawLink is an authored room link: null or -1 for terminal, an index, or
// a two-index fork. Unreadable values decode without error and resolve to
// TERMINAL.
type RawLink struct {
	targets   []int
	malformed bool
}

// RawTerminal, RawNext and RawFork build links in code.
func RawTerminal() RawLink     { return RawLink{} }
func RawNext(j int) RawLink    { return RawLink{targets: []int{j}} }
func RawFork(a, b int) RawLink { return RawLink{targets: []int{a, b}} }

// UnmarshalJSON never fails; bad input marks the link malformed.
func (r *RawLink) UnmarshalJSON(data []byte) error {
	*r = RawLink{}
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var one float64
	if err := json.Unmarshal(data, &one); err == nil {
		r.add(one)
		return nil
	}
	var many []float64
	if err := json.Unmarshal(data, &many); err == nil {
		if len(many) == 0 || len(many) > MaxPerFork {
			r.malformed = true
			return nil
		}
		for _, v := range many {
			r.add(v)
		}
		return nil
	}
	r.malformed = true
	return nil
}

// UnmarshalYAML never fails; bad input marks the link malformed.
func (r *RawLink) UnmarshalYAML(node *yaml.Node) error {
	*r = RawLink{}
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" || node.Value == "" || node.Value == "~" {
			return nil
		}
		r.addScalar(node.Value)
	case yaml.SequenceNode:
		if len(node.Content) == 0 || len(node.Content) > MaxPerFork {
			r.malformed = true
			return nil
		}
		for _, n := range node.Content {
			if n.Kind != yaml.ScalarNode {
				r.malformed = true
				return nil
			}
			r.addScalar(n.Value)
		}
	default:
		r.malformed = true
	}
	return nil
}

func (r *RawLink) addScalar(s string) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.malformed = true
		return
	}
	r.add(v)
}

func (r *RawLink) add(v float64) {
	if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
		r.malformed = true
		return
	}
	if v < 0 {
		// -1 is the authored terminal marker
		return
	}
	r.targets = append(r.targets, int(v))
}

// MarshalJSON writes the canonical authored form.
func (r RawLink) MarshalJSON() ([]byte, error) {
	if r.malformed || len(r.targets) == 0 {
		return []byte("null"), nil
	}
	if len(r.targets) == 1 {
		return json.Marshal(r.targets[0])
	}
	return json.Marshal(r.targets)
}

// resolve validates the link for room i of n rooms.
func (r RawLink) resolve(i, n int) Link {
	if r.malformed {
		return TerminalLink()
	}
	var valid []int
	for _, j := range r.targets {
		if j > i && j < n {
			valid = append(valid, j)
		}
	}
	switch len(valid) {
	case 0:
		return TerminalLink()
	case 1:
		return NextLink(valid[0])
	default:
		return ForkLink(valid[0], valid[1])
	}
}

// RawLinks converts canonical links back to authored form.
func RawLinks(links []Link) []RawLink {
	out := make([]RawLink, len(links))
	for i, l := range links {
		out[i] = RawLink{targets: l.Targets()}
	}
	return out
}
