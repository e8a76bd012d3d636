package domain

import (
	"strconv"
	"strings"
)

// Perception holds the five ordinal "felt it" scores of a report.
type Perception struct {
	Shaking  int `json:"shaking"`
	Duration int `json:"duration"`
	Objects  int `json:"objects"`
	Reaction int `json:"reaction"`
	Damage   int `json:"damage"`
}

// Ordinal bounds for every perception score.
const (
	MinScore = 1
	MaxScore = 5
)

// PerceptionFields lists the input names in their canonical order.
var PerceptionFields = []string{"shaking", "duration", "objects", "reaction", "damage"}

// fieldAliases maps alternate input names onto canonical ones. Older report
// forms posted "reactions".
var fieldAliases = map[string][]string{
	"reaction": {"reactions"},
}

// Vector returns the scores as features in PerceptionFields order.
func (p Perception) Vector() []float64 {
	return []float64{
		float64(p.Shaking),
		float64(p.Duration),
		float64(p.Objects),
		float64(p.Reaction),
		float64(p.Damage),
	}
}

// Validate checks that every score lies within [MinScore, MaxScore].
func (p Perception) Validate() error {
	var bad []string
	for i, v := range p.Vector() {
		if v < MinScore || v > MaxScore {
			bad = append(bad, PerceptionFields[i])
		}
	}
	if len(bad) > 0 {
		return &ValidationError{Fields: bad, Reason: "scores must be between 1 and 5"}
	}
	return nil
}

// ParsePerception reads the five scores through lookup, which returns the raw
// value for a field name and whether it was present. Every missing or
// non-integer field is reported in a single ValidationError. When strict is
// set the scores are also range-checked.
func ParsePerception(lookup func(name string) (string, bool), strict bool) (Perception, error) {
	values := make([]int, len(PerceptionFields))
	var bad []string

	for i, name := range PerceptionFields {
		raw, ok := lookupWithAliases(lookup, name)
		if !ok {
			bad = append(bad, name)
			continue
		}
		v, err := parseScore(raw)
		if err != nil {
			bad = append(bad, name)
			continue
		}
		values[i] = v
	}
	if len(bad) > 0 {
		return Perception{}, &ValidationError{Fields: bad}
	}

	p := Perception{
		Shaking:  values[0],
		Duration: values[1],
		Objects:  values[2],
		Reaction: values[3],
		Damage:   values[4],
	}
	if strict {
		if err := p.Validate(); err != nil {
			return Perception{}, err
		}
	}
	return p, nil
}

func lookupWithAliases(lookup func(string) (string, bool), name string) (string, bool) {
	if v, ok := lookup(name); ok {
		return v, true
	}
	for _, alias := range fieldAliases[name] {
		if v, ok := lookup(alias); ok {
			return v, true
		}
	}
	return "", false
}

// parseScore accepts integers and integral floats ("3", "3.0").
func parseScore(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, strconv.ErrSyntax
	}
	return int(f), nil
}
