// Package compress defines the compression model shared by the planner,
// the renderer and the output layer: the ordered level enum, the per-file
// record, budgets and the nominal cost estimate.
package compress

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Level is a content-fidelity tier. Levels are ordered by aggressiveness:
// escalating a file means moving to a strictly higher level.
type Level int

const (
	LevelNone Level = iota
	LevelTrim
	LevelLight
	LevelMedium
	LevelHeavy
	LevelMax
)

var levelNames = [...]string{"none", "trim", "light", "medium", "heavy", "max"}

// retainPercents holds how much of the original content each level nominally
// keeps. The inverse of the reduction fraction, in whole percents.
var retainPercents = [...]int{100, 95, 85, 50, 10, 0}

// Levels returns all levels in ascending order of aggressiveness.
func Levels() []Level {
	return []Level{LevelNone, LevelTrim, LevelLight, LevelMedium, LevelHeavy, LevelMax}
}

// ParseLevel converts a level name into a Level. Unknown names are errors.
func ParseLevel(name string) (Level, error) {
	for i, candidate := range levelNames {
		if candidate == name {
			return Level(i), nil
		}
	}
	return LevelNone, fmt.Errorf("unknown compression level %q", name)
}

// IsValid reports whether l is one of the defined levels.
func (l Level) IsValid() bool {
	return l >= LevelNone && l <= LevelMax
}

func (l Level) String() string {
	if !l.IsValid() {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// RetainPercent returns the nominal share of the original content kept at
// this level, in whole percents.
func (l Level) RetainPercent() int {
	if !l.IsValid() {
		return 0
	}
	return retainPercents[l]
}

// Reduction returns the nominal target reduction fraction for this level.
func (l Level) Reduction() float64 {
	return 1 - float64(l.RetainPercent())/100
}

// Next returns the next more aggressive level. The second return is false
// when l is already LevelMax.
func (l Level) Next() (Level, bool) {
	if l >= LevelMax {
		return LevelMax, false
	}
	return l + 1, true
}

// MarshalYAML renders the level by name so plan files stay human-editable.
func (l Level) MarshalYAML() (interface{}, error) {
	if !l.IsValid() {
		return nil, fmt.Errorf("cannot marshal invalid compression level %d", int(l))
	}
	return l.String(), nil
}

// UnmarshalYAML parses a level name from a plan file.
func (l *Level) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseLevel(value.Value)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
