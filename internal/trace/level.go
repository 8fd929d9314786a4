package trace

import (
	"fmt"
	"strings"
)

// Level controls which scopes reach the output.
type Level uint8

const (
	LevelOff    Level = iota
	LevelPhase        // runs and passes
	LevelDetail       // + assemblies
	LevelDebug        // + renames, widened members, skipped resources
)

var levelNames = [...]string{"off", "phase", "detail", "debug"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel is case-insensitive.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level %q (want %s)", s, strings.Join(levelNames[:], "|"))
}

// ShouldEmit reports whether events of scope pass the level.
func (l Level) ShouldEmit(scope Scope) bool {
	if l == LevelOff || l > LevelDebug {
		return false
	}
	// phase пропускает run и pass, каждый следующий уровень добавляет один scope
	return scope <= Scope(l)+ScopeRun
}
