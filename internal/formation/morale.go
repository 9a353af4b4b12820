// Package formation holds the mutable battle state: formations, their units and weapons.
package formation

import (
	"fmt"
	"strings"
)

// MoraleStatus orders formation psychology from best to worst.
type MoraleStatus int

const (
	MoraleNormal MoraleStatus = iota
	MoraleShaken
	MoraleUnsteady
	MoraleBroken
	MoraleRouted
)

var moraleNames = [...]string{"Normal", "Shaken", "Unsteady", "Broken", "Routed"}

func (s MoraleStatus) String() string {
	if s < MoraleNormal || s > MoraleRouted {
		return fmt.Sprintf("MoraleStatus(%d)", int(s))
	}
	return moraleNames[s]
}

// Worsen returns the next worse status. Routed stays Routed.
func (s MoraleStatus) Worsen() MoraleStatus {
	if s >= MoraleRouted {
		return MoraleRouted
	}
	return s + 1
}

// WorseThan reports whether s is strictly worse than other.
func (s MoraleStatus) WorseThan(other MoraleStatus) bool {
	return s > other
}

// ParseMoraleStatus accepts the status names case-insensitively.
func ParseMoraleStatus(raw string) (MoraleStatus, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return MoraleNormal, nil
	}
	for i, name := range moraleNames {
		if strings.EqualFold(name, trimmed) {
			return MoraleStatus(i), nil
		}
	}
	return MoraleNormal, fmt.Errorf("unknown morale status %q", raw)
}
