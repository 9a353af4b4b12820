package formation

import "fmt"

// Formation is a flattened group of units resolved as one entity.
type Formation struct {
	ID         int
	Name       string
	OwnerID    int
	TeamID     int
	ParentID   int
	TopLevelID int
	Units      []*Unit
	// Movement is the slowest live member and Heat the hottest. See RefreshAggregates.
	Movement  int
	Heat      int
	Morale    MoraleStatus
	Destroyed bool
	//1.- HighStressEpisode marks that a member lost all armor since the last morale pass.
	HighStressEpisode bool
}

// UnitIDs returns the member unit identifiers in roster order.
func (f *Formation) UnitIDs() []int {
	ids := make([]int, len(f.Units))
	for i, unit := range f.Units {
		ids[i] = unit.ID
	}
	return ids
}

// Unit returns the member at index or nil when the index is out of bounds.
func (f *Formation) Unit(index int) *Unit {
	if f == nil || index < 0 || index >= len(f.Units) {
		return nil
	}
	return f.Units[index]
}

// LiveUnits counts members that have not been destroyed.
func (f *Formation) LiveUnits() int {
	live := 0
	for _, unit := range f.Units {
		if !unit.Destroyed {
			live++
		}
	}
	return live
}

// ArmorPercent returns the remaining armor across all members as 0..100.
func (f *Formation) ArmorPercent() int {
	current, capacity := 0, 0
	for _, unit := range f.Units {
		current += unit.Armor
		capacity += unit.MaxArmor
	}
	return percent(current, capacity)
}

// InternalPercent returns the remaining internal structure across all members as 0..100.
func (f *Formation) InternalPercent() int {
	current, capacity := 0, 0
	for _, unit := range f.Units {
		current += unit.Structure
		capacity += unit.MaxStructure
	}
	return percent(current, capacity)
}

// RefreshAggregates recomputes Movement and Heat from the live members. A formation with
// no live member neither moves nor runs hot.
func (f *Formation) RefreshAggregates() {
	f.Movement, f.Heat = 0, 0
	first := true
	for _, unit := range f.Units {
		if unit.Destroyed {
			continue
		}
		if first || unit.Movement < f.Movement {
			f.Movement = unit.Movement
		}
		if unit.Heat > f.Heat {
			f.Heat = unit.Heat
		}
		first = false
	}
}

// RefreshDestroyed marks the formation destroyed once no live member remains and
// reports whether that happened during this call.
func (f *Formation) RefreshDestroyed() bool {
	if f.Destroyed || len(f.Units) == 0 {
		return false
	}
	if f.LiveUnits() > 0 {
		return false
	}
	f.Destroyed = true
	return true
}

// Label renders the formation for reports.
func (f *Formation) Label() string {
	if f == nil {
		return "<none>"
	}
	if f.Name == "" {
		return fmt.Sprintf("Formation %d", f.ID)
	}
	return f.Name
}

// Clone returns a deep copy so snapshots never alias live state.
func (f *Formation) Clone() *Formation {
	if f == nil {
		return nil
	}
	clone := *f
	clone.Units = make([]*Unit, len(f.Units))
	for i, unit := range f.Units {
		clone.Units[i] = unit.Clone()
	}
	return &clone
}

func percent(current, capacity int) int {
	if capacity <= 0 {
		return 0
	}
	if current < 0 {
		current = 0
	}
	return current * 100 / capacity
}
