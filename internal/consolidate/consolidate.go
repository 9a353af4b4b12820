// Package consolidate flattens a hierarchical roster of groups into formations.
package consolidate

import (
	"errors"
	"fmt"

	"autoresolve/internal/formation"
)

var (
	// ErrDuplicateUnit is returned when a unit id is listed by more than one group.
	ErrDuplicateUnit = errors.New("duplicate unit")
	// ErrMalformedRoster covers broken group topology and dangling references.
	ErrMalformedRoster = errors.New("malformed roster")
)

// Player owns groups and decides their team.
type Player struct {
	ID   int    `yaml:"id"`
	Team int    `yaml:"team"`
	Name string `yaml:"name"`
}

// Group is one node of the roster tree. Parent 0 marks a top-level group.
type Group struct {
	ID     int    `yaml:"id"`
	Name   string `yaml:"name"`
	Owner  int    `yaml:"owner"`
	Parent int    `yaml:"parent"`
	Subs   []int  `yaml:"subs"`
	Units  []int  `yaml:"units"`
}

// Roster is the consolidation input.
type Roster struct {
	Players []Player          `yaml:"players"`
	Groups  []Group           `yaml:"groups"`
	Units   []*formation.Unit `yaml:"-"`
}

// Consolidator turns a roster into formations, all or nothing.
type Consolidator interface {
	Consolidate(roster Roster) ([]*formation.Formation, error)
}

// UseCurrentGroups keeps every group as one formation regardless of size.
type UseCurrentGroups struct{}

// Consolidate implements Consolidator.
func (UseCurrentGroups) Consolidate(roster Roster) ([]*formation.Formation, error) {
	return build(roster, 0)
}

// Bounded splits groups larger than MaxUnits into consecutive formations.
type Bounded struct {
	MaxUnits int
}

// Consolidate implements Consolidator.
func (b Bounded) Consolidate(roster Roster) ([]*formation.Formation, error) {
	if b.MaxUnits < 1 {
		return nil, fmt.Errorf("bounded consolidation needs a positive unit cap, got %d: %w", b.MaxUnits, ErrMalformedRoster)
	}
	return build(roster, b.MaxUnits)
}

type queued struct {
	group    *Group
	topLevel int
}

type index struct {
	players map[int]Player
	groups  map[int]*Group
	units   map[int]*formation.Unit
	// children preserves declaration order: listed subs first, then groups naming the parent.
	children map[int][]int
}

func newIndex(roster Roster) (*index, error) {
	idx := &index{
		players:  make(map[int]Player, len(roster.Players)),
		groups:   make(map[int]*Group, len(roster.Groups)),
		units:    make(map[int]*formation.Unit, len(roster.Units)),
		children: make(map[int][]int),
	}
	for _, player := range roster.Players {
		if _, dup := idx.players[player.ID]; dup {
			return nil, fmt.Errorf("player %d declared twice: %w", player.ID, ErrMalformedRoster)
		}
		idx.players[player.ID] = player
	}
	for _, unit := range roster.Units {
		if unit == nil {
			return nil, fmt.Errorf("nil unit definition: %w", ErrMalformedRoster)
		}
		if _, dup := idx.units[unit.ID]; dup {
			return nil, fmt.Errorf("unit %d defined twice: %w", unit.ID, ErrDuplicateUnit)
		}
		idx.units[unit.ID] = unit
	}
	for i := range roster.Groups {
		group := &roster.Groups[i]
		if group.ID <= 0 {
			return nil, fmt.Errorf("group %q has non-positive id %d: %w", group.Name, group.ID, ErrMalformedRoster)
		}
		if _, dup := idx.groups[group.ID]; dup {
			return nil, fmt.Errorf("group %d declared twice: %w", group.ID, ErrMalformedRoster)
		}
		idx.groups[group.ID] = group
	}

	//1.- Resolve links once so traversal never meets a dangling id.
	for _, group := range roster.Groups {
		if group.Parent != 0 {
			if _, ok := idx.groups[group.Parent]; !ok {
				return nil, fmt.Errorf("group %d names missing parent %d: %w", group.ID, group.Parent, ErrMalformedRoster)
			}
		}
		for _, sub := range group.Subs {
			if _, ok := idx.groups[sub]; !ok {
				return nil, fmt.Errorf("group %d lists missing sub-group %d: %w", group.ID, sub, ErrMalformedRoster)
			}
			idx.children[group.ID] = appendUnique(idx.children[group.ID], sub)
		}
	}
	for _, group := range roster.Groups {
		if group.Parent != 0 {
			idx.children[group.Parent] = appendUnique(idx.children[group.Parent], group.ID)
		}
	}
	return idx, nil
}

func appendUnique(ids []int, id int) []int {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// build walks the roster breadth first from its top-level groups. maxUnits 0 means no cap.
func build(roster Roster, maxUnits int) ([]*formation.Formation, error) {
	idx, err := newIndex(roster)
	if err != nil {
		return nil, err
	}

	queue := make([]queued, 0, len(roster.Groups))
	for i := range roster.Groups {
		if roster.Groups[i].Parent == 0 {
			queue = append(queue, queued{group: &roster.Groups[i], topLevel: roster.Groups[i].ID})
		}
	}

	visited := make(map[int]bool, len(roster.Groups))
	owners := make(map[int]int, len(roster.Units))
	var formations []*formation.Formation

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		group := next.group
		if visited[group.ID] {
			return nil, fmt.Errorf("group %d reached twice: %w", group.ID, ErrMalformedRoster)
		}
		visited[group.ID] = true

		player, ok := idx.players[group.Owner]
		if !ok {
			return nil, fmt.Errorf("group %d owned by unknown player %d: %w", group.ID, group.Owner, ErrMalformedRoster)
		}

		units := make([]*formation.Unit, 0, len(group.Units))
		for _, unitID := range group.Units {
			if first, seen := owners[unitID]; seen {
				return nil, fmt.Errorf("unit %d in group %d already belongs to group %d: %w", unitID, group.ID, first, ErrDuplicateUnit)
			}
			owners[unitID] = group.ID
			unit, ok := idx.units[unitID]
			if !ok {
				return nil, fmt.Errorf("group %d lists undefined unit %d: %w", group.ID, unitID, ErrMalformedRoster)
			}
			units = append(units, unit.Clone())
		}

		for _, chunk := range chunks(units, maxUnits) {
			name := group.Name
			if chunk.part > 1 {
				name = fmt.Sprintf("%s #%d", group.Name, chunk.part)
			}
			f := &formation.Formation{
				ID:         len(formations) + 1,
				Name:       name,
				OwnerID:    player.ID,
				TeamID:     player.Team,
				ParentID:   group.Parent,
				TopLevelID: next.topLevel,
				Units:      chunk.units,
			}
			f.RefreshAggregates()
			formations = append(formations, f)
		}

		for _, child := range idx.children[group.ID] {
			queue = append(queue, queued{group: idx.groups[child], topLevel: next.topLevel})
		}
	}

	//2.- Anything left unvisited hangs off a cycle with no top-level root.
	for _, group := range roster.Groups {
		if !visited[group.ID] {
			return nil, fmt.Errorf("group %d is not reachable from any top-level group: %w", group.ID, ErrMalformedRoster)
		}
	}
	return formations, nil
}

type chunk struct {
	part  int
	units []*formation.Unit
}

func chunks(units []*formation.Unit, maxUnits int) []chunk {
	if len(units) == 0 {
		return nil
	}
	if maxUnits <= 0 || len(units) <= maxUnits {
		return []chunk{{part: 1, units: units}}
	}
	var out []chunk
	for start := 0; start < len(units); start += maxUnits {
		end := start + maxUnits
		if end > len(units) {
			end = len(units)
		}
		out = append(out, chunk{part: len(out) + 1, units: units[start:end:end]})
	}
	return out
}
