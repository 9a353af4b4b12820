package replay

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"autoresolve/internal/formation"
)

// UnitState is the per-unit slice of a snapshot.
type UnitState struct {
	ID             int
	Name           string
	Armor          int
	Structure      int
	TargetingCrits int
	DamageCrits    int
	Crippled       bool
	Destroyed      bool
}

// FormationState is the per-formation slice of a snapshot.
type FormationState struct {
	ID                int
	Name              string
	TeamID            int
	Morale            string
	Destroyed         bool
	HighStressEpisode bool
	Movement          int
	Heat              int
	Units             []UnitState
}

// Snapshot captures formation state after a step of a battle.
type Snapshot struct {
	Seq        uint64
	Label      string
	Formations []FormationState
}

// TakeSnapshot copies the mutable combat state out of the formations.
func TakeSnapshot(seq uint64, label string, formations []*formation.Formation) Snapshot {
	snap := Snapshot{Seq: seq, Label: label, Formations: make([]FormationState, 0, len(formations))}
	for _, f := range formations {
		state := FormationState{
			ID:                f.ID,
			Name:              f.Name,
			TeamID:            f.TeamID,
			Morale:            f.Morale.String(),
			Destroyed:         f.Destroyed,
			HighStressEpisode: f.HighStressEpisode,
			Movement:          f.Movement,
			Heat:              f.Heat,
			Units:             make([]UnitState, 0, len(f.Units)),
		}
		for _, u := range f.Units {
			state.Units = append(state.Units, UnitState{
				ID:             u.ID,
				Name:           u.Name,
				Armor:          u.Armor,
				Structure:      u.Structure,
				TargetingCrits: u.TargetingCrits,
				DamageCrits:    u.DamageCrits,
				Crippled:       u.Crippled,
				Destroyed:      u.Destroyed,
			})
		}
		snap.Formations = append(snap.Formations, state)
	}
	return snap
}

// ToProto encodes the snapshot as a protobuf Struct.
func (s Snapshot) ToProto() (*structpb.Struct, error) {
	formations := make([]any, 0, len(s.Formations))
	for _, f := range s.Formations {
		units := make([]any, 0, len(f.Units))
		for _, u := range f.Units {
			units = append(units, map[string]any{
				"id":              u.ID,
				"name":            u.Name,
				"armor":           u.Armor,
				"structure":       u.Structure,
				"targeting_crits": u.TargetingCrits,
				"damage_crits":    u.DamageCrits,
				"crippled":        u.Crippled,
				"destroyed":       u.Destroyed,
			})
		}
		formations = append(formations, map[string]any{
			"id":                  f.ID,
			"name":                f.Name,
			"team_id":             f.TeamID,
			"morale":              f.Morale,
			"destroyed":           f.Destroyed,
			"high_stress_episode": f.HighStressEpisode,
			"movement":            f.Movement,
			"heat":                f.Heat,
			"units":               units,
		})
	}
	return structpb.NewStruct(map[string]any{
		"seq":        float64(s.Seq),
		"label":      s.Label,
		"formations": formations,
	})
}

// SnapshotFromProto reverses ToProto.
func SnapshotFromProto(msg *structpb.Struct) (Snapshot, error) {
	if msg == nil {
		return Snapshot{}, fmt.Errorf("nil snapshot message")
	}
	fields := msg.GetFields()
	snap := Snapshot{
		Seq:   uint64(fields["seq"].GetNumberValue()),
		Label: fields["label"].GetStringValue(),
	}
	for _, raw := range fields["formations"].GetListValue().GetValues() {
		f := raw.GetStructValue().GetFields()
		if f == nil {
			return Snapshot{}, fmt.Errorf("snapshot %d: formation entry is not an object", snap.Seq)
		}
		state := FormationState{
			ID:                int(f["id"].GetNumberValue()),
			Name:              f["name"].GetStringValue(),
			TeamID:            int(f["team_id"].GetNumberValue()),
			Morale:            f["morale"].GetStringValue(),
			Destroyed:         f["destroyed"].GetBoolValue(),
			HighStressEpisode: f["high_stress_episode"].GetBoolValue(),
			Movement:          int(f["movement"].GetNumberValue()),
			Heat:              int(f["heat"].GetNumberValue()),
		}
		for _, rawUnit := range f["units"].GetListValue().GetValues() {
			u := rawUnit.GetStructValue().GetFields()
			state.Units = append(state.Units, UnitState{
				ID:             int(u["id"].GetNumberValue()),
				Name:           u["name"].GetStringValue(),
				Armor:          int(u["armor"].GetNumberValue()),
				Structure:      int(u["structure"].GetNumberValue()),
				TargetingCrits: int(u["targeting_crits"].GetNumberValue()),
				DamageCrits:    int(u["damage_crits"].GetNumberValue()),
				Crippled:       u["crippled"].GetBoolValue(),
				Destroyed:      u["destroyed"].GetBoolValue(),
			})
		}
		snap.Formations = append(snap.Formations, state)
	}
	return snap, nil
}
