package replay

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"autoresolve/internal/formation"
	"autoresolve/internal/logging"
	"autoresolve/internal/report"
)

func sampleFormations() []*formation.Formation {
	return []*formation.Formation{
		{
			ID: 1, Name: "Alpha", TeamID: 1,
			Units: []*formation.Unit{{ID: 10, Name: "Atlas", Armor: 20, MaxArmor: 20, Structure: 10, MaxStructure: 10}},
		},
		{
			ID: 2, Name: "Bravo", TeamID: 2, Morale: formation.MoraleShaken, HighStressEpisode: true,
			Units: []*formation.Unit{{ID: 20, Name: "Locust", Armor: 0, Structure: 3, MaxStructure: 6, DamageCrits: 1, Crippled: true}},
		},
	}
}

func fixedClock() func() time.Time {
	now := time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}
}

func TestWriterRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	writer, manifest, err := NewWriter(tmp, "Battle #1", fixedClock())
	if err != nil {
		t.Fatalf("create writer: %v", err)
	}
	if manifest.EventsPath != EventsFile || manifest.FramesPath != FramesFile {
		t.Fatalf("unexpected manifest %+v", manifest)
	}
	if filepath.Base(writer.Directory()) != "Battle1-20240710T120000Z" {
		t.Fatalf("unexpected bundle dir %s", writer.Directory())
	}
	writer.SetHeaderMetadata("ridge.yaml", 99, RuleSet{"altered_damage": true, "direct_blows": false})

	//1.- Record a short battle: two events and two snapshots.
	events := []report.Event{
		report.NewEvent(report.CodeAttackStart).Text("Alpha, unit 1 (Atlas)").Text("Bravo"),
		report.NewEvent(report.CodeAttackRoll).Indented(1).NoNL().Text("Alpha").Text("9 (4+5)"),
	}
	for _, ev := range events {
		writer.Report(ev)
	}
	formations := sampleFormations()
	if err := writer.AppendSnapshot("start", formations); err != nil {
		t.Fatalf("append snapshot: %v", err)
	}
	formations[0].Units[0].Armor = 15
	if err := writer.AppendSnapshot("attack 1", formations); err != nil {
		t.Fatalf("append snapshot: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	//2.- Load it back and compare.
	bundle, err := Open(writer.Directory())
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}
	if bundle.Header.Seed != 99 || bundle.Header.Scenario != "ridge.yaml" || bundle.Header.BattleID != "Battle #1" {
		t.Fatalf("unexpected header %+v", bundle.Header)
	}
	if got := bundle.Header.Rules.Enabled(); !reflect.DeepEqual(got, []string{"altered_damage"}) {
		t.Fatalf("unexpected enabled rules %v", got)
	}
	if got := bundle.ReportEvents(); !reflect.DeepEqual(got, events) {
		t.Fatalf("events did not survive the round trip:\n%+v\n%+v", got, events)
	}
	frames := bundle.Frames()
	if len(frames) != 2 || frames[1].Seq != 1 || frames[1].Snapshot.Label != "attack 1" {
		t.Fatalf("unexpected frames %+v", frames)
	}
	if got := frames[0].Snapshot.Formations[0].Units[0].Armor; got != 20 {
		t.Fatalf("first frame should hold the original armor, got %d", got)
	}
	if got := frames[1].Snapshot.Formations[0].Units[0].Armor; got != 15 {
		t.Fatalf("second frame should hold the damaged armor, got %d", got)
	}
	bravo := frames[0].Snapshot.Formations[1]
	if bravo.Morale != "Shaken" || !bravo.HighStressEpisode || !bravo.Units[0].Crippled || bravo.Units[0].DamageCrits != 1 {
		t.Fatalf("unexpected formation state %+v", bravo)
	}
}

func TestWriterDropsEventsAfterClose(t *testing.T) {
	writer, _, err := NewWriter(t.TempDir(), "late", fixedClock())
	if err != nil {
		t.Fatalf("create writer: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	writer.Report(report.NewEvent(report.CodeNoCrit))
	if err := writer.AppendSnapshot("late", nil); err == nil {
		t.Fatalf("expected error appending after close")
	}
	bundle, err := Open(writer.Directory())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(bundle.Events()) != 0 {
		t.Fatalf("events after close must be dropped")
	}
}

func TestOpenDetectsTruncatedLog(t *testing.T) {
	writer, _, err := NewWriter(t.TempDir(), "cut", fixedClock())
	if err != nil {
		t.Fatalf("create writer: %v", err)
	}
	writer.Report(report.NewEvent(report.CodeNoCrit))
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	headerPath := filepath.Join(writer.Directory(), HeaderFile)
	header, err := ReadHeader(headerPath)
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	header.Events = 5
	if err := WriteHeader(headerPath, header); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if _, err := Open(writer.Directory()); err == nil {
		t.Fatalf("expected count mismatch error")
	}
}

func TestHeaderValidation(t *testing.T) {
	cases := []Header{
		{SchemaVersion: 0, BattleID: "b", FilePointer: ManifestFile},
		{SchemaVersion: 1, BattleID: " ", FilePointer: ManifestFile},
		{SchemaVersion: 1, BattleID: "b", FilePointer: ""},
	}
	for _, header := range cases {
		if err := header.Validate(); err == nil {
			t.Fatalf("expected validation error for %+v", header)
		}
	}
	if err := WriteHeader(filepath.Join(t.TempDir(), "x", HeaderFile), cases[0]); err == nil {
		t.Fatalf("WriteHeader must validate")
	}
}

func TestListOrdersByBattle(t *testing.T) {
	root := t.TempDir()
	for _, id := range []string{"zulu", "alpha"} {
		writer, _, err := NewWriter(root, id, fixedClock())
		if err != nil {
			t.Fatalf("create writer: %v", err)
		}
		if err := writer.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	entries, err := List(root)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].Header.BattleID != "alpha" || entries[1].Header.BattleID != "zulu" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if _, err := MarshalEntries(entries); err != nil {
		t.Fatalf("MarshalEntries: %v", err)
	}
	if _, err := List(filepath.Join(root, "missing")); err == nil {
		t.Fatalf("expected error for missing root")
	}
}

func TestWritersNeverShareABundle(t *testing.T) {
	root := t.TempDir()
	clock := func() time.Time { return time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC) }

	//1.- Both ids clean to "RidgeFight" and start within the same second.
	var dirs []string
	for i, id := range []string{"Ridge Fight", "RidgeFight"} {
		writer, _, err := NewWriter(root, id, clock)
		if err != nil {
			t.Fatalf("create writer: %v", err)
		}
		writer.Report(report.NewEvent(report.CodeAttackStart).Text(id).Number(i))
		if err := writer.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		dirs = append(dirs, writer.Directory())
	}
	if dirs[0] == dirs[1] {
		t.Fatalf("writers collided on %s", dirs[0])
	}
	if filepath.Base(dirs[1]) != "RidgeFight-20240710T120000Z-2" {
		t.Fatalf("unexpected second bundle dir %s", dirs[1])
	}

	//2.- Each bundle still holds only its own battle.
	for i, id := range []string{"Ridge Fight", "RidgeFight"} {
		bundle, err := Open(dirs[i])
		if err != nil {
			t.Fatalf("open %s: %v", dirs[i], err)
		}
		events := bundle.ReportEvents()
		if bundle.Header.BattleID != id || len(events) != 1 || events[0].Args[1].Number != i {
			t.Fatalf("bundle %d mixed battles: %+v %+v", i, bundle.Header, events)
		}
	}
	entries, err := List(root)
	if err != nil || len(entries) != 2 {
		t.Fatalf("expected two listed bundles, got %d (%v)", len(entries), err)
	}
}

func writeBundle(t *testing.T, root, name string, modTime time.Time) {
	t.Helper()
	dir := filepath.Join(root, name)
	header := Header{SchemaVersion: HeaderSchemaVersion, BattleID: name, FilePointer: ManifestFile}
	if err := WriteHeader(filepath.Join(dir, HeaderFile), header); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, EventsFile), make([]byte, 32), 0o644); err != nil {
		t.Fatalf("write events: %v", err)
	}
	if err := os.Chtimes(filepath.Join(dir, HeaderFile), modTime, modTime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func TestCleanerEnforcesMaxBundles(t *testing.T) {
	tmp := t.TempDir()
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	writeBundle(t, tmp, "alpha", now.Add(-3*time.Hour))
	writeBundle(t, tmp, "bravo", now.Add(-2*time.Hour))
	writeBundle(t, tmp, "charlie", now.Add(-time.Hour))
	if err := os.Mkdir(filepath.Join(tmp, "notes"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cleaner := NewCleaner(tmp, RetentionPolicy{MaxBundles: 2}, logging.NewTestLogger())
	cleaner.now = func() time.Time { return now }
	stats, err := cleaner.Sweep()
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if stats.Bundles != 2 || stats.Removed != 1 || stats.Bytes == 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if _, err := os.Stat(filepath.Join(tmp, "alpha")); !os.IsNotExist(err) {
		t.Fatalf("oldest bundle should be removed")
	}
	if _, err := os.Stat(filepath.Join(tmp, "notes")); err != nil {
		t.Fatalf("non-bundle directories must be left alone: %v", err)
	}
}

func TestCleanerEnforcesMaxAge(t *testing.T) {
	tmp := t.TempDir()
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	writeBundle(t, tmp, "old", now.Add(-48*time.Hour))
	writeBundle(t, tmp, "new", now.Add(-time.Hour))

	cleaner := NewCleaner(tmp, RetentionPolicy{MaxAge: 24 * time.Hour}, logging.NewTestLogger())
	cleaner.now = func() time.Time { return now }
	stats, err := cleaner.Sweep()
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if stats.Bundles != 1 || stats.Removed != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
