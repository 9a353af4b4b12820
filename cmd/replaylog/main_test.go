package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"autoresolve/internal/formation"
	"autoresolve/internal/replay"
	"autoresolve/internal/report"
)

func recordBundle(t *testing.T, root string) string {
	t.Helper()
	clock := func() time.Time { return time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC) }
	writer, _, err := replay.NewWriter(root, "ridge", clock)
	if err != nil {
		t.Fatalf("create writer: %v", err)
	}
	writer.SetHeaderMetadata("ridge", 42, replay.RuleSet{"direct_blows": true})
	writer.Report(report.NewEvent(report.CodeAttackStart).Text("Fox Lance, unit 1 (Warhammer)").Text("Dragon Lance"))
	formations := []*formation.Formation{{ID: 1, Name: "Fox Lance", Units: []*formation.Unit{{ID: 1, Name: "Warhammer", Armor: 30, Structure: 12}}}}
	if err := writer.AppendSnapshot("start", formations); err != nil {
		t.Fatalf("append snapshot: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return writer.Directory()
}

func TestListBundles(t *testing.T) {
	root := t.TempDir()
	dir := recordBundle(t, root)

	var out bytes.Buffer
	if err := run([]string{"-dir", root}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"ridge (schema", "seed: 42", "rules: direct_blows", "events: 1, frames: 1", dir} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in:\n%s", want, out.String())
		}
	}
}

func TestPrintBundle(t *testing.T) {
	dir := recordBundle(t, t.TempDir())

	var out bytes.Buffer
	if err := run([]string{"-bundle", dir, "-frames"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"Fox Lance, unit 1 (Warhammer) attacks Dragon Lance.", "-- frame 0: start", "Warhammer armor 30 structure 12"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := run([]string{"-bundle", dir, "-json"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	var payload struct {
		Events []report.Event `json:"events"`
		Frames []replay.Frame `json:"frames"`
	}
	if err := json.Unmarshal(out.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Events) != 1 || len(payload.Frames) != 0 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestRunRequiresTarget(t *testing.T) {
	if err := run(nil, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected an error without -dir or -bundle")
	}
}
