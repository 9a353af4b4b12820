package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"autoresolve/internal/report"
)

const ridge = "../../internal/scenario/testdata/ridge.yaml"

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AUTORESOLVE_LOG_PATH", filepath.Join(dir, "autoresolve.log"))
	return dir
}

func TestRunPrintsReportsAndPrunesReplays(t *testing.T) {
	dir := isolate(t)
	replays := filepath.Join(dir, "replays")
	t.Setenv("AUTORESOLVE_REPLAY_DIR", replays)
	t.Setenv("AUTORESOLVE_REPLAY_MAX_BUNDLES", "1")
	t.Setenv("AUTORESOLVE_WORKERS", "2")

	var out bytes.Buffer
	if err := run(context.Background(), []string{ridge, ridge}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	for _, want := range []string{"== ridge ==", "== ridge-2 ==", "(Warhammer) attacks Dragon Lance.", "replay: "} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output:\n%s", want, text)
		}
	}
	entries, err := os.ReadDir(replays)
	if err != nil {
		t.Fatalf("read replays: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("retention should keep one bundle, found %d", len(entries))
	}
}

func TestRunQuietAndUsage(t *testing.T) {
	isolate(t)
	var out bytes.Buffer
	if err := run(context.Background(), []string{"-quiet", ridge}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Contains(out.String(), "attacks") || !strings.Contains(out.String(), "Dragon Lance") {
		t.Fatalf("quiet output should hold only the summary:\n%s", out.String())
	}
	if err := run(context.Background(), nil, &out); err == nil || !strings.Contains(err.Error(), "usage") {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestRunMergesExtraWeapons(t *testing.T) {
	dir := isolate(t)
	extra := filepath.Join(dir, "weapons.yaml")
	if err := os.WriteFile(extra, []byte("weapons:\n  - name: PPC\n    damage: 1\n    ranges: {short: 40, medium: 41, long: 42, extreme: 43}\n"), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	var out bytes.Buffer
	if err := run(context.Background(), []string{"-weapons", extra, ridge}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	//1.- The overridden PPC reaches 30 hexes, so the third attack is no longer out of range.
	if strings.Contains(out.String(), "out of range") {
		t.Fatalf("merged catalog was not applied:\n%s", out.String())
	}
}

func TestRunKeepsBattleIDsAndBundlesUnique(t *testing.T) {
	dir := isolate(t)
	replays := filepath.Join(dir, "replays")
	t.Setenv("AUTORESOLVE_REPLAY_DIR", replays)
	t.Setenv("AUTORESOLVE_WORKERS", "3")
	base, err := os.ReadFile(ridge)
	if err != nil {
		t.Fatalf("read scenario: %v", err)
	}

	//1.- Two scenarios called x and one called x-2, which the second x would otherwise claim.
	var paths []string
	for i, name := range []string{"x", "x", "x-2"} {
		path := filepath.Join(dir, fmt.Sprintf("s%d.yaml", i))
		doc := strings.Replace(string(base), "name: ridge", "name: "+name, 1)
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			t.Fatalf("write scenario: %v", err)
		}
		paths = append(paths, path)
	}
	var out bytes.Buffer
	if err := run(context.Background(), append([]string{"-quiet"}, paths...), &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"== x ==", "== x-2 ==", "== x-2-2 =="} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in output:\n%s", want, out.String())
		}
	}

	//2.- Every battle got its own replay bundle.
	entries, err := os.ReadDir(replays)
	if err != nil {
		t.Fatalf("read replays: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected three bundles, found %d", len(entries))
	}
}

func TestRunStreamsToViewer(t *testing.T) {
	isolate(t)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	received := make(chan []report.Envelope, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var frames []report.Envelope
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				received <- frames
				return
			}
			var env report.Envelope
			if json.Unmarshal(data, &env) == nil {
				frames = append(frames, env)
			}
		}
	}))
	defer srv.Close()
	t.Setenv("AUTORESOLVE_VIEWER_URL", "ws"+strings.TrimPrefix(srv.URL, "http"))

	//1.- Two copies of the same scenario interleave on one connection.
	t.Setenv("AUTORESOLVE_WORKERS", "2")
	var out bytes.Buffer
	if err := run(context.Background(), []string{ridge, ridge}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	select {
	case frames := <-received:
		if len(frames) == 0 || frames[0].Event.Code != report.CodeAttackStart {
			t.Fatalf("viewer should receive the report stream, got %+v", frames)
		}
		//2.- Every frame names its battle, and both battles streamed the same amount.
		counts := make(map[string]int)
		for _, env := range frames {
			counts[env.BattleID]++
		}
		if len(counts) != 2 || counts["ridge"] == 0 || counts["ridge"] != counts["ridge-2"] {
			t.Fatalf("frames should be tagged per battle, got %v", counts)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("viewer never saw the connection close")
	}
}
