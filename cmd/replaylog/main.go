package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"autoresolve/internal/replay"
	"autoresolve/internal/report"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("replaylog", flag.ContinueOnError)
	root := flags.String("dir", "", "list every bundle beneath this directory")
	bundlePath := flags.String("bundle", "", "print a single replay bundle")
	frames := flags.Bool("frames", false, "include formation snapshots when printing a bundle")
	jsonFlag := flags.Bool("json", false, "emit JSON instead of human-readable output")
	if err := flags.Parse(args); err != nil {
		return err
	}

	switch {
	case *bundlePath != "":
		return printBundle(stdout, *bundlePath, *frames, *jsonFlag)
	case *root != "":
		return listBundles(stdout, *root, *jsonFlag)
	default:
		return errors.New("one of -dir or -bundle is required")
	}
}

func listBundles(w io.Writer, root string, asJSON bool) error {
	entries, err := replay.List(root)
	if err != nil {
		return err
	}
	if asJSON {
		payload, err := replay.MarshalEntries(entries)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(payload))
		return nil
	}
	for _, entry := range entries {
		fmt.Fprintf(w, "%s (schema %d)\n", entry.Header.BattleID, entry.Header.SchemaVersion)
		if entry.Header.Scenario != "" {
			fmt.Fprintf(w, "  scenario: %s\n", entry.Header.Scenario)
		}
		fmt.Fprintf(w, "  seed: %d\n", entry.Header.Seed)
		if enabled := entry.Header.Rules.Enabled(); len(enabled) > 0 {
			fmt.Fprintf(w, "  rules: %s\n", strings.Join(enabled, ", "))
		}
		fmt.Fprintf(w, "  events: %d, frames: %d\n", entry.Header.Events, entry.Header.Frames)
		fmt.Fprintf(w, "  bundle: %s\n", entry.BundleDir)
	}
	return nil
}

func printBundle(w io.Writer, dir string, withFrames, asJSON bool) error {
	bundle, err := replay.Open(dir)
	if err != nil {
		return err
	}
	if asJSON {
		payload := struct {
			Header replay.Header  `json:"header"`
			Events []report.Event `json:"events"`
			Frames []replay.Frame `json:"frames,omitempty"`
		}{Header: bundle.Header, Events: bundle.ReportEvents()}
		if withFrames {
			payload.Frames = bundle.Frames()
		}
		//1.- Indented JSON so the output can be piped into other tools.
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	fmt.Fprintf(w, "%s seed %d\n", bundle.Header.BattleID, bundle.Header.Seed)
	fmt.Fprint(w, report.Render(bundle.ReportEvents()))
	if !withFrames {
		return nil
	}
	for _, frame := range bundle.Frames() {
		fmt.Fprintf(w, "-- frame %d: %s\n", frame.Seq, frame.Snapshot.Label)
		for _, f := range frame.Snapshot.Formations {
			state := f.Morale
			if f.Destroyed {
				state = "destroyed"
			}
			fmt.Fprintf(w, "   %s [%s]\n", f.Name, state)
			for _, unit := range f.Units {
				fmt.Fprintf(w, "     %s armor %d structure %d\n", unit.Name, unit.Armor, unit.Structure)
			}
		}
	}
	return nil
}
