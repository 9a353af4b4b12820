package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"

	"autoresolve/internal/battle"
	"autoresolve/internal/combat"
	"autoresolve/internal/config"
	"autoresolve/internal/logging"
	"autoresolve/internal/replay"
	"autoresolve/internal/report"
	"autoresolve/internal/scenario"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("autoresolve", flag.ContinueOnError)
	weapons := flags.String("weapons", "", "extra YAML weapon catalog merged over the built-in one")
	quiet := flags.Bool("quiet", false, "print only the battle summaries")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		return errors.New("usage: autoresolve [-weapons file] [-quiet] scenario.yaml...")
	}

	//1.- Configuration and logging come first so every later failure is recorded.
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Sync()
	ctx = logging.ContextWithLogger(ctx, logger)

	catalog, err := scenario.BuiltinCatalog()
	if err != nil {
		return err
	}
	if *weapons != "" {
		data, err := os.ReadFile(*weapons)
		if err != nil {
			return fmt.Errorf("read weapon catalog: %w", err)
		}
		extra, err := scenario.ParseCatalog(data)
		if err != nil {
			return err
		}
		if err := catalog.Merge(extra.Specs()); err != nil {
			return err
		}
	}

	//2.- Every scenario is built before any battle starts.
	defaults := scenario.Defaults{Seed: cfg.Seed, Rules: ruleFlags(cfg.Rules), MaxFormationUnits: cfg.MaxFormationUnits}
	specs := make([]battle.Spec, 0, flags.NArg())
	taken := make(map[string]bool)
	for _, path := range flags.Args() {
		file, err := scenario.Load(path)
		if err != nil {
			return err
		}
		id := file.Name
		for n := 2; taken[id]; n++ {
			id = fmt.Sprintf("%s-%d", file.Name, n)
		}
		taken[id] = true
		spec, err := file.Build(id, catalog, defaults)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		specs = append(specs, spec)
	}

	opts := battle.Options{Suppress: cfg.SuppressReports, ReplayDir: cfg.ReplayDir}
	if cfg.ViewerURL != "" {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.ViewerURL, nil)
		if err != nil {
			logger.Warn("report viewer unavailable", logging.String("url", cfg.ViewerURL), logging.Error(err))
		} else {
			defer conn.Close()
			viewer := report.NewWebSocketSink(conn)
			opts.Sink = viewer
			defer func() {
				logger.Info("report viewer detached", logging.Int("sent", viewer.Sent()), logging.Error(viewer.Err()))
			}()
		}
	}

	results, err := battle.RunAll(ctx, specs, cfg.Workers, opts)
	if err != nil {
		return err
	}
	for _, result := range results {
		printResult(stdout, result, *quiet)
	}

	//3.- Retention runs after the new bundles are on disk.
	if cfg.ReplayDir != "" && (cfg.Replay.MaxBundles > 0 || cfg.Replay.MaxAge > 0) {
		cleaner := replay.NewCleaner(cfg.ReplayDir, replay.RetentionPolicy{MaxBundles: cfg.Replay.MaxBundles, MaxAge: cfg.Replay.MaxAge}, logger)
		if _, err := cleaner.Sweep(); err != nil {
			logger.Warn("replay retention failed", logging.Error(err))
		}
	}
	return nil
}

func printResult(w io.Writer, result *battle.Result, quiet bool) {
	fmt.Fprintf(w, "== %s ==\n", result.ID)
	if !quiet {
		fmt.Fprint(w, report.Render(result.Events))
	}
	for _, f := range result.Formations {
		status := f.Morale.String()
		if f.Destroyed {
			status = "destroyed"
		}
		fmt.Fprintf(w, "%-24s armor %3d%%  internal %3d%%  %s\n", f.Name, f.ArmorPercent(), f.InternalPercent(), status)
	}
	if result.ReplayDir != "" {
		fmt.Fprintf(w, "replay: %s\n", result.ReplayDir)
	}
}

func ruleFlags(rules config.RulesConfig) combat.RuleFlags {
	return combat.RuleFlags{
		DialDownDamage:       rules.DialDownDamage,
		AlteredDamage:        rules.AlteredDamage,
		ExtendedRangeHalving: rules.ExtendedRangeHalving,
		ExtremeRangeThirding: rules.ExtremeRangeThirding,
		DirectBlows:          rules.DirectBlows,
		GlancingBlows:        rules.GlancingBlows,
	}
}
