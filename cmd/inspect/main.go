package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/worldsim/internal/rules"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to worldsim.db")
	last := flag.Int("last", 20, "show N most recent log records")
	table := flag.String("table", "rules", "what to show: rules | mutations | scores | actions")
	jsonOut := flag.Bool("json", false, "output as JSON instead of text")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/worldsim.db [--table rules|mutations|scores|actions] [--last N] [--json]")
		os.Exit(2)
	}

	store, err := rules.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := run(store, *table, *last, *jsonOut); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region modes

func run(store *rules.Store, table string, last int, jsonOut bool) error {
	switch table {
	case "rules":
		return showRules(store, jsonOut)
	case "mutations":
		return showMutations(store, last, jsonOut)
	case "scores":
		return showScores(store, last, jsonOut)
	case "actions":
		return showActions(store, last, jsonOut)
	default:
		return fmt.Errorf("unknown table %q", table)
	}
}

func showRules(store *rules.Store, jsonOut bool) error {
	reg, err := store.LoadRegistry()
	if err != nil {
		return err
	}
	all := reg.All()
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(all)
	}
	if len(all) == 0 {
		fmt.Fprintln(os.Stderr, "no rules found")
		return nil
	}
	fmt.Printf("%-24s %-12s %9s %9s %8s\n", "RULE", "ORIGIN", "THRESHOLD", "TRUST", "ENABLED")
	for _, r := range all {
		fmt.Printf("%-24s %-12s %9.3f %9.3f %8v\n", r.ID, r.Origin, r.Threshold, r.TrustWeight, r.Enabled)
	}
	return nil
}

func showMutations(store *rules.Store, last int, jsonOut bool) error {
	muts, err := store.ListMutations(last)
	if err != nil {
		return err
	}
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(muts)
	}
	for _, m := range muts {
		dry := ""
		if m.DryRun {
			dry = " (dry run)"
		}
		fmt.Printf("%s  %-24s %.3f -> %.3f%s\n", m.At.Format("2006-01-02 15:04:05"), m.RuleID, m.From, m.To, dry)
	}
	return nil
}

func showScores(store *rules.Store, last int, jsonOut bool) error {
	scores, err := store.ListScores(last)
	if err != nil {
		return err
	}
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(scores)
	}
	for _, s := range scores {
		fmt.Printf("%s  %-24s score=%.3f\n", s.At.Format("2006-01-02 15:04:05"), s.RuleID, s.Score)
	}
	return nil
}

func showActions(store *rules.Store, last int, jsonOut bool) error {
	actions, err := store.ListActions(last)
	if err != nil {
		return err
	}
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(actions)
	}
	for _, a := range actions {
		dry := ""
		if a.DryRun {
			dry = " (dry run)"
		}
		fmt.Printf("%s  %-24s %s%s\n", a.At.Format("2006-01-02 15:04:05"), a.RuleID, a.Action, dry)
	}
	return nil
}

// #endregion modes
