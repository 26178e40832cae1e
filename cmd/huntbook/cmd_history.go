package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"huntbook/internal/format"
	"huntbook/internal/store"
)

var historyFlags struct {
	kind  string
	limit int
	db    string
}

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show past catalog runs, or the per-query breakdown of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyFlags.kind, "kind", "", "Filter by entity kind (Device or User)")
	f.IntVar(&historyFlags.limit, "limit", 20, "Max runs to show")
	f.StringVar(&historyFlags.db, "db", "", "Run-history DB path (default from config)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dbPath := historyFlags.db
	if dbPath == "" {
		dbPath = cfg.DBPath
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if len(args) > 0 {
		runID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("run ID must be a number, got %q", args[0])
		}
		return printRunResults(cmd, st, runID)
	}

	kindFilter := ""
	if historyFlags.kind != "" {
		kind, err := parseKindArg(historyFlags.kind)
		if err != nil {
			return err
		}
		kindFilter = string(kind)
	}

	runs, err := st.ListRuns(kindFilter, historyFlags.limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no recorded runs")
		return nil
	}

	tbl := format.NewTable(format.ASCII)
	tbl.Header("ID", "Kind", "Entity", "Time frame", "Started", "Hits", "Run", "Failed")
	tbl.Columns(
		format.Column{Number: 1, Right: true},
		format.Column{Number: 6, Right: true},
		format.Column{Number: 7, Right: true},
		format.Column{Number: 8, Right: true},
	)
	for _, r := range runs {
		tbl.Row(r.ID, r.EntityKind, r.EntityID, r.TimeFrame, r.StartedAt, r.TotalHits, r.QueriesRun, r.QueriesFailed)
	}
	fmt.Fprintln(cmd.OutOrStdout(), tbl.String())
	return nil
}

func printRunResults(cmd *cobra.Command, st *store.Store, runID int64) error {
	results, err := st.ResultsForRun(runID)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no results for run %d\n", runID)
		return nil
	}

	tbl := format.NewTable(format.ASCII)
	tbl.Header("Query", "Hits", "Duration", "Error")
	tbl.Columns(format.Column{Number: 2, Right: true}, format.Column{Number: 4, MaxWidth: 60})
	for _, r := range results {
		tbl.Row(r.QueryName, r.HitCount, fmt.Sprintf("%dms", r.DurationMS), r.Error)
	}
	fmt.Fprintln(cmd.OutOrStdout(), tbl.String())
	return nil
}
