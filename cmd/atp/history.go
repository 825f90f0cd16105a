package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"atp/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent build runs",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10,
		"Maximum number of runs to list")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	db, err := history.Open(p.path(p.Config.Paths.History), p.Logger)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // Best effort cleanup

	runs, err := db.Recent(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	for _, run := range runs {
		rev := run.Revision
		if rev == "" {
			rev = "-"
		}
		if run.Dirty {
			rev += "*"
		}
		fmt.Printf("%s  %-8s  %3d test(s)  %3d changed  %3d stale  %s\n",
			run.StartedAt.Local().Format(time.DateTime),
			rev, run.TestCount, run.Changed, run.StaleLocks, run.RunID)
	}
	return nil
}
