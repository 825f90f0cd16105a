package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"atp/internal/lock"
	"atp/internal/render"
)

var diffJSON bool

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Report tests that changed since the last build",
	Long: `Resolves the current specification and compares content fingerprints
against the change cache without writing anything. Also reports identifier
lock drift.`,
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "Output machine-readable JSON")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	plan, err := p.loadPlan()
	if err != nil {
		return err
	}

	outcome, err := p.newPipeline().Analyze(plan)
	if err != nil {
		return err
	}

	if diffJSON {
		data, err := render.Encode(outcome)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	if len(outcome.Changed) == 0 {
		fmt.Println("No tests changed since the last build.")
	} else {
		fmt.Printf("%d test(s) changed since the last build:\n", len(outcome.Changed))
		for _, id := range outcome.Changed {
			title := ""
			if test, ok := outcome.Result.Test(id); ok {
				title = "  " + test.Title
			}
			fmt.Printf("  %s%s\n", id, title)
		}
	}
	printStaleLocks(outcome.LockReport)
	return nil
}

// printStaleLocks reports identifier lock drift on stdout
func printStaleLocks(report *lock.Report) {
	if report.OK() {
		return
	}
	fmt.Printf("%d locked identifier(s) drifted:\n", report.Stale)
	for _, e := range report.Entries {
		if e.Status != lock.StatusStale {
			continue
		}
		switch e.Reason {
		case lock.ReasonChanged:
			fmt.Printf("  %s: locked at %s, now %s\n", e.Label, e.LockedID, e.CurrentID)
		case lock.ReasonAdded:
			fmt.Printf("  %s: not in lock, now %s\n", e.Label, e.CurrentID)
		case lock.ReasonRemoved:
			fmt.Printf("  %s: locked at %s, no longer declared\n", e.Label, e.LockedID)
		}
	}
	fmt.Println("Run 'atp build --update-lock' to accept the new assignments.")
}
