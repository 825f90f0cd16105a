package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"atp/internal/vcs"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show project and store status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	fmt.Printf("Project root: %s\n", p.Root)
	fmt.Printf("Scripts:      %s\n", p.Config.Scripts)
	fmt.Printf("ID depth:     %d\n", p.Config.IDDepth)

	rev := vcs.Describe(p.Root)
	if rev.Known {
		fmt.Printf("Revision:     %s (dirty: %v)\n", rev.Commit, rev.Dirty)
	} else {
		fmt.Println("Revision:     not under version control")
	}

	printStore := func(name, path string) {
		state := "missing"
		if _, err := os.Stat(p.path(path)); err == nil {
			state = "present"
		}
		fmt.Printf("%-13s %s (%s)\n", name+":", path, state)
	}
	printStore("Cache", p.Config.Paths.Cache)
	printStore("ID lock", p.Config.Paths.Lock)
	printStore("History", p.Config.Paths.History)

	plan, err := p.loadPlan()
	if err != nil {
		return err
	}
	outcome, err := p.newPipeline().Analyze(plan)
	if err != nil {
		return err
	}

	fmt.Printf("Tests:        %d declared, %d changed since last build\n",
		len(outcome.Result.Tests), len(outcome.Changed))
	if outcome.LockReport.OK() {
		fmt.Printf("Lock:         %d label(s), all current\n", len(outcome.LockReport.Entries))
	} else {
		fmt.Printf("Lock:         %d of %d label(s) stale\n",
			outcome.LockReport.Stale, len(outcome.LockReport.Entries))
	}
	return nil
}
