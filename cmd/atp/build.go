package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"atp/internal/history"
	"atp/internal/render"
	"atp/internal/selection"
	"atp/internal/vcs"
)

var (
	buildSelect     string
	buildDiffOnly   bool
	buildUpdateLock bool
	buildOutput     string
	buildFormat     string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build test procedure documents",
	Long: `Loads every specification document, resolves labels and identifiers,
writes the rendered documents, and updates the change cache. Selection
narrows which documents are written; the cache always covers every test.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildSelect, "select", "s", "",
		"Only output matching tests, e.g. \"1 3.2-5\"")
	buildCmd.Flags().BoolVar(&buildDiffOnly, "diff", false,
		"Only output tests that changed since the last build")
	buildCmd.Flags().BoolVar(&buildUpdateLock, "update-lock", false,
		"Refresh the identifier lock with current assignments")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "",
		"Output directory (default from config)")
	buildCmd.Flags().StringVar(&buildFormat, "format", "json",
		"Document format: json or yaml")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	startedAt := time.Now()

	p, err := loadProject()
	if err != nil {
		return err
	}

	plan, err := p.loadPlan()
	if err != nil {
		return err
	}

	query, err := selection.Parse(buildSelect, plan.Depth)
	if err != nil {
		return err
	}

	pipeline := p.newPipeline()
	outcome, err := pipeline.Execute(plan, buildUpdateLock)
	if err != nil {
		return err
	}

	ids, err := query.FilterIDs(outcome.Result.IDs())
	if err != nil {
		return err
	}
	if buildDiffOnly {
		changed := outcome.ChangedSet()
		var narrowed []string
		for _, id := range ids {
			if changed[id] {
				narrowed = append(narrowed, id)
			}
		}
		ids = narrowed
	}

	format, err := render.ParseFormat(buildFormat)
	if err != nil {
		return err
	}

	outDir := buildOutput
	if outDir == "" {
		outDir = p.Config.Paths.Output
	}
	rev := vcs.Describe(p.Root)
	renderer := render.NewRenderer(p.path(outDir), rev.Stamp(), format, p.Logger)
	if err := renderer.Render(outcome.Result, ids, outcome.ChangedSet()); err != nil {
		return err
	}

	recordRun(p, history.Run{
		RunID:      outcome.RunID,
		StartedAt:  startedAt,
		Revision:   rev.Commit,
		Dirty:      rev.Dirty,
		TestCount:  len(outcome.Result.Tests),
		Changed:    len(outcome.Changed),
		StaleLocks: outcome.LockReport.Stale,
	})

	fmt.Printf("Built %d of %d test(s), %d changed since last build\n",
		len(ids), len(outcome.Result.Tests), len(outcome.Changed))
	printStaleLocks(outcome.LockReport)
	return nil
}

// recordRun appends to the run history; failures are logged, never fatal
func recordRun(p *project, run history.Run) {
	db, err := history.Open(p.path(p.Config.Paths.History), p.Logger)
	if err != nil {
		p.Logger.Warn("Cannot open run history", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	defer db.Close() //nolint:errcheck // Best effort cleanup

	if err := db.Record(run); err != nil {
		p.Logger.Warn("Cannot record run", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
