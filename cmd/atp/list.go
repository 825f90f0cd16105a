package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"atp/internal/selection"
)

var listSelect string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List declared tests with their identifiers",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVarP(&listSelect, "select", "s", "",
		"Only list matching tests, e.g. \"1 3.2-5\"")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	plan, err := p.loadPlan()
	if err != nil {
		return err
	}

	query, err := selection.Parse(listSelect, plan.Depth)
	if err != nil {
		return err
	}

	result, err := plan.Resolve()
	if err != nil {
		return err
	}

	ids, err := query.FilterIDs(result.IDs())
	if err != nil {
		return err
	}

	for _, id := range ids {
		test, _ := result.Test(id)
		fmt.Printf("%s  %s\n", id, test.Title)
	}
	return nil
}
