package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"browser-replay/internal/domain/entity"

	"github.com/spf13/cobra"
)

func newResultsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Inspect execution results",
	}

	var planID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List execution results, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := a.container.Results.ListResults(cmd.Context(), planID)
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), results)
		},
	}
	list.Flags().StringVar(&planID, "plan", "", "only results of this plan")

	var format string
	show := &cobra.Command{
		Use:   "show <execution-id>",
		Short: "Show an execution result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.container.Results.LoadResult(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if format == formatText {
				a.container.Console.ShowResult(cmd.Context(), result)
				return nil
			}
			return writeDocument(cmd.OutOrStdout(), result, format)
		},
	}
	show.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or yaml")

	cmd.AddCommand(list, show)
	return cmd
}

func printResults(out io.Writer, results []*entity.ExecutionResult) error {
	if len(results) == 0 {
		fmt.Fprintln(out, "no results")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPLAN\tSTATUS\tSTEPS\tSTARTED")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\n",
			r.ID, r.PlanID, r.Status, r.StepsCompleted, r.TotalSteps, r.StartedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}
