package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"browser-replay/internal/domain/entity"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newPlansCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Inspect and manage stored plans",
	}

	var tags []string
	list := &cobra.Command{
		Use:   "list",
		Short: "List plans, optionally filtered by tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plans, err := a.container.Plans.ListPlans(cmd.Context(), tags)
			if err != nil {
				return err
			}
			return printPlans(cmd.OutOrStdout(), plans)
		},
	}
	list.Flags().StringSliceVarP(&tags, "tags", "t", nil, "only plans carrying any of these tags")

	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Search plans by name or description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plans, err := a.container.Plans.SearchPlans(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printPlans(cmd.OutOrStdout(), plans)
		},
	}

	var format string
	show := &cobra.Command{
		Use:   "show <plan-id>",
		Short: "Show a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := a.container.Plans.LoadPlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if format == formatText {
				a.container.Console.ShowPlan(cmd.Context(), plan)
				return nil
			}
			return writeDocument(cmd.OutOrStdout(), plan, format)
		},
	}
	show.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or yaml")

	del := &cobra.Command{
		Use:   "delete <plan-id>",
		Short: "Delete a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.container.Plans.DeletePlan(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "plan deleted: %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, search, show, del)
	return cmd
}

func printPlans(out io.Writer, plans []*entity.Plan) error {
	if len(plans) == 0 {
		fmt.Fprintln(out, "no plans")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTEPS\tPARAMS\tUPDATED")
	for _, p := range plans {
		m := p.Metadata
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			m.ID, m.Name, len(p.Steps), strings.Join(m.RequiredParams, ","), m.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// writeDocument prints v as its stored JSON document, or that document
// converted to YAML.
func writeDocument(out io.Writer, v any, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
