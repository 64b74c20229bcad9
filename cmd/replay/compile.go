package main

import (
	"encoding/json"
	"fmt"
	"os"

	"browser-replay/internal/domain/entity"

	"github.com/spf13/cobra"
)

func newCompileCmd(a *app) *cobra.Command {
	var (
		tags []string
		name string
	)
	cmd := &cobra.Command{
		Use:   "compile <record.json>",
		Short: "Compile a discovery record into a stored plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := readRecord(args[0])
			if err != nil {
				return err
			}
			if name != "" {
				record.Trace.PlanName = name
			}

			plan, err := a.container.Replay.Compile(cmd.Context(), record, tags...)
			if err != nil {
				return err
			}
			a.container.Console.ShowPlan(cmd.Context(), plan)
			fmt.Fprintf(cmd.OutOrStdout(), "\nplan saved: %s\n", plan.Metadata.ID)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "extra tags for the plan")
	cmd.Flags().StringVar(&name, "name", "", "plan name (default derives from the objective)")
	return cmd
}

func readRecord(path string) (*entity.DiscoveryRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	var record entity.DiscoveryRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", path, err)
	}
	return &record, nil
}
