package main

import (
	"fmt"
	"strings"

	"browser-replay/internal/application/usecase"
	"browser-replay/internal/domain/entity"

	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		pairs    []string
		noPrompt bool
	)
	cmd := &cobra.Command{
		Use:   "run <plan-id>",
		Short: "Replay a stored plan with new parameter values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(pairs)
			if err != nil {
				return err
			}

			c := a.container
			replay := c.Replay
			if noPrompt {
				replay = usecase.NewReplayUseCase(c.Compiler, c.Executor, c.Plans, c.Results, nil, c.Logger)
			}

			result, err := replay.Run(cmd.Context(), args[0], params)
			if result != nil {
				c.Console.ShowResult(cmd.Context(), result)
				fmt.Fprintf(cmd.OutOrStdout(), "execution: %s\n", result.ID)
			}
			if err != nil {
				return err
			}
			if result.Status != entity.ExecutionSuccess {
				return fmt.Errorf("execution finished with status %s", result.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&pairs, "param", "p", nil, "parameter as name=value (repeatable)")
	cmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "never ask for missing parameters")
	return cmd
}

func parseParams(pairs []string) (map[string]string, error) {
	params := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q, want name=value", pair)
		}
		params[name] = value
	}
	return params, nil
}
