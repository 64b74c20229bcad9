package main

import (
	"fmt"

	"browser-replay/internal/di"
	"browser-replay/internal/infrastructure/config"
	"browser-replay/internal/infrastructure/env"
	"browser-replay/internal/infrastructure/logger"
	"browser-replay/internal/infrastructure/userinteraction"

	"github.com/spf13/cobra"
)

// app is shared by the subcommands of one root command.
type app struct {
	cfgFile   string
	envDir    string
	logLevel  string
	options   []di.Option
	container *di.Container
}

func newRootCmd(opts ...di.Option) (*cobra.Command, *app) {
	a := &app{options: opts}

	root := &cobra.Command{
		Use:           "replay",
		Short:         "Compile discovery traces into plans and replay them without an LLM",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	flags.StringVar(&a.envDir, "env-dir", ".", "directory holding .env files")
	flags.StringVar(&a.logLevel, "log-level", "", "override logger.level")

	root.AddCommand(
		newCompileCmd(a),
		newRunCmd(a),
		newPlansCmd(a),
		newResultsCmd(a),
	)
	return root, a
}

func (a *app) init(cmd *cobra.Command) error {
	if _, err := env.Load(a.envDir, logger.NewNop()); err != nil {
		return err
	}

	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logger.Level = a.logLevel
	}
	cfg.Logger.TaskName = cmd.Name()

	opts := append([]di.Option{
		di.WithConsole(userinteraction.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout())),
	}, a.options...)
	c, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	a.container = c
	return nil
}

func (a *app) close() {
	if a.container != nil {
		a.container.Close()
		a.container = nil
	}
}
