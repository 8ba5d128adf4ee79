package main

import (
	"github.com/spf13/cobra"

	"jobmate/harvester-service/internal/config"
	"jobmate/harvester-service/internal/logger"
)

// app carries what every subcommand needs after flag parsing.
type app struct {
	cfgFile string
	debug   bool

	cfg *config.Config
	log logger.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "harvester",
		Short:         "Workana job listing harvester",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "YAML config file (optional)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "debug logging")

	root.AddCommand(
		newRunCommand(a),
		newServeCommand(a),
		newStatsCommand(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, _ []string) {
				cmd.Println("harvester " + version)
			},
			PersistentPreRun: func(*cobra.Command, []string) {},
		},
	)
	return root
}

func (a *app) init() error {
	v, err := config.NewViper(a.cfgFile)
	if err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	if a.debug {
		cfg.LogLevel = "debug"
		cfg.LogDevelopment = true
	}
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.LogDevelopment})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log.With(logger.String("service", "harvester"), logger.String("version", version))
	return nil
}
