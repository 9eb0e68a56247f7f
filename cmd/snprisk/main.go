// Package main provides the snprisk command-line tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/M0-Anwar/diseases-detection/internal/config"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}

// app carries the loaded settings and logger into subcommands.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "snprisk",
		Short: "Estimate disease risk from GWAS-style SNP association tables",
		Long: `snprisk cleans GWAS association catalogues, trains a variant-level
classifier for one condition (and optionally a person-level classifier on a
labeled cohort), and scores individual genomes against the trained model.`,
		Version:           fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.bootstrap,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default ~/"+config.FileName+")")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: console, json")
	pf.IntP("workers", "j", 0, "parallel workers (0 = all CPUs)")

	cmd.AddCommand(
		newCleanCmd(a),
		newTrainCmd(a),
		newPredictCmd(a),
		newBatchCmd(a),
		newImportanceCmd(a),
		newInfoCmd(a),
		newReportCmd(a),
		newConfigCmd(a),
	)
	return cmd
}

// bootstrap loads configuration, letting explicitly set global flags win,
// and builds the logger.
func (a *app) bootstrap(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	for key, flag := range map[string]string{
		"log.level":  "log-level",
		"log.format": "log-format",
		"workers":    "workers",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	cfg, err := config.Load(v, a.cfgFile)
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("configuration loaded", zap.String("config_file", used))
	}
	return nil
}
