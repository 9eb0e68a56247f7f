package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/M0-Anwar/diseases-detection/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage snprisk configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/" + config.FileName + ".",
		Example: `  snprisk config                              # show effective config
  snprisk config set predict.imputation training  # impute from training medians
  snprisk config get variant.max_depth            # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(a)
		},
	}

	cmd.AddCommand(newConfigSetCmd(a))
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(a, args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(args[0])
		},
	}
}

func runConfigShow(a *app) error {
	out, err := yaml.Marshal(a.cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Printf("# Config file: %s\n", used)
	}
	fmt.Print(string(out))
	return nil
}

// parseValue turns boolean-like and numeric strings into typed values so
// the written YAML keeps their type.
func parseValue(value string) any {
	switch value {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

func runConfigSet(a *app, key, value string) error {
	if !viper.IsSet(key) {
		return fmt.Errorf("unknown configuration key %q", key)
	}

	// Write only file-backed settings plus the new value, not defaults or
	// environment overrides.
	file := viper.New()
	file.SetConfigType("yaml")
	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		cfgFile = p
	}
	file.SetConfigFile(cfgFile)
	_ = file.ReadInConfig()
	file.Set(key, parseValue(value))

	check := viper.New()
	config.SetDefaults(check)
	if err := check.MergeConfigMap(file.AllSettings()); err != nil {
		return fmt.Errorf("merging config: %w", err)
	}
	var cfg config.Config
	if err := check.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	if err := file.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	a.logger.Debug("wrote config file")
	fmt.Printf("Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(key string) error {
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Println(val)
	return nil
}
