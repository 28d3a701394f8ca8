package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/inodb/vcf2loc/internal/convert"
	"github.com/inodb/vcf2loc/internal/vcf"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vcf2loc configuration",
		Long: `Show the effective configuration, or get and set values in ~/.vcf2loc.yaml.
Values can also come from VCF2LOC_ environment variables, e.g. VCF2LOC_CONVERT_WORKERS=4;
those apply to the current run only and are never written to the file.`,
		Example: `  vcf2loc config                                   # show effective config
  vcf2loc config set convert.mismatch truncate     # pair ALT/AF up to the shorter list
  vcf2loc config set catalog.path ~/markers.duckdb # always record runs
  vcf2loc config get convert.workers               # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a value in the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd, args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get an effective configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd, args[0])
		},
	}
}

func runConfigShow(cmd *cobra.Command) error {
	out, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

// runConfigSet stores one key in the config file. Only the keys already in
// the file are carried over; defaults and environment overrides are not.
func runConfigSet(cmd *cobra.Command, key, value string) error {
	parsed, err := parseConfigValue(key, value)
	if err != nil {
		return &usageError{command: "config set", err: err}
	}

	path, err := configFilePath()
	if err != nil {
		return err
	}
	file, err := readConfigFile(path)
	if err != nil {
		return err
	}

	file.Set(key, parsed)
	if err := file.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v in %s\n", key, parsed, path)
	return nil
}

func runConfigGet(cmd *cobra.Command, key string) error {
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), val)
	return nil
}

// parseConfigValue checks values of the keys vcf2loc reads and returns them
// in the type they are stored with. Unknown keys keep the old behavior of
// storing boolean-like words as booleans and everything else as strings.
func parseConfigValue(key, value string) (any, error) {
	switch key {
	case "convert.mismatch":
		p, err := vcf.ParseMismatchPolicy(value)
		return string(p), err
	case "convert.on_error":
		p, err := convert.ParseErrorPolicy(value)
		return string(p), err
	case "convert.workers":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("convert.workers must be a positive integer, got %q", value)
		}
		return n, nil
	case "log.level":
		l, err := zapcore.ParseLevel(value)
		if err != nil {
			return nil, fmt.Errorf("log.level: %w", err)
		}
		return l.String(), nil
	case "log.verbose":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("log.verbose must be true or false, got %q", value)
		}
		return b, nil
	case "convert.output", "catalog.path":
		if value == "" {
			return nil, fmt.Errorf("%s must not be empty", key)
		}
		return value, nil
	}

	switch value {
	case "true", "yes", "on":
		return true, nil
	case "false", "no", "off":
		return false, nil
	}
	return value, nil
}

// configFilePath returns the file chosen by initConfig, or the default
// file in the home directory.
func configFilePath() (string, error) {
	if path := viper.ConfigFileUsed(); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, configName), nil
}

// readConfigFile loads only the contents of the config file into a fresh
// viper instance. A missing file yields an empty one.
func readConfigFile(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return v, nil
}
