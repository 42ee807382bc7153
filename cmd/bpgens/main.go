// Command bpgens derives, inspects and reuses serialized generator sets.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "BPGENS"

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "bpgens",
		Short:         "Manage cached Poseidon generator parameters",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if path := v.GetString("config"); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("read config %s: %w", path, err)
				}
			}
			return setupLogger(cmd, v.GetString("log-level"))
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}
	root.PersistentFlags().String("config", "", "Optional config file (yaml, toml or json) holding flag values.")
	root.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error.")

	root.AddCommand(newGenerateCmd(v), newInspectCmd(v), newHashCmd(v))
	return root
}

// setupLogger routes the library's gnark logger to a console writer on stderr.
func setupLogger(cmd *cobra.Command, level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	out := zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.TimeOnly}
	logger.Set(zerolog.New(out).Level(lvl).With().Timestamp().Logger())
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
