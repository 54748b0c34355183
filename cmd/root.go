package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/basecall-labs/sigseek/internal/config"
	"github.com/basecall-labs/sigseek/internal/utils"
)

var (
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:          "sigseek",
	Short:        "Random-access retrieval of signal records from container files",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to HCL config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// loadConfig resolves the effective configuration: defaults, then the HCL
// file if given, then the --log-level flag on top.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = config.Load(cfgPath); err != nil {
			return cfg, err
		}
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

func newLogger(cfg config.Config) utils.Logger {
	return utils.NewLogger(cfg.Level())
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
