package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/basecall-labs/sigseek/internal/registry"
)

// scan demonstrates the recommended full-corpus traversal: registration
// order across files, ascending physical offset within each file.
var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "Walk every (file, read) pair in efficient traversal order",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dir := cfg.Dir
		if len(args) == 1 {
			dir = args[0]
		}
		if dir == "" {
			return fmt.Errorf("no directory given (argument or config dir)")
		}

		reg := registry.NewWithOptions(registry.Options{
			SaveIndex: cfg.Persist(),
			Log:       newLogger(cfg),
		})
		defer func() { _ = reg.Close() }()

		if err := reg.RegisterDir(dir); err != nil {
			return err
		}
		for ref, err := range reg.IterateAll() {
			if err != nil {
				return err
			}
			n, err := reg.SignalLength(ref.File, ref.ReadID)
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\t%d\n", ref.File, ref.ReadID, n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
