package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/basecall-labs/sigseek/internal/registry"
)

var lsPhysical bool

var lsCmd = &cobra.Command{
	Use:   "ls [container]",
	Short: "List the read IDs of one container file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg := registry.NewWithOptions(registry.Options{
			SaveIndex: cfg.Persist(),
			Log:       newLogger(cfg),
		})
		defer func() { _ = reg.Close() }()

		if err := reg.Register(args[0]); err != nil {
			return err
		}
		ids, err := reg.ReadIDs(filepath.Base(args[0]), lsPhysical)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	lsCmd.Flags().BoolVar(&lsPhysical, "physical", false, "Sort by ascending physical offset")
	rootCmd.AddCommand(lsCmd)
}
