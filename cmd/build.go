package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/basecall-labs/sigseek/internal/buildsched"
)

var (
	buildWorkers int
	buildForce   bool
)

var buildCmd = &cobra.Command{
	Use:   "build [dir]",
	Short: "Build index artifacts for every container file under a directory",
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

		workers := cfg.Workers
		if cmd.Flags().Changed("workers") {
			workers = buildWorkers
		}
		force := cfg.Force || buildForce

		start := time.Now()
		built, err := buildsched.BuildAll(dir, buildsched.Options{
			MaxWorkers: workers,
			Force:      force,
			Log:        newLogger(cfg),
		})
		if err != nil {
			return err
		}
		fmt.Printf("Attempted %d index builds in %v.\n", len(built), time.Since(start))
		return nil
	},
}

func init() {
	buildCmd.Flags().IntVar(&buildWorkers, "workers", 0, "Worker count (0 = auto by storage medium)")
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "Rebuild existing artifacts")
	rootCmd.AddCommand(buildCmd)
}
