package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/basecall-labs/sigseek/internal/registry"
)

var (
	fetchCalibrated bool
	fetchDump       bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [container] [read-id]",
	Short: "Fetch one read's signal",
	Args:  cobra.ExactArgs(2),
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
		name, id := filepath.Base(args[0]), args[1]

		if fetchCalibrated {
			sig, err := reg.FetchCalibrated(name, id)
			if err != nil {
				return err
			}
			if fetchDump {
				for _, v := range sig {
					fmt.Println(v)
				}
				return nil
			}
			fmt.Printf("%s: %d samples (pA)\n", id, len(sig))
			return nil
		}

		sig, err := reg.FetchSignal(name, id)
		if err != nil {
			return err
		}
		if fetchDump {
			for _, v := range sig {
				fmt.Println(v)
			}
			return nil
		}
		cal, err := reg.Calibration(name, id)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d samples, calibration offset=%g scale=%g\n", id, len(sig), cal.Offset, cal.Scale)
		return nil
	},
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchCalibrated, "calibrated", false, "Convert samples to picoamperes")
	fetchCmd.Flags().BoolVar(&fetchDump, "dump", false, "Print every sample value")
	rootCmd.AddCommand(fetchCmd)
}
