package cmd

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/basecall-labs/sigseek/api"
	"github.com/basecall-labs/sigseek/internal/container"
)

var (
	genReads int
	genSeed  int64
)

// gen writes a synthetic container — handy for demos and for exercising a
// build pass without instrument data.
var genCmd = &cobra.Command{
	Use:   "gen [output" + api.ContainerExt + "]",
	Short: "Generate a synthetic signal container file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := args[0]
		rng := rand.New(rand.NewSource(genSeed))

		w, err := container.Create(out)
		if err != nil {
			return err
		}
		for i := 0; i < genReads; i++ {
			id, err := uuid.NewRandomFromReader(rng)
			if err != nil {
				return err
			}
			samples := make([]int16, 100+rng.Intn(900))
			for j := range samples {
				samples[j] = int16(rng.Intn(4096) - 2048)
			}
			cal := api.Calibration{
				Offset: float32(rng.Intn(20) - 10),
				Scale:  0.1755 + rng.Float32()*0.01,
			}
			if _, err := w.Append(id, samples, cal); err != nil {
				_ = w.Close()
				return err
			}
		}
		if err := w.Close(); err != nil {
			return err
		}
		fmt.Printf("Wrote %d reads to %s.\n", genReads, out)
		return nil
	},
}

func init() {
	genCmd.Flags().IntVar(&genReads, "reads", 10, "Number of reads to generate")
	genCmd.Flags().Int64Var(&genSeed, "seed", 1, "PRNG seed")
	rootCmd.AddCommand(genCmd)
}
