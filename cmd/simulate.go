package cmd

import (
	"context"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/kilianp07/vann/app"
	"github.com/kilianp07/vann/pkg/export"
)

type ioFlags struct {
	forcing string
	obs     string
	out     string
}

func (f *ioFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.forcing, "forcing", "", "forcing table (overrides data.forcing)")
	cmd.Flags().StringVar(&f.obs, "obs", "", "observation table (overrides data.observations)")
	cmd.Flags().StringVarP(&f.out, "out", "o", "-", "output file, - for stdout")
}

var simulateFlags ioFlags

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the configured model deterministically",
	RunE:  runSimulate,
}

func init() {
	simulateFlags.register(simulateCmd)
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	return withService(nil, func(ctx context.Context, svc *app.Service) error {
		in, err := svc.LoadInput(simulateFlags.forcing, simulateFlags.obs)
		if err != nil {
			return err
		}
		res, err := svc.Simulate(ctx, in)
		if err != nil {
			return err
		}
		w, err := openOutput(cmd, simulateFlags.out)
		if err != nil {
			return err
		}
		defer closeOutput(cmd, w)
		if err := export.WriteSeriesCSV(w, res.Q, in.Obs, in.Time); err != nil {
			return err
		}
		if !math.IsNaN(res.Score) {
			_, err = fmt.Fprintf(cmd.ErrOrStderr(), "run %s score %.4f\n", res.RunID, res.Score)
		}
		return err
	})
}
