package cmd

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/kilianp07/vann/app"
	"github.com/kilianp07/vann/config"
)

var (
	calibrateFlags  ioFlags
	calibrateMetric string
	calibrateEvals  int
	calibrateWarmup int
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Fit the model parameters to observed discharge",
	RunE:  runCalibrate,
}

func init() {
	calibrateFlags.register(calibrateCmd)
	calibrateCmd.Flags().StringVar(&calibrateMetric, "metric", "", "nse, kge, rmse or bias (overrides calibration.metric)")
	calibrateCmd.Flags().IntVar(&calibrateEvals, "max-evaluations", 0, "objective evaluation budget")
	calibrateCmd.Flags().IntVar(&calibrateWarmup, "warmup", -1, "steps excluded from the score")
	rootCmd.AddCommand(calibrateCmd)
}

type calibrationOutput struct {
	RunID       string    `json:"run_id"`
	Snow        string    `json:"snow"`
	Hydro       string    `json:"hydro"`
	Metric      string    `json:"metric"`
	Score       float64   `json:"score"`
	Params      []float64 `json:"params"`
	Evaluations int       `json:"evaluations"`
	Status      string    `json:"status"`
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	var cfg *config.Config
	override := func(c *config.Config) error {
		if calibrateMetric != "" {
			c.Calibration.Metric = calibrateMetric
		}
		if calibrateEvals > 0 {
			c.Calibration.MaxEvaluations = calibrateEvals
		}
		if calibrateWarmup >= 0 {
			c.Calibration.Warmup = calibrateWarmup
		}
		cfg = c
		return nil
	}
	return withService(override, func(ctx context.Context, svc *app.Service) error {
		in, err := svc.LoadInput(calibrateFlags.forcing, calibrateFlags.obs)
		if err != nil {
			return err
		}
		res, err := svc.Calibrate(ctx, in)
		if err != nil {
			return err
		}
		w, err := openOutput(cmd, calibrateFlags.out)
		if err != nil {
			return err
		}
		defer closeOutput(cmd, w)
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(calibrationOutput{
			RunID:       res.RunID,
			Snow:        cfg.Model.Snow,
			Hydro:       cfg.Model.Hydro,
			Metric:      cfg.Calibration.Metric,
			Score:       res.Score,
			Params:      res.Params,
			Evaluations: res.Evaluations,
			Status:      res.Status,
		})
	})
}
