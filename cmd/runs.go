package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/vann/app"
	"github.com/kilianp07/vann/infra/store"
)

var (
	runsCommand string
	runsLimit   int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Stored run related commands",
}

var runsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored runs",
	RunE:  runRunsLs,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one stored run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	runsLsCmd.Flags().StringVar(&runsCommand, "command", "", "only list simulate, filter or calibrate runs")
	runsLsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of most recent runs, 0 for all")
	runsCmd.AddCommand(runsLsCmd, runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRunsLs(cmd *cobra.Command, args []string) error {
	return withService(nil, func(ctx context.Context, svc *app.Service) error {
		runs, err := svc.Runs(ctx, store.Query{Command: runsCommand, Limit: runsLimit})
		if err != nil {
			return err
		}
		return printRuns(cmd, runs)
	})
}

func printRuns(cmd *cobra.Command, runs []store.RunRecord) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tCOMMAND\tMODEL\tFILTER\tSTEPS\tSCORE\tSTATUS\tSTARTED\tDURATION"); err != nil {
		return err
	}
	for _, r := range runs {
		score := "-"
		if r.Score != nil {
			score = fmt.Sprintf("%.4f", *r.Score)
		}
		filter := r.Filter
		if filter == "" {
			filter = "-"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s/%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			r.ID, r.Command, r.Snow, r.Hydro, filter, r.Steps, score, r.Status,
			r.Start.Format(time.RFC3339), r.Duration().Round(time.Millisecond)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	return withService(nil, func(ctx context.Context, svc *app.Service) error {
		rec, err := svc.Run(ctx, args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	})
}
