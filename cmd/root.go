package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/vann/app"
	"github.com/kilianp07/vann/config"
	"github.com/kilianp07/vann/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "vann",
	Short:        "Conceptual hydrological models with ensemble data assimilation",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// withService loads the configuration, applies command line overrides and
// runs fn with a ready service. The Prometheus endpoint, when configured,
// is served for the lifetime of the command.
func withService(override func(*config.Config) error, fn func(ctx context.Context, svc *app.Service) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if override != nil {
		if err := override(cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	go func() {
		if err := svc.Serve(ctx); err != nil {
			logger.New("main").Errorf("prom server: %v", err)
		}
	}()
	return fn(ctx, svc)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput returns stdout for an empty path or "-".
func openOutput(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{cmd.OutOrStdout()}, nil
	}
	return os.Create(path)
}

func closeOutput(cmd *cobra.Command, w io.Closer) {
	if err := w.Close(); err != nil {
		if _, ferr := fmt.Fprintf(cmd.ErrOrStderr(), "error while closing output: %v\n", err); ferr != nil {
			fmt.Println("failed to write to stderr:", ferr)
		}
	}
}
