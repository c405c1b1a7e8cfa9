package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/viant/signoff"
	"github.com/viant/signoff/service/dao/definition"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "signoff",
		Short:         "Multi-entity approval workflow server",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       signoff.Version,
	}
	root.AddCommand(newServeCmd(), newValidateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the approval API and run escalation sweeps",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := signoff.LoadConfig(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			srv, err := signoff.New(ctx, signoff.WithConfig(config))
			if err != nil {
				return err
			}
			srv.Logger().Info("signoff starting",
				zap.String("version", signoff.Version),
				zap.String("store", config.Store.Driver),
				zap.Bool("escalation", config.Escalation.Enabled))
			return srv.Serve(ctx)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (YAML); SIGNOFF_* env vars override")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <url>...",
		Short: "Validate flow definition files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validate(cmd.Context(), cmd, args)
		},
	}
}

func validate(ctx context.Context, cmd *cobra.Command, URLs []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var failed int
	for _, URL := range URLs {
		definitions := definition.New()
		flow, err := definitions.Load(ctx, URL)
		if err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %s: %v\n", URL, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok   %s: %s v%d, %s, %d nodes\n", URL, flow.FlowCode, flow.Version, flow.BusinessType, len(flow.Nodes))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d definitions invalid", failed, len(URLs))
	}
	return nil
}
