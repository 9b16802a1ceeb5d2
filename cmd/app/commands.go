package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"EthTicker/internal/di"
	"EthTicker/pkg/config"
)

// Runner is a fully wired process.
type Runner interface {
	Run(ctx context.Context) error
}

// Injectors build the process for each subcommand.
type Injectors struct {
	Serve   func(*config.Config) (Runner, error)
	Publish func(*config.Config) (Runner, error)
}

func defaultInjectors() Injectors {
	return Injectors{
		Serve: func(cfg *config.Config) (Runner, error) {
			return di.InitializeServeApp(cfg)
		},
		Publish: func(cfg *config.Config) (Runner, error) {
			return di.InitializePublishApp(cfg)
		},
	}
}

func newRootCmd(inj Injectors) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "ethticker",
		Short:         "Ether ticker aggregation and artifact publishing",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (defaults plus environment when empty)")

	load := func(check func(*config.Config) error) (*config.Config, error) {
		cfg, err := config.LoadWithEnv(configPath)
		if err != nil {
			return nil, err
		}
		if err := check(cfg); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		return cfg, nil
	}

	run := func(check func(*config.Config) error, build func(*config.Config) (Runner, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(check)
			if err != nil {
				return err
			}
			app, err := build(cfg)
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			return app.Run(cmd.Context())
		}
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the aggregated ticker view over HTTP",
		Args:  cobra.NoArgs,
		RunE:  run((*config.Config).ValidateServe, inj.Serve),
	})
	root.AddCommand(&cobra.Command{
		Use:   "publish",
		Short: "Watch rendered artifacts and publish them to the remote",
		Args:  cobra.NoArgs,
		RunE:  run((*config.Config).ValidatePublish, inj.Publish),
	})
	root.AddCommand(&cobra.Command{
		Use:   "check-config",
		Short: "Load and validate the configuration, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(func(*config.Config) error { return nil })
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "ok: env=%s remote=%s groups=%d\n",
				cfg.Environment, cfg.Remote.Type, len(cfg.Publish.Groups))
			return err
		},
	})
	return root
}
