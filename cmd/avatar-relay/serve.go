package main

import (
	"github.com/go-go-golems/avatar-relay/pkg/relay"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var (
		addr   string
		warm   bool
		policy policyFlags
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat/tts relay and liveness endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := relay.LoadConfigFromEnv()
			if err != nil {
				return err
			}
			if cfg.APIKey == "" {
				log.Warn().Msg("OPENAI_API_KEY is not set; /chat and /tts will answer 500")
			}

			var opts []relay.ServerOption
			if addr != "" {
				opts = append(opts, relay.WithAddr(addr))
			}
			if warm {
				p, err := policy.resolve()
				if err != nil {
					return err
				}
				pg, r, err := startWarmer(ctx, p)
				if err != nil {
					return err
				}
				defer pg.Close()
				opts = append(opts, relay.WithReadiness(r))
			}

			srv, err := relay.NewServer(cfg, opts...)
			if err != nil {
				return errors.Wrap(err, "build relay server")
			}
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (defaults to :$PORT)")
	cmd.Flags().BoolVar(&warm, "warm", false, "Load the core runtime in a headless page and report it on /readyz")
	policy.register(cmd.Flags())
	return cmd
}
