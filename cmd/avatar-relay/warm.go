package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newWarmCommand() *cobra.Command {
	var (
		policy      policyFlags
		failOnError bool
	)
	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Load the core runtime once in a headless page and report the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := policy.resolve()
			if err != nil {
				return err
			}
			pg, r, err := startWarmer(ctx, p)
			if err != nil {
				return err
			}
			defer pg.Close()

			err = r.Wait(ctx)
			log.Info().Err(err).Str("state", r.State().String()).Msg("warm finished")
			if err != nil && failOnError {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failOnError, "fail-on-error", false, "Exit non-zero when the core runtime cannot be loaded")
	policy.register(cmd.Flags())
	return cmd
}
