package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/statsig-io/ruid/internal/app"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP id service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")

			application := app.New(app.Options{ConfigPath: path, Flags: cmd.Flags()})
			wait := application.Start()
			<-wait

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			application.Stop(ctx)

			return nil
		},
	}

	c.Flags().Uint64("cluster", 0, "cluster id of this instance, overrides ruid.identity.cluster_id")

	return c
}
