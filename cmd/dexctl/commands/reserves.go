package commands

import (
	"github.com/spf13/cobra"
)

func reservesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reserves",
		Short: "Print the pair's reserves",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callContext(cmd)
			defer cancel()

			if err := appCtx.Controller.Init(ctx); err != nil {
				return err
			}
			printAmounts(cmd.OutOrStdout(), appCtx.Controller, appCtx.Controller.State().Reserves)
			return nil
		},
	}
}
