package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func balancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Connect the wallet and print its token balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callContext(cmd)
			defer cancel()

			controller := appCtx.Controller
			if err := controller.Connect(ctx); err != nil {
				return fmt.Errorf("%s: %w", controller.State().Status, err)
			}

			st := controller.State()
			fmt.Fprintf(cmd.OutOrStdout(), "Account: %s\n", st.Account.Hex())
			printAmounts(cmd.OutOrStdout(), controller, st.Balances)
			return nil
		},
	}
}
