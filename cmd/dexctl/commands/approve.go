package commands

import (
	"fmt"

	"github.com/openclaw/claw-dex-client-go/protocols/token"
	"github.com/spf13/cobra"
)

func approveCmd() *cobra.Command {
	var (
		tokenIn string
		amount  string
	)

	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve the pair to spend an amount of a token (first step of a swap)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callContext(cmd)
			defer cancel()

			controller := appCtx.Controller
			if err := controller.Connect(ctx); err != nil {
				return fmt.Errorf("%s: %w", controller.State().Status, err)
			}
			controller.SetAmount(amount)

			hash, err := controller.SubmitSwap(ctx, token.Symbol(tokenIn))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", hash.Hex())
			return nil
		},
	}

	cmd.Flags().StringVar(&tokenIn, "token", "CLAW", "symbol of the token to approve")
	cmd.Flags().StringVar(&amount, "amount", "", "decimal amount to approve")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
