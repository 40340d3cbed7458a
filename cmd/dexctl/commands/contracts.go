package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func contractsCmd() *cobra.Command {
	var inspect bool

	cmd := &cobra.Command{
		Use:   "contracts",
		Short: "Print the configured contract addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			controller := appCtx.Controller

			w := tabwriter.NewWriter(out, 0, 0, 4, ' ', 0)
			fmt.Fprintf(w, "Factory:\t%s\t\n", appCtx.Config.Factory().Hex())
			for _, t := range controller.Tokens() {
				fmt.Fprintf(w, "%s:\t%s\t\n", t.Symbol, t.Address.Hex())
			}
			fmt.Fprintf(w, "Pair:\t%s\t\n", controller.PairAddress().Hex())
			w.Flush()

			if !inspect {
				return nil
			}

			ctx, cancel := callContext(cmd)
			defer cancel()
			info, err := controller.Inspect(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			w = tabwriter.NewWriter(out, 0, 0, 4, ' ', 0)
			fmt.Fprintln(w, "SYMBOL\tNAME\tDECIMALS\tADDRESS\t")
			for _, m := range info.Tokens {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t\n", m.Symbol, m.Name, m.Decimals, m.Address.Hex())
			}
			fmt.Fprintf(w, "token0\t\t\t%s\t\n", info.Token0.Hex())
			fmt.Fprintf(w, "token1\t\t\t%s\t\n", info.Token1.Hex())
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&inspect, "inspect", false, "also read token metadata and pair ordering on chain")
	return cmd
}
