package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/openclaw/claw-dex-client-go/cmd/client/app"
	"github.com/openclaw/claw-dex-client-go/cmd/client/config"
	"github.com/openclaw/claw-dex-client-go/pkg/dex"
	"github.com/spf13/cobra"
)

var (
	configPath string
	appCtx     *app.App
)

func Execute() error {
	return execute(newRootCmd())
}

// execute runs root and releases the app whether or not the command failed.
func execute(root *cobra.Command) error {
	defer closeApp()
	return root.Execute()
}

func closeApp() {
	if appCtx != nil {
		appCtx.Close()
		appCtx = nil
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "dexctl",
		Short:        "Scripted access to the CLAW/ETH pair",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			appCtx, err = app.New(cmd.Context(), cfg, nil)
			return err
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the configuration file (defaults to the deployed Base pair)")

	root.AddCommand(reservesCmd(), balancesCmd(), approveCmd(), contractsCmd())
	return root
}

// callContext bounds a command's remote work by the configured timeout.
func callContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return appCtx.CallContext(cmd.Context())
}

func printAmounts(out io.Writer, controller *dex.Controller, amounts dex.Amounts) {
	w := tabwriter.NewWriter(out, 0, 0, 4, ' ', 0)
	for _, t := range controller.Tokens() {
		fmt.Fprintf(w, "%s\t%s\t\n", t.Symbol, amounts[t.Symbol])
	}
	w.Flush()
}
