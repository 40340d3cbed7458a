package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/openclaw/claw-dex-client-go/cmd/client/app"
	"github.com/openclaw/claw-dex-client-go/cmd/client/config"
	"github.com/openclaw/claw-dex-client-go/pkg/chains"
	"github.com/openclaw/claw-dex-client-go/pkg/dex"
	"github.com/openclaw/claw-dex-client-go/protocols/token"
	"github.com/prometheus/client_golang/prometheus"
)

// --- VISUAL CONSTANTS ---
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Cyan   = "\033[36m"
	Gray   = "\033[37m"
)

// header prints a styled section header
func header(title string) {
	fmt.Println("\n" + Bold + Cyan + ":: " + title + " ::" + Reset)
}

type console struct {
	app    *app.App
	reader *bufio.Reader
	// tokenIn is the token selected for the next swap.
	tokenIn token.Symbol
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Println(Red + "Failed to load configuration: " + err.Error() + Reset)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, prometheus.DefaultRegisterer)
	if err != nil {
		fmt.Println("\n" + Red + "Fatal error occurred: " + err.Error() + Reset)
		fmt.Println(Red + "Check " + cfg.LogFile + " for details." + Reset)
		os.Exit(1)
	}
	defer a.Close()

	c := &console{
		app:     a,
		reader:  bufio.NewReader(os.Stdin),
		tokenIn: a.Controller.Tokens()[0].Symbol,
	}

	fmt.Println(Green + "Starting CLAW DEX Client..." + Reset)
	fmt.Printf("Logs are being written to '%s'\n", cfg.LogFile)

	// reserves load once per session, independent of the wallet
	go func() {
		initCtx, cancel := a.CallContext(ctx)
		defer cancel()
		if err := a.Controller.Init(initCtx); err != nil {
			a.Logger.Error("Initial reserve fetch failed", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.run(ctx)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		fmt.Println("\n" + Yellow + "Shutting down..." + Reset)
	}
}

// run handles user input and display.
func (c *console) run(ctx context.Context) {
	time.Sleep(500 * time.Millisecond)

	for {
		if ctx.Err() != nil {
			return
		}

		c.printMenu()

		fmt.Print(Bold + "Enter selection: " + Reset)
		input, err := c.reader.ReadString('\n')
		if err != nil {
			fmt.Println("Error reading input:", err)
			return
		}
		input = strings.TrimSpace(input)

		if input == "q" {
			fmt.Println(Yellow + "Exiting..." + Reset)
			return
		}
		c.handleCommand(ctx, input)

		fmt.Println("\n" + Gray + "[Press Enter to continue]" + Reset)
		c.reader.ReadString('\n')
	}
}

func (c *console) printMenu() {
	st := c.app.Controller.State()

	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(Bold + "CLAW DEX" + Reset + Gray + " | Decentralized Exchange on " + chains.Name(c.app.Config.ChainID.Uint64()) + Reset)
	fmt.Println(Gray + "-----------------------------------" + Reset)
	fmt.Printf(" %sWallet:%s %s\n", Gray, Reset, accountLabel(st))
	if st.Status != "" {
		fmt.Printf(" %sStatus:%s %s%s%s\n", Gray, Reset, Yellow, st.Status, Reset)
	}
	fmt.Println(Gray + "-----------------------------------" + Reset)
	fmt.Printf(" %s1.%s Connect Wallet\n", Cyan, Reset)
	fmt.Printf(" %s2.%s Your Balances\n", Cyan, Reset)
	fmt.Printf(" %s3.%s Pool Reserves\n", Cyan, Reset)
	fmt.Printf(" %s4.%s Set Amount  %s(current: %q)%s\n", Cyan, Reset, Gray, st.SwapAmount, Reset)
	fmt.Printf(" %s5.%s Select Token %s(current: %s)%s\n", Cyan, Reset, Gray, c.tokenIn, Reset)
	fmt.Printf(" %s6.%s Swap\n", Cyan, Reset)
	fmt.Printf(" %s7.%s Contract Addresses\n", Cyan, Reset)
	fmt.Println(Gray + "-----------------------------------" + Reset)
	fmt.Printf(" %sh.%s Help\n", Yellow, Reset)
	fmt.Printf(" %sq.%s Quit\n", Red, Reset)
	fmt.Println("")
}

func (c *console) handleCommand(ctx context.Context, input string) {
	switch input {
	case "1":
		c.connect(ctx)
	case "2":
		c.printAmounts("YOUR BALANCES", c.app.Controller.State().Balances, false)
	case "3":
		c.printAmounts("POOL RESERVES", c.app.Controller.State().Reserves, true)
	case "4":
		c.setAmount()
	case "5":
		c.selectToken()
	case "6":
		c.swap(ctx)
	case "7":
		c.printContracts(ctx)
	case "h":
		printHelp()
	default:
		fmt.Println(Red + "Unknown command." + Reset)
	}
}

// --- COMMAND HANDLERS ---

func (c *console) connect(ctx context.Context) {
	callCtx, cancel := c.app.CallContext(ctx)
	defer cancel()

	if err := c.app.Controller.Connect(callCtx); err != nil {
		fmt.Println(Red + "[ERROR] " + c.app.Controller.State().Status + Reset)
		return
	}
	fmt.Println(Green + "Connected: " + c.app.Controller.State().Account.Hex() + Reset)
	c.printAmounts("YOUR BALANCES", c.app.Controller.State().Balances, false)
}

func (c *console) printAmounts(title string, amounts dex.Amounts, grouped bool) {
	header(title)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)
	for _, t := range c.app.Controller.Tokens() {
		value := amounts[t.Symbol]
		if grouped {
			value = groupThousands(value)
		}
		fmt.Fprintf(w, "%s\t%s\t\n", t.Symbol, value)
	}
	w.Flush()
}

func (c *console) setAmount() {
	fmt.Print("\n" + Bold + "[Amount] Enter amount: " + Reset)
	input, _ := c.reader.ReadString('\n')
	c.app.Controller.SetAmount(strings.TrimSpace(input))
}

func (c *console) selectToken() {
	tokens := c.app.Controller.Tokens()
	fmt.Println()
	for i, t := range tokens {
		fmt.Printf(" %s%d.%s %s\n", Cyan, i+1, Reset, t.Symbol)
	}
	fmt.Print(Bold + "[Token] Select token to swap from: " + Reset)
	input, _ := c.reader.ReadString('\n')

	idx, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || idx < 1 || idx > len(tokens) {
		fmt.Println(Red + "Invalid selection." + Reset)
		return
	}
	c.tokenIn = tokens[idx-1].Symbol
}

func (c *console) swap(ctx context.Context) {
	callCtx, cancel := c.app.CallContext(ctx)
	defer cancel()

	_, err := c.app.Controller.SubmitSwap(callCtx, c.tokenIn)
	switch {
	case errors.Is(err, dex.ErrNothingToSubmit):
		fmt.Println(Yellow + "[INFO] Connect a wallet and enter an amount first." + Reset)
	case err != nil:
		fmt.Println(Red + "[ERROR] " + c.app.Controller.State().Status + Reset)
	default:
		fmt.Println(Green + c.app.Controller.State().Status + Reset)
		fmt.Println(Gray + "Only the approval step is performed; the pair's swap function is not called." + Reset)
	}
}

func (c *console) printContracts(ctx context.Context) {
	header("CONTRACT ADDRESSES")

	cfg := c.app.Config
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)
	fmt.Fprintf(w, "Factory:\t%s\t\n", cfg.Factory().Hex())
	for _, t := range c.app.Controller.Tokens() {
		fmt.Fprintf(w, "%s:\t%s\t\n", t.Symbol, t.Address.Hex())
	}
	fmt.Fprintf(w, "Pair:\t%s\t\n", c.app.Controller.PairAddress().Hex())
	w.Flush()

	callCtx, cancel := c.app.CallContext(ctx)
	defer cancel()
	info, err := c.app.Controller.Inspect(callCtx)
	if err != nil {
		fmt.Printf(Yellow+"[WARN] Could not read on-chain metadata: %v%s\n", err, Reset)
		return
	}

	header("ON-CHAIN METADATA")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tNAME\tDECIMALS\tADDRESS\t")
	fmt.Fprintln(w, "------\t----\t--------\t-------\t")
	for _, m := range info.Tokens {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t\n", m.Symbol, m.Name, m.Decimals, m.Address.Hex())
	}
	w.Flush()
	fmt.Printf("\nPair token0: %s\nPair token1: %s\n", info.Token0.Hex(), info.Token1.Hex())
}

func printHelp() {
	fmt.Print("\033[H\033[2J")

	header("CLAW DEX CLIENT")
	fmt.Println("This console talks to a single constant-product pair and its two tokens.")
	fmt.Println("All pricing and reserve accounting happens on chain.")
	fmt.Println("")
	fmt.Println(Bold + "1. WALLET" + Reset)
	fmt.Println("   Connect asks the configured wallet provider for account access")
	fmt.Println("   (" + Cyan + "eth_requestAccounts" + Reset + ") and loads your balances on the wallet's network.")
	fmt.Println("")
	fmt.Println(Bold + "2. RESERVES" + Reset)
	fmt.Println("   Reserves are read once at startup from the public RPC endpoint.")
	fmt.Println("")
	fmt.Println(Bold + "3. SWAP" + Reset)
	fmt.Println("   Swap submits an " + Yellow + "approve" + Reset + " transaction allowing the pair to spend")
	fmt.Println("   the entered amount of the selected token. No tokens are exchanged.")
}

// --- HELPERS ---

func accountLabel(st dex.State) string {
	switch {
	case st.Connected():
		hex := st.Account.Hex()
		return Green + hex[:6] + "..." + hex[len(hex)-4:] + Reset
	case st.Phase == dex.Connecting:
		return Yellow + st.Phase.String() + "..." + Reset
	default:
		return Gray + st.Phase.String() + Reset
	}
}

// groupThousands inserts thousands separators into the whole part of a
// decimal string.
func groupThousands(s string) string {
	whole, frac, hasFrac := strings.Cut(s, ".")
	neg := strings.HasPrefix(whole, "-")
	whole = strings.TrimPrefix(whole, "-")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := b.String()
	if neg {
		out = "-" + out
	}
	if hasFrac && frac != "0" {
		out += "." + frac
	}
	return out
}

func loadConfig() (*config.ClientConfig, error) {
	configPath := flag.String("config", "", "Path to the configuration file (defaults to the deployed Base pair).")
	flag.Parse()
	if *configPath != "" {
		log.Printf("Loading configuration from: %s", *configPath)
	}
	return config.LoadConfig(*configPath)
}
