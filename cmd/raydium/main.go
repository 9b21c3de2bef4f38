package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/krazyTry/raydium-go/amm"
	"github.com/krazyTry/raydium-go/amm/event"
	"github.com/krazyTry/raydium-go/amm/math"
	"github.com/krazyTry/raydium-go/amm/shared"
	"github.com/krazyTry/raydium-go/amm/state"
	"github.com/krazyTry/raydium-go/client"
	"github.com/krazyTry/raydium-go/internal/config"
	"github.com/krazyTry/raydium-go/internal/logger"
	"github.com/krazyTry/raydium-go/internal/store/postgres"
	"github.com/krazyTry/raydium-go/sim"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "raydium",
		Short:        "Constant-product AMM sharing liquidity with an order book",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("network", "", "network name (mainnet, devnet), empty for the build default")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a pool scenario in process and print its events",
		RunE:  runSimulate,
	}
	simulateCmd.Flags().Uint64("base-amount", 1_000_000_000_000, "initial base liquidity")
	simulateCmd.Flags().Uint64("quote-amount", 2_000_000_000, "initial quote liquidity")
	simulateCmd.Flags().Uint64("swap-amount", 10_000_000_000, "base amount swapped in")
	simulateCmd.Flags().Int("steps", 3, "monitor steps after bootstrap")
	simulateCmd.Flags().String("pg-dsn", "", "Postgres DSN; when set the final accounts are stored there")
	root.AddCommand(simulateCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect <amm-address>",
		Short: "Read a deployed pool over RPC",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	inspectCmd.Flags().String("rpc", rpc.MainNetBeta_RPC, "Solana RPC URL")
	root.AddCommand(inspectCmd)

	poolsCmd := &cobra.Command{
		Use:   "pools [market]",
		Short: "List pools of the program, optionally for one market",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPools,
	}
	poolsCmd.Flags().String("rpc", rpc.MainNetBeta_RPC, "Solana RPC URL")
	root.AddCommand(poolsCmd)

	swapCmd := &cobra.Command{
		Use:   "swap <amm-address> <amount-in>",
		Short: "Swap a fixed input against a deployed pool",
		Args:  cobra.ExactArgs(2),
		RunE:  runSwap,
	}
	swapCmd.Flags().String("rpc", rpc.MainNetBeta_RPC, "Solana RPC URL")
	swapCmd.Flags().String("ws", rpc.MainNetBeta_WS, "Solana websocket URL")
	swapCmd.Flags().String("keypair", "", "payer keypair file")
	swapCmd.Flags().Bool("sell-base", false, "swap base for quote instead of quote for base")
	swapCmd.Flags().Uint64("slippage-bps", 50, "accepted slippage on the quoted output")
	root.AddCommand(swapCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode-log <ray_log>",
		Short: "Decode a ray_log line",
		Args:  cobra.ExactArgs(1),
		RunE:  runDecodeLog,
	}
	root.AddCommand(decodeCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

type env struct {
	cfg     config.Config
	network amm.Network
	logger  *zap.Logger
}

func setup(cmd *cobra.Command) (*env, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	network, err := amm.NetworkByName(cfg.Network)
	if err != nil {
		return nil, err
	}
	log.Debug("network selected", zap.String("network", network.Name), zap.String("program", network.ProgramID.String()))
	return &env{cfg: cfg, network: network, logger: log}, nil
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scenario := sim.DefaultScenario()
	scenario.BaseAmount = e.cfg.Simulation.BaseAmount
	scenario.QuoteAmount = e.cfg.Simulation.QuoteAmount
	scenario.SwapAmount = e.cfg.Simulation.SwapAmount
	scenario.Steps = e.cfg.Simulation.Steps

	rt := sim.New(sim.WithNetwork(e.network), sim.WithLogger(e.logger))
	report, err := scenario.Run(ctx, rt)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, step := range report.Steps {
		fmt.Fprintf(out, "slot %d  %s\n", step.Result.Slot, step.Name)
		for i, ev := range step.Result.Events {
			body, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  %s %s\n  %s\n", ev.Type(), body, step.Result.Logs[i])
		}
	}

	info := report.Info
	fmt.Fprintf(out, "pool %s  status %s  lp %d\n", report.Pool.Keys.Amm, info.Status, info.LpAmount)
	fmt.Fprintf(out, "price %s quote per base\n", report.Price.StringFixed(int32(info.QuoteDecimals)))
	for _, o := range report.Orders {
		price := math.LotPriceToDecimal(o.Price, info.BaseLotSize, info.QuoteLotSize, info.BaseDecimals, info.QuoteDecimals)
		fmt.Fprintf(out, "  %-4s %s x %d lots\n", o.Side, price.StringFixed(int32(info.QuoteDecimals)), o.RemainingSize)
	}

	if e.cfg.PgDSN == "" {
		return nil
	}
	store, err := postgres.NewStore(ctx, e.cfg.PgDSN)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	snapshot := rt.Store.Snapshot()
	accounts := make([]*state.Account, 0, len(snapshot))
	for _, acc := range snapshot {
		accounts = append(accounts, acc)
	}
	if err := store.Commit(ctx, accounts...); err != nil {
		return fmt.Errorf("store accounts: %w", err)
	}
	e.logger.Info("accounts stored", zap.Int("count", len(accounts)))
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	ammKey, err := solana.PublicKeyFromBase58(args[0])
	if err != nil {
		return fmt.Errorf("amm address: %w", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(rpc.New(e.cfg.RPCURL), e.network, client.WithLogger(e.logger))
	pool, err := c.GetPool(ctx, ammKey)
	if err != nil {
		return err
	}
	base, quote, err := pool.Reserves()
	if err != nil {
		return err
	}
	price, err := pool.Price()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	info := pool.Info
	fmt.Fprintf(out, "pool    %s\nstatus  %s\nmarket  %s\n", ammKey, info.Status, info.Market)
	fmt.Fprintf(out, "base    %s reserve %d vault %d\n", info.BaseMint, base, pool.VaultBase)
	fmt.Fprintf(out, "quote   %s reserve %d vault %d\n", info.QuoteMint, quote, pool.VaultQuote)
	fmt.Fprintf(out, "price   %s\nlp      %d\norders  %d (ladder at slot %d)\n",
		price.StringFixed(int32(info.QuoteDecimals)), info.LpAmount, info.OrderNum, pool.TargetOrders.Slot)
	fmt.Fprintf(out, "fees    trade %d/%d protocol %d/%d owed base %d quote %d\n",
		pool.Config.TradeFeeNumerator, pool.Config.TradeFeeDenominator,
		pool.Config.ProtocolFeeNumerator, pool.Config.ProtocolFeeDenominator,
		info.ProtocolFeesBase, info.ProtocolFeesQuote)
	return nil
}

func runPools(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	var market solana.PublicKey
	if len(args) == 1 {
		if market, err = solana.PublicKeyFromBase58(args[0]); err != nil {
			return fmt.Errorf("market address: %w", err)
		}
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(rpc.New(e.cfg.RPCURL), e.network, client.WithLogger(e.logger))
	keys, err := c.Pools(ctx, market)
	if err != nil {
		return err
	}
	for _, k := range keys {
		fmt.Fprintln(cmd.OutOrStdout(), k)
	}
	return nil
}

func runSwap(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	ammKey, err := solana.PublicKeyFromBase58(args[0])
	if err != nil {
		return fmt.Errorf("amm address: %w", err)
	}
	amountIn, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("amount in: %w", err)
	}
	keypair, _ := cmd.Flags().GetString("keypair")
	privateKey, err := solana.PrivateKeyFromSolanaKeygenFile(keypair)
	if err != nil {
		return fmt.Errorf("keypair: %w", err)
	}
	payer := &solana.Wallet{PrivateKey: privateKey}
	sellBase, _ := cmd.Flags().GetBool("sell-base")
	slippage, _ := cmd.Flags().GetUint64("slippage-bps")
	direction := shared.SwapDirectionQuoteToBase
	if sellBase {
		direction = shared.SwapDirectionBaseToQuote
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wsClient, err := ws.Connect(ctx, e.cfg.WSURL)
	if err != nil {
		return fmt.Errorf("ws connect: %w", err)
	}
	defer wsClient.Close()

	c := client.New(rpc.New(e.cfg.RPCURL), e.network, client.WithLogger(e.logger), client.WithWebsocket(wsClient))
	pool, err := c.GetPool(ctx, ammKey)
	if err != nil {
		return err
	}
	sig, err := c.SwapBaseIn(ctx, payer, pool, direction, amountIn, slippage)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), sig)
	return nil
}

func runDecodeLog(cmd *cobra.Command, args []string) error {
	ev, err := event.Decode(args[0])
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(ev, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ev.Type(), body)
	return nil
}
